package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAggregationMethod_Calculate verifies every terminal statistic against
// hand-computed values, including the even/odd median definitions.
func TestAggregationMethod_Calculate(t *testing.T) {
	tests := []struct {
		name     string
		method   AggregationMethod
		values   []float64
		expected float64
	}{
		{"mean", MethodMean, []float64{1, 2, 3, 6}, 3},
		{"median odd length", MethodMedian, []float64{5, -1, 2}, 2},
		{"median even length", MethodMedian, []float64{4, 1, 3, 2}, 2.5},
		{"sum", MethodSum, []float64{1.5, -0.5, 2}, 3},
		{"min", MethodMin, []float64{3, -2, 7}, -2},
		{"max", MethodMax, []float64{3, -2, 7}, 7},
		{"fract positive counts zero as positive", MethodFractPositive, []float64{0, 1, -1, -2}, 0.5},
		{"num positive", MethodNumPositive, []float64{0, 1, -1, -2}, 2},
		{"num negative", MethodNumNegative, []float64{0, 1, -1, -2}, 2},
		{"greater of sum and median picks sum", MethodGreaterSumMedian, []float64{1, 2, 3}, 6},
		{"greater of sum and median picks median", MethodGreaterSumMedian, []float64{-5, 1, 2}, 1},
		{"greater of mean and median", MethodGreaterMeanMedian, []float64{1, 2, 9}, 4},
		{"count", MethodCount, []float64{1, 2, 3}, 3},
		{"count of empty", MethodCount, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.method.Calculate(tt.values)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-12)
		})
	}
}

func TestAggregationMethod_CalculateDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	_, err := MethodMedian.Calculate(values)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestAggregationMethod_CalculateErrors(t *testing.T) {
	for _, m := range TerminalMethods() {
		if m == MethodCount {
			continue
		}
		t.Run(m.String()+" on empty", func(t *testing.T) {
			_, err := m.Calculate(nil)
			assert.ErrorIs(t, err, ErrEmptyDistribution)
		})
	}

	_, err := MethodFlatten.Calculate([]float64{1})
	assert.ErrorIs(t, err, ErrNonTerminal)
	_, err = MethodNone.Calculate([]float64{1})
	assert.ErrorIs(t, err, ErrNonTerminal)
}

func TestAggregationMethod_AggregateFlatten(t *testing.T) {
	dists := []Distribution{
		NewDistribution(10, 2, 1, 2),
		NewDistribution(11, 3, 3),
	}

	out, err := MethodFlatten.Aggregate(7, dists)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 7, out[0].ReceiverID)
	assert.Equal(t, []float64{1, 2, 3}, out[0].Values)
	assert.Equal(t, 5, out[0].TotalInteractions)

	_, err = MethodFlatten.Aggregate(7, nil)
	assert.ErrorIs(t, err, ErrNoDistributions)
}

// TestFlattenAssociative checks that flattening {A,B} then {result,C} yields
// the same values and summed interaction count as flattening {A,B,C}.
func TestFlattenAssociative(t *testing.T) {
	a := NewDistribution(1, 4, 1, 2)
	b := NewDistribution(2, 1, 3)
	c := NewDistribution(3, 2, 4, 5)

	ab, err := FlattenDistributions(-1, []Distribution{a, b})
	require.NoError(t, err)
	abc, err := FlattenDistributions(-1, []Distribution{ab, c})
	require.NoError(t, err)

	direct, err := FlattenDistributions(-1, []Distribution{a, b, c})
	require.NoError(t, err)

	assert.Equal(t, direct.Values, abc.Values)
	assert.Equal(t, direct.TotalInteractions, abc.TotalInteractions)
	assert.Equal(t, 7, direct.TotalInteractions)
}

func TestAggregationMethod_AggregateReceiverSum(t *testing.T) {
	t.Run("singleton group passes through unchanged", func(t *testing.T) {
		d := NewDistribution(4, 6, 1, 2, 3)
		out, err := MethodReceiverSum.Aggregate(-1, []Distribution{d})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, d, out[0])
	})

	t.Run("multi-distribution group collapses to sum", func(t *testing.T) {
		dists := []Distribution{
			NewDistribution(4, 2, 1, 2),
			NewDistribution(5, 1, 10),
			NewDistribution(4, 3, 3),
		}
		out, err := MethodReceiverSum.Aggregate(-1, dists)
		require.NoError(t, err)
		require.Len(t, out, 2)

		assert.Equal(t, 4, out[0].ReceiverID)
		assert.Equal(t, []float64{6}, out[0].Values)
		assert.Equal(t, 5, out[0].TotalInteractions)

		assert.Equal(t, 5, out[1].ReceiverID)
		assert.Equal(t, []float64{10}, out[1].Values)
	})
}

func TestAggregationMethod_AggregateNormByCount(t *testing.T) {
	dists := []Distribution{
		NewDistribution(1, 10, 3),
		NewDistribution(2, 5, 1),
	}

	out, err := MethodNormByCount.Aggregate(9, dists)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 9, out[0].ReceiverID)
	assert.Equal(t, 15, out[0].TotalInteractions)
	require.Len(t, out[0].Values, 1)
	assert.InDelta(t, 4.0/15.0, out[0].Values[0], 1e-12)

	_, err = MethodNormByCount.Aggregate(9, []Distribution{NewDistribution(1, 0, 1)})
	assert.ErrorIs(t, err, ErrNoInteractions)
}

func TestAggregationMethod_AggregateInteractionSign(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		count    int
		expected float64
	}{
		{"ratio above half", []float64{8}, 10, 1},
		{"ratio exactly half is positive", []float64{5}, 10, 1},
		{"ratio below half", []float64{4}, 10, -1},
		{"negative sum", []float64{-3}, 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MethodInteractionSign.Aggregate(-1, []Distribution{
				NewDistribution(1, tt.count, tt.values...),
			})
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, tt.expected, out[0].Values[0])
			assert.Equal(t, tt.count, out[0].TotalInteractions)
		})
	}
}

func TestAggregationMethod_AggregatePassthrough(t *testing.T) {
	dists := []Distribution{
		NewDistribution(1, 2, 1, 2),
		NewDistribution(2, 1, 3),
	}
	out, err := MethodPassthrough.Aggregate(-1, dists)
	require.NoError(t, err)
	assert.Equal(t, dists, out)
}

// TestAggregationMethod_AggregateTerminal verifies the default elementwise
// behavior of a terminal method used mid-pipeline: each distribution reduces
// to a single value keeping its receiver ID and interaction count.
func TestAggregationMethod_AggregateTerminal(t *testing.T) {
	dists := []Distribution{
		NewDistribution(4, 3, 1, 2, 3),
		NewDistribution(5, 2, -1, 5),
	}

	out, err := MethodSum.Aggregate(99, dists)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, Distribution{ReceiverID: 4, Values: []float64{6}, TotalInteractions: 3}, out[0])
	assert.Equal(t, Distribution{ReceiverID: 5, Values: []float64{4}, TotalInteractions: 2}, out[1])

	_, err = MethodSum.Aggregate(99, []Distribution{NewDistribution(1, 0)})
	assert.ErrorIs(t, err, ErrEmptyDistribution)
}

func TestAggregationMethod_Get(t *testing.T) {
	dists := []Distribution{
		NewDistribution(1, 2, 1, 2),
		NewDistribution(2, 1, 3),
	}

	got, err := MethodSum.Get(dists)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got)

	got, err = MethodMedian.Get(dists[:1])
	require.NoError(t, err)
	assert.Equal(t, 1.5, got)

	_, err = MethodFlatten.Get(dists)
	assert.ErrorIs(t, err, ErrNonTerminal)

	_, err = MethodSum.Get(nil)
	assert.ErrorIs(t, err, ErrNoDistributions)
}

func TestAggregationMethod_Flags(t *testing.T) {
	assert.True(t, MethodMedian.IsTerminal())
	assert.False(t, MethodFlatten.IsTerminal())
	assert.False(t, MethodNone.IsTerminal())

	assert.True(t, MethodSum.HasUnits())
	assert.False(t, MethodFractPositive.HasUnits())
	assert.False(t, MethodNumPositive.HasUnits())
	assert.False(t, MethodNumNegative.HasUnits())
	// Reshaping methods report units unconditionally.
	assert.True(t, MethodFlatten.HasUnits())
	assert.True(t, MethodReceiverSum.HasUnits())

	assert.Len(t, TerminalMethods(), 11)
	for _, m := range TerminalMethods() {
		assert.True(t, m.IsTerminal())
	}
}

func TestParseAggregationMethod(t *testing.T) {
	for m := AggregationMethod(0); int(m) < numMethods; m++ {
		parsed, err := ParseAggregationMethod(m.Token())
		require.NoError(t, err, "token %q", m.Token())
		assert.Equal(t, m, parsed)
	}

	_, err := ParseAggregationMethod("p90")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
