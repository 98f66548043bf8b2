package domain

import (
	"fmt"
	"math"
)

// AggregationVector holds the result of every terminal aggregation method for
// one distribution, computed in a single pass over a sorted copy of the
// values. It is the payload of the section-to-section cache: once built for a
// source/receiver pair, any terminal statistic at that level can be retrieved
// without recomputation, including by calculators configured with a different
// terminal method.
//
// A vector is immutable after construction.
type AggregationVector struct {
	vals [numTerminalMethods]float64
}

// NewAggregationVector computes every terminal statistic for the given
// values. interactionCount is the raw patch interaction count behind the
// values, reported by MethodCount; it may exceed len(values) after partial
// reductions. The input slice is not modified.
func NewAggregationVector(values []float64, interactionCount int) (*AggregationVector, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("aggregation vector: %w", ErrEmptyDistribution)
	}

	sorted := sortedCopy(values)
	n := len(sorted)
	var total float64
	numPositive := 0
	for _, v := range sorted {
		total += v
		if v >= 0 {
			numPositive++
		}
	}
	mean := total / float64(n)
	median := medianSorted(sorted)

	v := &AggregationVector{}
	v.vals[MethodMean] = mean
	v.vals[MethodMedian] = median
	v.vals[MethodSum] = total
	v.vals[MethodMin] = sorted[0]
	v.vals[MethodMax] = sorted[n-1]
	v.vals[MethodFractPositive] = float64(numPositive) / float64(n)
	v.vals[MethodNumPositive] = float64(numPositive)
	v.vals[MethodNumNegative] = float64(n - numPositive)
	v.vals[MethodGreaterSumMedian] = math.Max(total, median)
	v.vals[MethodGreaterMeanMedian] = math.Max(mean, median)
	v.vals[MethodCount] = float64(interactionCount)
	return v, nil
}

// NewAggregationVectorFrom rebuilds a vector from explicit (method, value)
// pairs, e.g. when deserializing a persisted cache entry. Slots for methods
// not listed are NaN.
func NewAggregationVectorFrom(methods []AggregationMethod, values []float64) (*AggregationVector, error) {
	if len(methods) != len(values) {
		return nil, fmt.Errorf("aggregation vector: %d methods but %d values", len(methods), len(values))
	}
	v := &AggregationVector{}
	for i := range v.vals {
		v.vals[i] = math.NaN()
	}
	for i, m := range methods {
		if !m.IsTerminal() {
			return nil, fmt.Errorf("%w: cannot store a value for %s", ErrNonTerminal, m)
		}
		v.vals[m] = values[i]
	}
	return v, nil
}

// Get returns the precomputed value for the given terminal method.
func (v *AggregationVector) Get(m AggregationMethod) (float64, error) {
	if !m.IsTerminal() {
		return 0, fmt.Errorf("%w: no cached value for %s", ErrNonTerminal, m)
	}
	return v.vals[m], nil
}
