package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-stiffness/internal/application"
	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/testutils"
)

func TestBuilder_ImplicitFlatten(t *testing.T) {
	model := testutils.NewStubModel(5)

	calc, err := application.NewBuilder(domain.StiffnessCFF, model).
		SectToSectAgg(domain.MethodMedian).
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		[]domain.AggregationMethod{domain.MethodFlatten, domain.MethodMedian},
		calc.Layers())

	calc, err = application.NewBuilder(domain.StiffnessCFF, model).
		SectToSectAgg(domain.MethodMedian).
		SectsToSectsAgg(domain.MethodSum).
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		[]domain.AggregationMethod{
			domain.MethodFlatten, domain.MethodMedian, domain.MethodFlatten, domain.MethodSum,
		},
		calc.Layers())
}

func TestBuilder_ExplicitLevels(t *testing.T) {
	model := testutils.NewStubModel(5)

	calc, err := application.NewBuilder(domain.StiffnessSigma, model).
		AllowSectToSelf(true).
		ReceiverPatchAgg(domain.MethodNumPositive).
		SectToSectAgg(domain.MethodSum).
		SectsToSectAgg(domain.MethodNormByCount).
		SectsToSectsAgg(domain.MethodFractPositive).
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		[]domain.AggregationMethod{
			domain.MethodNumPositive, domain.MethodSum,
			domain.MethodNormByCount, domain.MethodFractPositive,
		},
		calc.Layers())
	assert.True(t, calc.AllowsSectToSelf())
	assert.Equal(t, domain.StiffnessSigma, calc.Type())
}

func TestBuilder_RawLayers(t *testing.T) {
	model := testutils.NewStubModel(5)

	calc, err := application.NewBuilder(domain.StiffnessCFF, model).
		ReceiverSum().
		Passthrough().
		Process(domain.MethodMedian).
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		[]domain.AggregationMethod{
			domain.MethodReceiverSum, domain.MethodPassthrough, domain.MethodMedian,
		},
		calc.Layers())
}

func TestBuilder_OrderingPreconditions(t *testing.T) {
	model := testutils.NewStubModel(5)

	tests := []struct {
		name  string
		build func() (*application.Calculator, error)
	}{
		{
			"receiver patch agg after another layer",
			func() (*application.Calculator, error) {
				return application.NewBuilder(domain.StiffnessCFF, model).
					Flatten().
					ReceiverPatchAgg(domain.MethodSum).
					Build()
			},
		},
		{
			"sect-to-sect agg twice",
			func() (*application.Calculator, error) {
				return application.NewBuilder(domain.StiffnessCFF, model).
					SectToSectAgg(domain.MethodMedian).
					SectToSectAgg(domain.MethodSum).
					Build()
			},
		},
		{
			"sects-to-sect agg without sect-to-sect level",
			func() (*application.Calculator, error) {
				return application.NewBuilder(domain.StiffnessCFF, model).
					SectsToSectAgg(domain.MethodSum).
					Build()
			},
		},
		{
			"sects-to-sects agg without sect-to-sect level",
			func() (*application.Calculator, error) {
				return application.NewBuilder(domain.StiffnessCFF, model).
					SectsToSectsAgg(domain.MethodSum).
					Build()
			},
		},
		{
			"sects-to-sects agg on a full pipeline",
			func() (*application.Calculator, error) {
				return application.NewBuilder(domain.StiffnessCFF, model).
					SectToSectAgg(domain.MethodMedian).
					SectsToSectAgg(domain.MethodSum).
					SectsToSectsAgg(domain.MethodSum).
					SectsToSectsAgg(domain.MethodSum).
					Build()
			},
		},
		{
			"non-terminal final layer",
			func() (*application.Calculator, error) {
				return application.NewBuilder(domain.StiffnessCFF, model).
					Flatten().
					Passthrough().
					Build()
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			assert.ErrorIs(t, err, domain.ErrInvalidPipeline)
		})
	}
}

// TestBuilder_StickyError checks that the first precondition violation is the
// one reported, regardless of later calls.
func TestBuilder_StickyError(t *testing.T) {
	model := testutils.NewStubModel(5)

	_, err := application.NewBuilder(domain.StiffnessCFF, model).
		SectsToSectAgg(domain.MethodSum).
		SectToSectAgg(domain.MethodMedian).
		SectsToSectsAgg(domain.MethodSum).
		Build()
	require.ErrorIs(t, err, domain.ErrInvalidPipeline)
	assert.Contains(t, err.Error(), "sect-to-sect aggregation level")
}
