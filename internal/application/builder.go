package application

import (
	"fmt"

	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

// Builder incrementally assembles a valid aggregation pipeline. The
// level-named methods (ReceiverPatchAgg, SectToSectAgg, SectsToSectAgg,
// SectsToSectsAgg) enforce ordering preconditions and insert implicit
// flatten layers when a level is skipped; the raw Process, Flatten,
// ReceiverSum, and Passthrough methods allow arbitrary manual layer
// construction. Either way, Build re-validates the full pipeline.
//
// Errors are sticky: the first violated precondition is reported by Build
// and later calls are ignored.
type Builder struct {
	typ             domain.StiffnessType
	model           ports.StiffnessModel
	layers          []domain.AggregationMethod
	allowSectToSelf bool
	err             error
}

// NewBuilder starts a pipeline definition for the given stiffness type and
// model.
func NewBuilder(typ domain.StiffnessType, model ports.StiffnessModel) *Builder {
	return &Builder{typ: typ, model: model}
}

// AllowSectToSelf includes calculations between the same source and receiver
// section. The interaction between the exact same source and receiver patch
// is always excluded.
func (b *Builder) AllowSectToSelf(allow bool) *Builder {
	b.allowSectToSelf = allow
	return b
}

// Flatten appends a flatten layer.
func (b *Builder) Flatten() *Builder { return b.Process(domain.MethodFlatten) }

// ReceiverSum appends a receiver-sum layer.
func (b *Builder) ReceiverSum() *Builder { return b.Process(domain.MethodReceiverSum) }

// Passthrough appends a passthrough layer.
func (b *Builder) Passthrough() *Builder { return b.Process(domain.MethodPassthrough) }

// Process appends the given method as the next layer without any ordering
// checks.
func (b *Builder) Process(method domain.AggregationMethod) *Builder {
	if b.err != nil {
		return b
	}
	b.layers = append(b.layers, method)
	return b
}

// ReceiverPatchAgg aggregates section-to-section patch interactions at the
// receiver patch level using the given method. It must be the first layer.
func (b *Builder) ReceiverPatchAgg(method domain.AggregationMethod) *Builder {
	if b.err != nil {
		return b
	}
	if len(b.layers) != 0 {
		b.err = fmt.Errorf("%w: receiver patch aggregation must be specified first", domain.ErrInvalidPipeline)
		return b
	}
	return b.Process(method)
}

// SectToSectAgg sets the aggregation method for section-to-section patch
// interactions. Receiver patch distributions are flattened first if no
// receiver patch aggregation layer was supplied.
func (b *Builder) SectToSectAgg(method domain.AggregationMethod) *Builder {
	if b.err != nil {
		return b
	}
	if len(b.layers) >= 2 {
		b.err = fmt.Errorf("%w: sect-to-sect aggregation already specified", domain.ErrInvalidPipeline)
		return b
	}
	if len(b.layers) == 0 {
		b.Flatten()
	}
	return b.Process(method)
}

// SectsToSectAgg sets the aggregation method for multiple source sections to
// a single receiver section. A section-to-section aggregation level must
// already have been supplied.
func (b *Builder) SectsToSectAgg(method domain.AggregationMethod) *Builder {
	if b.err != nil {
		return b
	}
	if len(b.layers) != 2 {
		b.err = fmt.Errorf("%w: must have supplied a sect-to-sect aggregation level (and nothing further)",
			domain.ErrInvalidPipeline)
		return b
	}
	return b.Process(method)
}

// SectsToSectsAgg sets the aggregation method for multiple source sections
// to multiple receiver sections. If no sections-to-section aggregation was
// supplied, a flatten layer is applied first.
func (b *Builder) SectsToSectsAgg(method domain.AggregationMethod) *Builder {
	if b.err != nil {
		return b
	}
	if len(b.layers) < 2 {
		b.err = fmt.Errorf("%w: must have supplied at least a sect-to-sect aggregation level first",
			domain.ErrInvalidPipeline)
		return b
	}
	if len(b.layers) >= MaxLayers {
		b.err = fmt.Errorf("%w: aggregation levels already completely specified", domain.ErrInvalidPipeline)
		return b
	}
	if len(b.layers) == 2 {
		// Flatten at the sects-to-sect level first.
		b.Flatten()
	}
	return b.Process(method)
}

// Build validates the assembled layer list and returns the calculator.
func (b *Builder) Build() (*Calculator, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewCalculator(b.typ, b.model, b.allowSectToSelf, b.layers...)
}
