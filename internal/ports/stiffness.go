// Package ports defines the narrow interfaces through which the aggregation
// pipeline talks to its external collaborators: the physical stiffness model,
// the aggregation cache, and observability infrastructure.
package ports

import (
	"context"

	"github.com/ahrav/go-stiffness/internal/domain"
)

// Section identifies one coarse fault section. Callers supply their own
// section representation; the pipeline only ever reads the integer ID.
type Section interface {
	// SectionID returns the stable integer identifier of the section.
	SectionID() int
}

// SectionID is a minimal Section implementation for callers that track
// sections as bare integers.
type SectionID int

// SectionID implements the Section interface.
func (s SectionID) SectionID() int { return int(s) }

// StiffnessModel computes raw patch-to-patch interaction values between
// sections. Implementations own the physical stiffness/Coulomb computation
// and the geometric subdivision of sections into patches; the aggregation
// pipeline treats the returned values as an opaque numeric distribution.
type StiffnessModel interface {
	// PatchInteractions returns the interaction matrix for the given pair
	// and stiffness type, indexed as matrix[receiverPatch][sourcePatch].
	// For a self-pair (source == receiver) the matrix must be square.
	PatchInteractions(ctx context.Context, source, receiver Section, typ domain.StiffnessType) ([][]float64, error)

	// SectionCount returns the total number of sections known to the model.
	// It bounds the key space used to derive unique patch identifiers.
	SectionCount() int

	// AggregationCache returns the cache shared by all calculators operating
	// on the given stiffness type, or nil if the model does not cache.
	AggregationCache(typ domain.StiffnessType) AggregationCache
}

// AggregationCache memoizes patch-level aggregates and section-to-section
// aggregation vectors. Lookups are purely functional of their key, so
// concurrent reads are safe; puts must be idempotent, since deterministic
// recomputation makes duplicate inserts value-identical.
//
// patchMethod is the layer-0 aggregation method that produced the entry, or
// domain.MethodNone when the patch layer was a plain flatten.
type AggregationCache interface {
	// PatchAggregated returns the cached patch-level aggregation for the
	// pair, if present.
	PatchAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int) ([]domain.Distribution, bool)

	// PutPatchAggregated stores a patch-level aggregation for the pair.
	PutPatchAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int, dists []domain.Distribution)

	// SectAggregated returns the cached section-to-section aggregation
	// vector for the pair, if present.
	SectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int) (*domain.AggregationVector, bool)

	// PutSectAggregated stores a section-to-section aggregation vector.
	PutSectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int, agg *domain.AggregationVector)
}

// ScalarCalculator is the public calculation surface of a configured
// aggregation pipeline. Implementations reduce patch-level interaction
// distributions to a single scalar at one of three granularities.
type ScalarCalculator interface {
	// SectToSect aggregates one source section onto one receiver section.
	SectToSect(ctx context.Context, source, receiver Section) (float64, error)

	// SectsToSect aggregates multiple source sections onto one receiver.
	SectsToSect(ctx context.Context, sources []Section, receiver Section) (float64, error)

	// SectsToSects aggregates multiple source sections onto multiple
	// receivers; it requires a full four-layer pipeline.
	SectsToSects(ctx context.Context, sources, receivers []Section) (float64, error)
}
