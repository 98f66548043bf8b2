package domain

import "errors"

// Common domain errors that can occur during aggregation operations.
var (
	// ErrEmptyDistribution indicates that a terminal aggregation method was
	// invoked on a distribution with no values.
	ErrEmptyDistribution = errors.New("empty distribution")

	// ErrNoDistributions indicates that an aggregation layer received no
	// distributions to operate on.
	ErrNoDistributions = errors.New("no distributions supplied")

	// ErrNonTerminal indicates that a terminal-only operation was requested
	// for a non-terminal aggregation method.
	ErrNonTerminal = errors.New("aggregation method is not terminal")

	// ErrUnknownMethod indicates that an aggregation method name or value
	// does not correspond to a known method.
	ErrUnknownMethod = errors.New("unknown aggregation method")

	// ErrUnknownStiffnessType indicates an unrecognized stiffness quantity.
	ErrUnknownStiffnessType = errors.New("unknown stiffness type")

	// ErrNoInteractions indicates that a count-normalizing method found zero
	// accumulated interactions at its level.
	ErrNoInteractions = errors.New("no interactions at this level")

	// ErrSelfSection indicates a source/receiver pair with the same section
	// while section-to-self calculations are disallowed.
	ErrSelfSection = errors.New("source and receiver section are the same")

	// ErrNoSources indicates that filtering self-sections emptied the source
	// list of a multi-source calculation.
	ErrNoSources = errors.New("no sources that are not the receiver")

	// ErrInvalidPipeline indicates an aggregation layer list that violates
	// the construction invariants.
	ErrInvalidPipeline = errors.New("invalid aggregation pipeline")

	// ErrPipelineDepth indicates that a calculation requires more aggregation
	// layers than the pipeline was configured with.
	ErrPipelineDepth = errors.New("aggregation pipeline too shallow for requested granularity")

	// ErrPatchIDOverflow indicates that a patch index cannot be encoded into
	// the unique patch ID key space.
	ErrPatchIDOverflow = errors.New("patch ID overflow")
)
