package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Distribution is a bag of interaction values tagged with the receiver it
// belongs to. It is the unit of data flowing between aggregation layers.
//
// The receiver ID is a synthetic identifier: a section ID, a unique patch ID,
// or -1 when no single receiver exists at the current level. TotalInteractions
// tracks the raw number of patch interactions represented, which may exceed
// len(Values) after partial reductions such as a sum.
//
// Distributions are never mutated after construction; layers always produce
// new ones.
type Distribution struct {
	// ReceiverID identifies which receiver the values belong to.
	ReceiverID int

	// Values holds the interaction values at the current aggregation level.
	Values []float64

	// TotalInteractions is the raw patch interaction count behind Values.
	TotalInteractions int
}

// NewDistribution builds a Distribution from the given values.
func NewDistribution(receiverID, totalInteractions int, values ...float64) Distribution {
	return Distribution{
		ReceiverID:        receiverID,
		Values:            values,
		TotalInteractions: totalInteractions,
	}
}

// String renders the distribution for debugging output.
func (d Distribution) String() string {
	vals := make([]string, len(d.Values))
	for i, v := range d.Values {
		vals[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return fmt.Sprintf("%d: %s\ttotalInteractions=%d",
		d.ReceiverID, strings.Join(vals, ","), d.TotalInteractions)
}

// FlattenDistributions concatenates the value sequences and sums the
// interaction counts of the given distributions into a single Distribution
// tagged with receiverID. The single-distribution case reuses the input value
// slice; callers must treat distributions as immutable.
func FlattenDistributions(receiverID int, dists []Distribution) (Distribution, error) {
	if len(dists) == 0 {
		return Distribution{}, fmt.Errorf("flatten: %w", ErrNoDistributions)
	}
	if len(dists) == 1 {
		return Distribution{
			ReceiverID:        receiverID,
			Values:            dists[0].Values,
			TotalInteractions: dists[0].TotalInteractions,
		}, nil
	}

	size := 0
	for _, d := range dists {
		size += len(d.Values)
	}
	flattened := make([]float64, 0, size)
	total := 0
	for _, d := range dists {
		flattened = append(flattened, d.Values...)
		total += d.TotalInteractions
	}
	return Distribution{
		ReceiverID:        receiverID,
		Values:            flattened,
		TotalInteractions: total,
	}, nil
}
