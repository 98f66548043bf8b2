// Package model provides StiffnessModel implementations that stand in for a
// real physical stiffness calculator in examples, benchmarks, and
// integration tests.
package model

import (
	"context"
	"fmt"
	"sync"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/ahrav/go-stiffness/infrastructure/cache"
	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

// noiseScale spreads patch coordinates far enough apart that neighboring
// interaction values are correlated but not identical.
const noiseScale = 0.37

// SyntheticModel generates smooth, deterministic patch interaction matrices
// from simplex noise. Values fall roughly in [-1, 1] and are a pure function
// of (seed, source patch, receiver patch, stiffness type), so repeated
// lookups and cache round-trips are reproducible.
//
// This is demo and test tooling, not a physical model.
type SyntheticModel struct {
	noise        opensimplex.Noise
	patchCounts  []int
	patchOffsets []int

	mu     sync.Mutex
	caches map[domain.StiffnessType]ports.AggregationCache
}

var _ ports.StiffnessModel = (*SyntheticModel)(nil)

// NewSyntheticModel creates a model with one entry in patchCounts per
// section, giving the number of patches in that section.
func NewSyntheticModel(seed int64, patchCounts []int) *SyntheticModel {
	offsets := make([]int, len(patchCounts))
	total := 0
	for i, n := range patchCounts {
		offsets[i] = total
		total += n
	}
	return &SyntheticModel{
		noise:        opensimplex.New(seed),
		patchCounts:  patchCounts,
		patchOffsets: offsets,
		caches:       make(map[domain.StiffnessType]ports.AggregationCache),
	}
}

// PatchInteractions implements ports.StiffnessModel.
func (m *SyntheticModel) PatchInteractions(
	_ context.Context, source, receiver ports.Section, typ domain.StiffnessType,
) ([][]float64, error) {
	sourceID := source.SectionID()
	receiverID := receiver.SectionID()
	if sourceID < 0 || sourceID >= len(m.patchCounts) {
		return nil, fmt.Errorf("source section %d out of range [0,%d)", sourceID, len(m.patchCounts))
	}
	if receiverID < 0 || receiverID >= len(m.patchCounts) {
		return nil, fmt.Errorf("receiver section %d out of range [0,%d)", receiverID, len(m.patchCounts))
	}

	rows := m.patchCounts[receiverID]
	cols := m.patchCounts[sourceID]
	matrix := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		row := make([]float64, cols)
		y := float64(m.patchOffsets[receiverID]+r) * noiseScale
		for s := 0; s < cols; s++ {
			x := float64(m.patchOffsets[sourceID]+s) * noiseScale
			row[s] = m.noise.Eval3(x, y, float64(typ))
		}
		matrix[r] = row
	}
	return matrix, nil
}

// SectionCount implements ports.StiffnessModel.
func (m *SyntheticModel) SectionCount() int { return len(m.patchCounts) }

// AggregationCache implements ports.StiffnessModel; each stiffness type gets
// its own in-memory cache shared across calculators.
func (m *SyntheticModel) AggregationCache(typ domain.StiffnessType) ports.AggregationCache {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.caches[typ]
	if !ok {
		c = cache.NewMemoryCache()
		m.caches[typ] = c
	}
	return c
}
