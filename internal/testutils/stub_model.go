// Package testutils provides hand-written stubs for the pipeline's external
// collaborators.
package testutils

import (
	"context"
	"fmt"

	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

type pairKey struct {
	source, receiver int
}

// StubModel is a StiffnessModel backed by explicitly registered patch
// matrices. It counts PatchInteractions invocations so tests can assert that
// cache hits skip extraction.
type StubModel struct {
	sectionCount int
	matrices     map[pairKey][][]float64
	caches       map[domain.StiffnessType]*StubCache

	// Calls counts PatchInteractions invocations across all pairs.
	Calls int
}

var _ ports.StiffnessModel = (*StubModel)(nil)

// NewStubModel creates a model claiming the given total section count.
func NewStubModel(sectionCount int) *StubModel {
	return &StubModel{
		sectionCount: sectionCount,
		matrices:     make(map[pairKey][][]float64),
		caches:       make(map[domain.StiffnessType]*StubCache),
	}
}

// SetMatrix registers the patch matrix returned for a source/receiver pair,
// indexed as matrix[receiverPatch][sourcePatch]. The same matrix is served
// for every stiffness type.
func (m *StubModel) SetMatrix(sourceID, receiverID int, matrix [][]float64) {
	m.matrices[pairKey{sourceID, receiverID}] = matrix
}

// PatchInteractions implements ports.StiffnessModel.
func (m *StubModel) PatchInteractions(
	_ context.Context, source, receiver ports.Section, _ domain.StiffnessType,
) ([][]float64, error) {
	m.Calls++
	matrix, ok := m.matrices[pairKey{source.SectionID(), receiver.SectionID()}]
	if !ok {
		return nil, fmt.Errorf("no matrix registered for %d -> %d", source.SectionID(), receiver.SectionID())
	}
	return matrix, nil
}

// SectionCount implements ports.StiffnessModel.
func (m *StubModel) SectionCount() int { return m.sectionCount }

// AggregationCache implements ports.StiffnessModel; every type gets its own
// StubCache, created on first use.
func (m *StubModel) AggregationCache(typ domain.StiffnessType) ports.AggregationCache {
	return m.Cache(typ)
}

// Cache returns the typed stub cache for assertions.
func (m *StubModel) Cache(typ domain.StiffnessType) *StubCache {
	c, ok := m.caches[typ]
	if !ok {
		c = NewStubCache()
		m.caches[typ] = c
	}
	return c
}

// StubCache is an in-memory AggregationCache that counts hits, misses, and
// puts at both cache levels.
type StubCache struct {
	patch map[pairMethodKey][]domain.Distribution
	sect  map[pairMethodKey]*domain.AggregationVector

	PatchHits, PatchMisses, PatchPuts int
	SectHits, SectMisses, SectPuts    int
}

type pairMethodKey struct {
	method           domain.AggregationMethod
	source, receiver int
}

var _ ports.AggregationCache = (*StubCache)(nil)

// NewStubCache creates an empty counting cache.
func NewStubCache() *StubCache {
	return &StubCache{
		patch: make(map[pairMethodKey][]domain.Distribution),
		sect:  make(map[pairMethodKey]*domain.AggregationVector),
	}
}

// PatchAggregated implements ports.AggregationCache.
func (c *StubCache) PatchAggregated(method domain.AggregationMethod, sourceID, receiverID int) ([]domain.Distribution, bool) {
	dists, ok := c.patch[pairMethodKey{method, sourceID, receiverID}]
	if ok {
		c.PatchHits++
	} else {
		c.PatchMisses++
	}
	return dists, ok
}

// PutPatchAggregated implements ports.AggregationCache.
func (c *StubCache) PutPatchAggregated(method domain.AggregationMethod, sourceID, receiverID int, dists []domain.Distribution) {
	c.PatchPuts++
	c.patch[pairMethodKey{method, sourceID, receiverID}] = dists
}

// SectAggregated implements ports.AggregationCache.
func (c *StubCache) SectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int) (*domain.AggregationVector, bool) {
	agg, ok := c.sect[pairMethodKey{patchMethod, sourceID, receiverID}]
	if ok {
		c.SectHits++
	} else {
		c.SectMisses++
	}
	return agg, ok
}

// PutSectAggregated implements ports.AggregationCache.
func (c *StubCache) PutSectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int, agg *domain.AggregationVector) {
	c.SectPuts++
	c.sect[pairMethodKey{patchMethod, sourceID, receiverID}] = agg
}

// SectEntries returns the number of distinct section-level cache keys.
func (c *StubCache) SectEntries() int { return len(c.sect) }

// PatchEntries returns the number of distinct patch-level cache keys.
func (c *StubCache) PatchEntries() int { return len(c.patch) }
