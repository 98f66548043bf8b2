// Package cache provides AggregationCache implementations for memoizing
// patch-level aggregates and section-to-section aggregation vectors.
package cache

import (
	"sync"

	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

type cacheKey struct {
	method           domain.AggregationMethod
	source, receiver int
}

// MemoryCache is a process-local AggregationCache. Lookups are purely
// functional of their key and puts are idempotent, so it is safe to share
// one instance across calculators and goroutines.
type MemoryCache struct {
	mu    sync.RWMutex
	patch map[cacheKey][]domain.Distribution
	sect  map[cacheKey]*domain.AggregationVector
}

var _ ports.AggregationCache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		patch: make(map[cacheKey][]domain.Distribution),
		sect:  make(map[cacheKey]*domain.AggregationVector),
	}
}

// PatchAggregated implements ports.AggregationCache.
func (c *MemoryCache) PatchAggregated(method domain.AggregationMethod, sourceID, receiverID int) ([]domain.Distribution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dists, ok := c.patch[cacheKey{method, sourceID, receiverID}]
	return dists, ok
}

// PutPatchAggregated implements ports.AggregationCache.
func (c *MemoryCache) PutPatchAggregated(method domain.AggregationMethod, sourceID, receiverID int, dists []domain.Distribution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patch[cacheKey{method, sourceID, receiverID}] = dists
}

// SectAggregated implements ports.AggregationCache.
func (c *MemoryCache) SectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int) (*domain.AggregationVector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	agg, ok := c.sect[cacheKey{patchMethod, sourceID, receiverID}]
	return agg, ok
}

// PutSectAggregated implements ports.AggregationCache.
func (c *MemoryCache) PutSectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int, agg *domain.AggregationVector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sect[cacheKey{patchMethod, sourceID, receiverID}] = agg
}

// Size returns the number of patch-level and section-level entries.
func (c *MemoryCache) Size() (patchEntries, sectEntries int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.patch), len(c.sect)
}
