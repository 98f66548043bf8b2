package cache

import (
	"github.com/ahrav/go-stiffness/internal/domain"
	"github.com/ahrav/go-stiffness/internal/ports"
)

// Metric names recorded by InstrumentedCache.
const (
	MetricCacheHits   = "stiffness_cache_hits_total"
	MetricCacheMisses = "stiffness_cache_misses_total"
)

// InstrumentedCache decorates an AggregationCache with hit/miss counters per
// cache level.
type InstrumentedCache struct {
	next     ports.AggregationCache
	metrics  ports.MetricsCollector
	typeName string
}

var _ ports.AggregationCache = (*InstrumentedCache)(nil)

// NewInstrumentedCache wraps next, recording counters labeled with the
// stiffness type name.
func NewInstrumentedCache(next ports.AggregationCache, metrics ports.MetricsCollector, typ domain.StiffnessType) *InstrumentedCache {
	return &InstrumentedCache{next: next, metrics: metrics, typeName: typ.String()}
}

func (c *InstrumentedCache) record(level string, hit bool) {
	metric := MetricCacheMisses
	if hit {
		metric = MetricCacheHits
	}
	c.metrics.RecordCounter(metric, 1, map[string]string{"level": level, "type": c.typeName})
}

// PatchAggregated implements ports.AggregationCache.
func (c *InstrumentedCache) PatchAggregated(method domain.AggregationMethod, sourceID, receiverID int) ([]domain.Distribution, bool) {
	dists, ok := c.next.PatchAggregated(method, sourceID, receiverID)
	c.record("patch", ok)
	return dists, ok
}

// PutPatchAggregated implements ports.AggregationCache.
func (c *InstrumentedCache) PutPatchAggregated(method domain.AggregationMethod, sourceID, receiverID int, dists []domain.Distribution) {
	c.next.PutPatchAggregated(method, sourceID, receiverID, dists)
}

// SectAggregated implements ports.AggregationCache.
func (c *InstrumentedCache) SectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int) (*domain.AggregationVector, bool) {
	agg, ok := c.next.SectAggregated(patchMethod, sourceID, receiverID)
	c.record("sect", ok)
	return agg, ok
}

// PutSectAggregated implements ports.AggregationCache.
func (c *InstrumentedCache) PutSectAggregated(patchMethod domain.AggregationMethod, sourceID, receiverID int, agg *domain.AggregationVector) {
	c.next.PutSectAggregated(patchMethod, sourceID, receiverID, agg)
}
