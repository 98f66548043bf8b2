// Package middleware provides cross-cutting concerns for the stiffness
// aggregation pipeline.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-stiffness/internal/ports"
)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of calculation latency and
// cache effectiveness.
type PrometheusMetrics struct {
	calcLatency *prometheus.HistogramVec
	counters    *prometheus.CounterVec
	gauges      *prometheus.GaugeVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the pipeline metrics in the default
// Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWith(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWith registers the pipeline metrics in the given
// registry; tests pass a private registry to avoid duplicate registration.
func NewPrometheusMetricsWith(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		calcLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stiffness_calc_duration_seconds",
				Help:    "Execution time of aggregate stiffness calculations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "type"},
		),
		counters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stiffness_events_total",
				Help: "Counts of pipeline events such as cache hits and misses.",
			},
			[]string{"metric", "level", "type"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stiffness_system_state",
				Help: "Current state values for the aggregation pipeline.",
			},
			[]string{"metric", "type"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.calcLatency.WithLabelValues(operation, labelOr(labels, "type")).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	pm.counters.WithLabelValues(metric, labelOr(labels, "level"), labelOr(labels, "type")).Add(value)
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.gauges.WithLabelValues(metric, labelOr(labels, "type")).Set(value)
}

func labelOr(labels map[string]string, key string) string {
	if v, ok := labels[key]; ok {
		return v
	}
	return "unknown"
}
