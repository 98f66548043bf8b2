package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-stiffness/internal/ports"
)

const tracerName = "stiffness-calculator"

// TracedCalculator decorates a ScalarCalculator with OpenTelemetry spans and
// latency metrics. Spans carry the section identifiers involved and the
// resulting aggregate value; failed calculations record the error on the
// span.
type TracedCalculator struct {
	next     ports.ScalarCalculator
	metrics  ports.MetricsCollector
	typeName string
}

var _ ports.ScalarCalculator = (*TracedCalculator)(nil)

// NewTracedCalculator wraps next. metrics may be nil to trace without
// recording latency.
func NewTracedCalculator(next ports.ScalarCalculator, metrics ports.MetricsCollector, typeName string) *TracedCalculator {
	return &TracedCalculator{next: next, metrics: metrics, typeName: typeName}
}

// SectToSect implements ports.ScalarCalculator.
func (t *TracedCalculator) SectToSect(ctx context.Context, source, receiver ports.Section) (float64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Calculator.SectToSect",
		trace.WithAttributes(
			attribute.String("stiffness.type", t.typeName),
			attribute.Int("stiffness.source_id", source.SectionID()),
			attribute.Int("stiffness.receiver_id", receiver.SectionID()),
		))
	defer span.End()

	start := time.Now()
	val, err := t.next.SectToSect(ctx, source, receiver)
	t.finish(span, "sect_to_sect", start, val, err)
	return val, err
}

// SectsToSect implements ports.ScalarCalculator.
func (t *TracedCalculator) SectsToSect(ctx context.Context, sources []ports.Section, receiver ports.Section) (float64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Calculator.SectsToSect",
		trace.WithAttributes(
			attribute.String("stiffness.type", t.typeName),
			attribute.Int("stiffness.source_count", len(sources)),
			attribute.Int("stiffness.receiver_id", receiver.SectionID()),
		))
	defer span.End()

	start := time.Now()
	val, err := t.next.SectsToSect(ctx, sources, receiver)
	t.finish(span, "sects_to_sect", start, val, err)
	return val, err
}

// SectsToSects implements ports.ScalarCalculator.
func (t *TracedCalculator) SectsToSects(ctx context.Context, sources, receivers []ports.Section) (float64, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "Calculator.SectsToSects",
		trace.WithAttributes(
			attribute.String("stiffness.type", t.typeName),
			attribute.Int("stiffness.source_count", len(sources)),
			attribute.Int("stiffness.receiver_count", len(receivers)),
		))
	defer span.End()

	start := time.Now()
	val, err := t.next.SectsToSects(ctx, sources, receivers)
	t.finish(span, "sects_to_sects", start, val, err)
	return val, err
}

func (t *TracedCalculator) finish(span trace.Span, operation string, start time.Time, val float64, err error) {
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Float64("stiffness.value", val))
	}
	if t.metrics != nil {
		t.metrics.RecordLatency(operation, elapsed, map[string]string{"type": t.typeName})
	}
}
