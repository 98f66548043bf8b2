package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-stiffness/internal/ports"
)

type stubCalculator struct {
	val float64
	err error
}

var _ ports.ScalarCalculator = (*stubCalculator)(nil)

func (s *stubCalculator) SectToSect(context.Context, ports.Section, ports.Section) (float64, error) {
	return s.val, s.err
}

func (s *stubCalculator) SectsToSect(context.Context, []ports.Section, ports.Section) (float64, error) {
	return s.val, s.err
}

func (s *stubCalculator) SectsToSects(context.Context, []ports.Section, []ports.Section) (float64, error) {
	return s.val, s.err
}

type latencyRecorder struct {
	operations []string
}

var _ ports.MetricsCollector = (*latencyRecorder)(nil)

func (r *latencyRecorder) RecordLatency(operation string, _ time.Duration, _ map[string]string) {
	r.operations = append(r.operations, operation)
}
func (r *latencyRecorder) RecordCounter(string, float64, map[string]string) {}

func (r *latencyRecorder) RecordGauge(string, float64, map[string]string) {}

// TestTracedCalculator_Passthrough checks that the decorator forwards values
// and errors unchanged while recording one latency sample per operation.
func TestTracedCalculator_Passthrough(t *testing.T) {
	metrics := &latencyRecorder{}
	traced := NewTracedCalculator(&stubCalculator{val: 1.25}, metrics, "ΔCFF")
	ctx := context.Background()

	val, err := traced.SectToSect(ctx, ports.SectionID(1), ports.SectionID(0))
	require.NoError(t, err)
	assert.Equal(t, 1.25, val)

	val, err = traced.SectsToSect(ctx, []ports.Section{ports.SectionID(1)}, ports.SectionID(0))
	require.NoError(t, err)
	assert.Equal(t, 1.25, val)

	val, err = traced.SectsToSects(ctx, []ports.Section{ports.SectionID(1)}, []ports.Section{ports.SectionID(0)})
	require.NoError(t, err)
	assert.Equal(t, 1.25, val)

	assert.Equal(t, []string{"sect_to_sect", "sects_to_sect", "sects_to_sects"}, metrics.operations)
}

func TestTracedCalculator_ErrorAndNilMetrics(t *testing.T) {
	wantErr := errors.New("extraction failed")
	traced := NewTracedCalculator(&stubCalculator{err: wantErr}, nil, "ΔTau")

	_, err := traced.SectToSect(context.Background(), ports.SectionID(1), ports.SectionID(0))
	assert.ErrorIs(t, err, wantErr)
}
