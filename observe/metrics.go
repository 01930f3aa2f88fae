package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CallMetrics records guarded-call outcomes on an OpenTelemetry meter.
type CallMetrics struct {
	calls     metric.Int64Counter
	errors    metric.Int64Counter
	rejected  metric.Int64Counter
	fallbacks metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewCallMetrics creates the call instruments on the given meter.
func NewCallMetrics(meter metric.Meter) (*CallMetrics, error) {
	calls, err := meter.Int64Counter("boundary.calls.total",
		metric.WithDescription("Total guarded calls attempted"))
	if err != nil {
		return nil, fmt.Errorf("failed to create calls counter: %w", err)
	}

	errorsC, err := meter.Int64Counter("boundary.calls.errors",
		metric.WithDescription("Guarded calls that returned an error"))
	if err != nil {
		return nil, fmt.Errorf("failed to create errors counter: %w", err)
	}

	rejected, err := meter.Int64Counter("boundary.calls.rejected",
		metric.WithDescription("Guarded calls rejected before execution"))
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected counter: %w", err)
	}

	fallbacks, err := meter.Int64Counter("boundary.calls.fallback",
		metric.WithDescription("Guarded calls answered by a fallback"))
	if err != nil {
		return nil, fmt.Errorf("failed to create fallback counter: %w", err)
	}

	duration, err := meter.Float64Histogram("boundary.call.duration_ms",
		metric.WithDescription("Guarded call duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &CallMetrics{
		calls:     calls,
		errors:    errorsC,
		rejected:  rejected,
		fallbacks: fallbacks,
		duration:  duration,
	}, nil
}

// RecordCall records a completed call and its duration.
func (m *CallMetrics) RecordCall(ctx context.Context, meta ServiceMeta, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(meta.Attributes()...)

	m.calls.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if err != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

// RecordRejection records a call that was rejected before executing.
func (m *CallMetrics) RecordRejection(ctx context.Context, meta ServiceMeta, reason string) {
	attrs := append(meta.Attributes(), attribute.String("guard.reject_reason", reason))
	m.rejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFallback records a call answered by its fallback.
func (m *CallMetrics) RecordFallback(ctx context.Context, meta ServiceMeta) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(meta.Attributes()...))
}
