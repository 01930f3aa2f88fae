package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ServiceMeta identifies the guarded call being instrumented.
type ServiceMeta struct {
	Service   string
	Operation string
}

// SpanName returns the span name for this call.
func (m ServiceMeta) SpanName() string {
	return "boundary.exec." + m.Service + "." + m.Operation
}

// Attributes returns the OpenTelemetry attributes for this call.
func (m ServiceMeta) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("guard.service", m.Service),
		attribute.String("guard.operation", m.Operation),
	}
}

// Tracer wraps an OpenTelemetry tracer with call-shaped helpers.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer from an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) *Tracer {
	return &Tracer{tracer: t}
}

// StartCall starts a span for a guarded call.
func (t *Tracer) StartCall(ctx context.Context, meta ServiceMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(meta.Attributes()...),
	)
}

// EndCall finalizes a call span with its outcome. The outcome string is
// recorded as an attribute ("success", "error", "rejected", "fallback").
func (t *Tracer) EndCall(span trace.Span, err error, outcome string) {
	span.SetAttributes(attribute.String("guard.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
