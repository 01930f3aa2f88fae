// Package observe provides the telemetry layer for guarded calls.
//
// It is a pure instrumentation library: no execution, no transport, no I/O
// beyond exporter setup. An Observer owns the OpenTelemetry tracer and meter
// providers plus a structured logger; Instrumentation bundles the surfaces a
// guarded component consumes per call (spans, counters, histogram, logs).
package observe
