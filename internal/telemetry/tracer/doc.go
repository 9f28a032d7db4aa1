// Package tracer sets up OpenTelemetry tracing.
//
// Tracing is opt-in. When disabled, the global no-op provider stays in
// place and instrumented code (registry spans) costs almost nothing.
package tracer
