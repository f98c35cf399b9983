// Package otel binds loginguard engine metrics to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter
// and an Int64ObservableGauge per latency bucket. One callback reads
// [loginguard.Engine.MetricsSnapshot] on each collection cycle; nothing is
// observed while the engine has metrics disabled.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
