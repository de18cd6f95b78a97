// Package otel binds Engine metrics to an OpenTelemetry Meter.
//
// [NewExporter] registers an Int64ObservableCounter for each Engine counter
// and an Int64ObservableGauge per histogram bucket. One callback reads the
// Engine's snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
