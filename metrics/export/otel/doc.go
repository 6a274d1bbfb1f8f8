// Package otel bridges goPrereg engine metrics into OpenTelemetry.
//
// [NewExporter] registers one observable counter per engine counter and an
// observable gauge per latency histogram, with the cumulative bucket counts
// reported under an "le" attribute. Values are read from an engine snapshot
// inside a single callback, so one collection sees one point in time.
//
// # What this package must NOT do
//
//   - Configure a MeterProvider or exporter pipeline. Callers pass a Meter.
//   - Mutate engine state.
package otel
