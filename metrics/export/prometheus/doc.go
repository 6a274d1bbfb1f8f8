// Package prometheus exposes goPrereg engine metrics through
// github.com/prometheus/client_golang.
//
// [Collector] implements prometheus.Collector over an engine snapshot, so a
// scrape always sees one consistent point in time. Counter names are
// prereg_*_total; the backend latency histogram is
// prereg_backend_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global default registry. Callers pick the registry
//     or mount [Collector.Handler].
//   - Mutate engine state.
package prometheus
