// Package prometheus exposes Engine metrics as a prometheus.Collector.
//
// [NewExporter] reads an Engine's snapshot on every scrape. Counter names are
// prefixed authclient_ and suffixed _total; the request and refresh latency
// histograms are authclient_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register itself in the global Prometheus registry. Callers either
//     register the Exporter or mount [Exporter.Handler].
//   - Mutate engine state.
package prometheus
