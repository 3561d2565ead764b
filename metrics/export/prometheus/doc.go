// Package prometheus exposes goReset engine metrics as a prometheus.Collector.
//
// [NewCollector] reads [goReset.Engine.MetricsSnapshot] on every scrape.
// Counter names are goreset_*_total; the provider latency histogram is
// goreset_provider_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers register the
//     collector or mount [Collector.Handler].
//   - Mutate engine state.
package prometheus
