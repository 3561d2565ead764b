// Package otel publishes goReset engine metrics through OpenTelemetry.
//
// [NewExporter] registers observable instruments shaped around the reset
// request flow rather than one instrument per engine counter:
//
//	goreset.forms.created             counter
//	goreset.submit.accepted           counter
//	goreset.submit.rejected           counter, reason=email_required|email_invalid|in_flight
//	goreset.submit.outcomes           counter, outcome=ok|config|provider|unexpected
//	goreset.provider.latency.buckets  gauge, le=<seconds>|+Inf (cumulative)
//	goreset.provider.latency.count    gauge
//	goreset.audit.dropped             counter
//
// The outcome values match [goReset.Snapshot.Failure]. Latency instruments
// report only when the engine records latency histograms. The caller owns the
// MeterProvider.
package otel
