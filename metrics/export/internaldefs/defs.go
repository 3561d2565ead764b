package internaldefs

import (
	goReset "github.com/MrEthical07/goReset"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goReset.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goReset.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goReset.MetricFormCreated, Name: "goreset_form_created_total", Help: "Form instances created."},
	{ID: goReset.MetricSubmitAccepted, Name: "goreset_submit_accepted_total", Help: "Submissions that reached the provider stage."},
	{ID: goReset.MetricValidationRequired, Name: "goreset_validation_required_total", Help: "Submissions rejected for an empty email."},
	{ID: goReset.MetricValidationInvalid, Name: "goreset_validation_invalid_total", Help: "Submissions rejected for a malformed email."},
	{ID: goReset.MetricSubmitInFlightRejected, Name: "goreset_submit_in_flight_rejected_total", Help: "Submissions refused while another was in flight."},
	{ID: goReset.MetricSubmitSuccess, Name: "goreset_submit_success_total", Help: "Reset requests accepted by the provider."},
	{ID: goReset.MetricConfigError, Name: "goreset_config_error_total", Help: "Submissions aborted because no app URL was available."},
	{ID: goReset.MetricProviderError, Name: "goreset_provider_error_total", Help: "Typed provider failures."},
	{ID: goReset.MetricUnexpectedError, Name: "goreset_unexpected_error_total", Help: "Untyped failures and recovered panics."},
}

var HistogramDefs = []HistogramDef{
	{ID: goReset.MetricProviderLatency, Name: "goreset_provider_latency_seconds", Help: "Provider call latency."},
}

// HistogramBounds are the finite upper bounds, in seconds, of the engine
// latency buckets. The last engine bucket is +Inf.
var HistogramBounds = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
