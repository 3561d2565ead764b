package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/internal/flows"
	"github.com/MrEthical07/goReset/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names.
const (
	NameFormsCreated    = "goreset.forms.created"
	NameSubmitAccepted  = "goreset.submit.accepted"
	NameSubmitRejected  = "goreset.submit.rejected"
	NameSubmitOutcomes  = "goreset.submit.outcomes"
	NameLatencyBuckets  = "goreset.provider.latency.buckets"
	NameLatencyCount    = "goreset.provider.latency.count"
	NameAuditDropped    = "goreset.audit.dropped"
	AttrOutcome         = "outcome"
	AttrRejectionReason = "reason"
	AttrBucketBound     = "le"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goReset.MetricsSnapshot
	AuditDropped() uint64
}

// series is one engine counter observed under a fixed attribute set.
type series struct {
	id    goReset.MetricID
	attrs metric.ObserveOption
}

func labeled(id goReset.MetricID, key, value string) series {
	return series{id: id, attrs: metric.WithAttributes(attribute.String(key, value))}
}

// outcomeSeries splits terminal submissions by the same labels the form
// reports in Snapshot.Failure ("ok" for success).
var outcomeSeries = []series{
	labeled(goReset.MetricSubmitSuccess, AttrOutcome, flows.ResetRequestSucceeded.String()),
	labeled(goReset.MetricConfigError, AttrOutcome, flows.ResetRequestConfigError.String()),
	labeled(goReset.MetricProviderError, AttrOutcome, flows.ResetRequestProviderError.String()),
	labeled(goReset.MetricUnexpectedError, AttrOutcome, flows.ResetRequestUnexpectedError.String()),
}

// rejectionSeries covers submits that never reached the provider.
var rejectionSeries = []series{
	labeled(goReset.MetricValidationRequired, AttrRejectionReason, "email_required"),
	labeled(goReset.MetricValidationInvalid, AttrRejectionReason, "email_invalid"),
	labeled(goReset.MetricSubmitInFlightRejected, AttrRejectionReason, "in_flight"),
}

// Exporter publishes the engine's reset-request metrics as OTel observable
// instruments. One callback reads one snapshot per collection, so the
// outcome split always adds up to the same snapshot's totals.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	created  metric.Int64ObservableCounter
	accepted metric.Int64ObservableCounter
	rejected metric.Int64ObservableCounter
	outcomes metric.Int64ObservableCounter
	buckets  metric.Int64ObservableGauge
	count    metric.Int64ObservableGauge
	dropped  metric.Int64ObservableCounter

	bucketAttrs []metric.ObserveOption
}

func NewExporter(meter metric.Meter, engine *goReset.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var err error

	counters := []struct {
		dst  *metric.Int64ObservableCounter
		name string
		desc string
		unit string
	}{
		{&e.created, NameFormsCreated, "Reset request forms handed out.", "{form}"},
		{&e.accepted, NameSubmitAccepted, "Submissions that passed validation and started a provider call.", "{submission}"},
		{&e.rejected, NameSubmitRejected, "Submissions refused before the provider, by reason.", "{submission}"},
		{&e.outcomes, NameSubmitOutcomes, "Finished submissions, by outcome.", "{submission}"},
		{&e.dropped, NameAuditDropped, "Audit events dropped under dispatcher backpressure.", "{event}"},
	}
	for _, c := range counters {
		*c.dst, err = meter.Int64ObservableCounter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", c.name, err)
		}
	}

	e.buckets, err = meter.Int64ObservableGauge(NameLatencyBuckets,
		metric.WithDescription("Provider calls at or under each latency bound, cumulative."),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", NameLatencyBuckets, err)
	}
	e.count, err = meter.Int64ObservableGauge(NameLatencyCount,
		metric.WithDescription("Provider calls timed."),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, fmt.Errorf("create gauge %s: %w", NameLatencyCount, err)
	}

	e.bucketAttrs = make([]metric.ObserveOption, 0, len(internaldefs.HistogramBounds)+1)
	for _, bound := range internaldefs.HistogramBounds {
		le := strconv.FormatFloat(bound, 'g', -1, 64)
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String(AttrBucketBound, le)))
	}
	e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(attribute.String(AttrBucketBound, "+Inf")))

	e.registration, err = meter.RegisterCallback(e.observe,
		e.created, e.accepted, e.rejected, e.outcomes, e.buckets, e.count, e.dropped)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	o.ObserveInt64(e.created, int64(snap.Counters[goReset.MetricFormCreated]))
	o.ObserveInt64(e.accepted, int64(snap.Counters[goReset.MetricSubmitAccepted]))
	for _, s := range rejectionSeries {
		o.ObserveInt64(e.rejected, int64(snap.Counters[s.id]), s.attrs)
	}
	for _, s := range outcomeSeries {
		o.ObserveInt64(e.outcomes, int64(snap.Counters[s.id]), s.attrs)
	}

	// Latency is only present with EnableLatencyHistograms.
	if raw, ok := snap.Histograms[goReset.MetricProviderLatency]; ok {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, attrs := range e.bucketAttrs {
			o.ObserveInt64(e.buckets, int64(cumulative[i]), attrs)
		}
		o.ObserveInt64(e.count, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.dropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the callback; instruments stay with the meter.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
