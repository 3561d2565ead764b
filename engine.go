package goReset

import (
	"context"
	"errors"
	"strings"
	"time"

	internalflows "github.com/MrEthical07/goReset/internal/flows"
	"github.com/MrEthical07/goReset/internal/forms"
	"github.com/MrEthical07/goReset/internal/origin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const auditEventSubmit = "reset_request.submit"

// Audit reasons. The flow outcomes reuse the labels of the submission sequence.
const (
	auditReasonValidation = "validation"
	auditReasonPanic      = "unexpected"
)

// Engine owns the live form instances and the collaborators every submission
// needs. It is safe for concurrent use.
type Engine struct {
	config    Config
	provider  Provider
	translate Translator
	resolver  origin.Resolver
	forms     *forms.Registry
	audit     *auditDispatcher
	metrics   *Metrics
	logger    zerolog.Logger
}

// NewForm creates a form instance in StateIdle and registers it under a fresh ID.
func (e *Engine) NewForm() (*Form, error) {
	if e == nil || e.provider == nil {
		return nil, ErrEngineNotReady
	}

	f := &Form{
		id:     uuid.NewString(),
		engine: e,
		state:  StateIdle,
	}
	if !e.forms.Put(f.id, f) {
		// The form still works for a single request; it just cannot be
		// looked up again.
		e.logger.Warn().Str("form_id", f.id).Msg("form registry rejected entry")
	}
	e.metricInc(MetricFormCreated)

	return f, nil
}

// Form returns the live form registered under id.
func (e *Engine) Form(id string) (*Form, error) {
	if e == nil || e.forms == nil {
		return nil, ErrEngineNotReady
	}
	v, ok := e.forms.Get(id)
	if !ok {
		return nil, ErrFormNotFound
	}
	f, ok := v.(*Form)
	if !ok || f.isClosed() {
		return nil, ErrFormNotFound
	}
	return f, nil
}

// CloseForm discards the form registered under id. Unknown IDs are ignored.
func (e *Engine) CloseForm(id string) {
	if e == nil || e.forms == nil {
		return
	}
	if v, ok := e.forms.Get(id); ok {
		if f, ok := v.(*Form); ok {
			f.markClosed()
		}
	}
	e.forms.Delete(id)
}

// Translate returns the localized text for key, or key itself when missing.
func (e *Engine) Translate(key string) string {
	if e == nil || e.translate == nil {
		return key
	}
	return safeTranslate(e.translate, key)
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return defaultConfig()
	}
	return cloneConfig(e.config)
}

// LoginURL is the target of the return-to-login and back-to-login links.
func (e *Engine) LoginURL() string {
	if e == nil {
		return defaultConfig().App.LoginPath
	}
	return e.config.App.LoginPath
}

// Close stops the audit worker and releases the form registry.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.forms != nil {
		e.forms.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditSinkPanics reports how many audit events were lost to a panicking sink.
func (e *Engine) AuditSinkPanics() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.SinkPanics()
}

// MetricsSnapshot returns a copy of all counters and the latency histogram.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	formID string,
	eventType string,
	success bool,
	reason string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		FormID:    formID,
		IP:        ClientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Reason:    reason,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = code
	}

	// A finished submission is audited even when the caller already went away.
	e.audit.Emit(context.WithoutCancel(ctx), event)
}

// auditErrorCode maps err to a stable code so audit logs never carry
// free-form provider text.
func auditErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	switch {
	case errors.Is(err, ErrEmailRequired):
		return "email_required"
	case errors.Is(err, ErrEmailInvalid):
		return "email_invalid"
	case errors.Is(err, ErrAppURLNotConfigured):
		return "app_url_not_configured"
	case errors.As(err, &pe):
		if pe.Code != "" {
			return "provider_" + pe.Code
		}
		return "provider_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "provider_timeout"
	default:
		return "internal_error"
	}
}

func (e *Engine) logFailure(formID, reason string, err error) {
	ev := e.logger.Error()
	var pe *ProviderError
	if errors.As(err, &pe) {
		ev = e.logger.Warn().Int("status", pe.Status)
	}
	ev.Err(err).
		Str("form_id", formID).
		Str("reason", reason).
		Msg("password reset request failed")
}

// providerMessage returns the provider's user-facing text as sent, trimmed.
// Views escape it on output.
func (e *Engine) providerMessage(err error) (string, bool) {
	msg, ok := ProviderMessage(err)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(msg), true
}

func (e *Engine) resetRequestFlowDeps(formID, ambientOrigin string) internalflows.ResetRequestDeps {
	var cfg Config
	if e != nil {
		cfg = e.config
	}

	deps := internalflows.ResetRequestDeps{
		CallbackPath:    cfg.App.CallbackPath,
		ProviderTimeout: cfg.Provider.Timeout,
		BuildCallback:   origin.CallbackURL,
		ProviderMessage: e.providerMessage,
		FallbackMessage: func() string {
			return e.Translate(KeySendError)
		},
		Now: time.Now,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		MetricObserve: func(id int, d time.Duration) {
			e.metricObserve(MetricID(id), d)
		},
		EmitAudit: func(ctx context.Context, event string, success bool, reason string, err error, metadata func() map[string]string) {
			e.emitAudit(ctx, formID, event, success, reason, err, metadata)
		},
		LogFailure: func(reason string, err error) {
			e.logFailure(formID, reason, err)
		},
		Metrics: internalflows.ResetRequestMetrics{
			Success:         int(MetricSubmitSuccess),
			ConfigError:     int(MetricConfigError),
			ProviderError:   int(MetricProviderError),
			UnexpectedError: int(MetricUnexpectedError),
			ProviderLatency: int(MetricProviderLatency),
		},
		Events: internalflows.ResetRequestEvents{
			Submit: auditEventSubmit,
		},
		Errors: internalflows.ResetRequestErrors{
			EngineNotReady:      ErrEngineNotReady,
			AppURLNotConfigured: ErrAppURLNotConfigured,
		},
	}

	if e != nil && e.provider != nil {
		resolver := e.resolver
		deps.ResolveOrigin = func() (string, bool) {
			return resolver.Resolve(ambientOrigin)
		}
		provider := e.provider
		deps.RequestReset = func(ctx context.Context, email, redirectTo string) error {
			return provider.RequestPasswordReset(ctx, email, ResetOptions{RedirectTo: redirectTo})
		}
	}

	return deps
}

func safeTranslate(t Translator, key string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = key
		}
	}()
	out = t(key)
	if out == "" {
		out = key
	}
	return out
}
