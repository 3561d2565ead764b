package flows

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ResetRequestOutcome classifies how one submission attempt concluded.
type ResetRequestOutcome int

const (
	// ResetRequestUnresolved is the zero value: the attempt never reached a
	// conclusion. Callers treat it like an unexpected failure.
	ResetRequestUnresolved ResetRequestOutcome = iota
	ResetRequestSucceeded
	ResetRequestConfigError
	ResetRequestProviderError
	ResetRequestUnexpectedError
)

func (o ResetRequestOutcome) String() string {
	switch o {
	case ResetRequestSucceeded:
		return "ok"
	case ResetRequestConfigError:
		return "config"
	case ResetRequestProviderError:
		return "provider"
	case ResetRequestUnexpectedError:
		return "unexpected"
	default:
		return "unresolved"
	}
}

type ResetRequestMetrics struct {
	Success         int
	ConfigError     int
	ProviderError   int
	UnexpectedError int
	ProviderLatency int
}

type ResetRequestEvents struct {
	Submit string
}

type ResetRequestErrors struct {
	EngineNotReady      error
	AppURLNotConfigured error
}

// ResetRequestResult is the single outcome of one attempt. Message is the
// top-level text to show for failures and is empty on success.
type ResetRequestResult struct {
	Outcome    ResetRequestOutcome
	RedirectTo string
	Message    string
	Err        error
}

type ResetRequestDeps struct {
	CallbackPath    string
	ProviderTimeout time.Duration

	ResolveOrigin   func() (string, bool)
	BuildCallback   func(origin, path string) string
	RequestReset    func(ctx context.Context, email, redirectTo string) error
	ProviderMessage func(error) (string, bool)
	FallbackMessage func() string
	Now             func() time.Time

	MetricInc     func(int)
	MetricObserve func(int, time.Duration)
	EmitAudit     func(ctx context.Context, event string, success bool, reason string, err error, metadata func() map[string]string)
	LogFailure    func(reason string, err error)

	Metrics ResetRequestMetrics
	Events  ResetRequestEvents
	Errors  ResetRequestErrors
}

// RunRequestReset performs one submission attempt for an already validated
// email. It never panics on provider failures and always returns exactly one
// outcome.
func RunRequestReset(ctx context.Context, email string, deps ResetRequestDeps) ResetRequestResult {
	normalizeResetRequestDeps(&deps)

	if deps.ResolveOrigin == nil || deps.RequestReset == nil {
		return ResetRequestResult{
			Outcome: ResetRequestUnexpectedError,
			Message: deps.FallbackMessage(),
			Err:     deps.Errors.EngineNotReady,
		}
	}

	origin, ok := deps.ResolveOrigin()
	if !ok || origin == "" {
		err := deps.Errors.AppURLNotConfigured
		deps.MetricInc(deps.Metrics.ConfigError)
		deps.LogFailure(ResetRequestConfigError.String(), err)
		deps.EmitAudit(ctx, deps.Events.Submit, false, ResetRequestConfigError.String(), err, nil)
		return ResetRequestResult{
			Outcome: ResetRequestConfigError,
			Message: err.Error(),
			Err:     err,
		}
	}

	redirectTo := deps.BuildCallback(origin, deps.CallbackPath)

	// The attempt cannot be cancelled by the caller; only the provider timeout
	// bounds it.
	callCtx := context.WithoutCancel(ctx)
	if deps.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, deps.ProviderTimeout)
		defer cancel()
	}

	started := deps.Now()
	err := callProvider(callCtx, email, redirectTo, deps.RequestReset)
	deps.MetricObserve(deps.Metrics.ProviderLatency, deps.Now().Sub(started))

	if err == nil {
		deps.MetricInc(deps.Metrics.Success)
		deps.EmitAudit(ctx, deps.Events.Submit, true, ResetRequestSucceeded.String(), nil, func() map[string]string {
			return map[string]string{
				"redirect_to": redirectTo,
			}
		})
		return ResetRequestResult{
			Outcome:    ResetRequestSucceeded,
			RedirectTo: redirectTo,
		}
	}

	outcome := ResetRequestUnexpectedError
	message := deps.FallbackMessage()
	if msg, isProvider := deps.ProviderMessage(err); isProvider {
		outcome = ResetRequestProviderError
		if msg != "" {
			message = msg
		}
	}

	if outcome == ResetRequestProviderError {
		deps.MetricInc(deps.Metrics.ProviderError)
	} else {
		deps.MetricInc(deps.Metrics.UnexpectedError)
	}
	deps.LogFailure(outcome.String(), err)
	deps.EmitAudit(ctx, deps.Events.Submit, false, outcome.String(), err, func() map[string]string {
		return map[string]string{
			"redirect_to": redirectTo,
		}
	})

	return ResetRequestResult{
		Outcome:    outcome,
		RedirectTo: redirectTo,
		Message:    message,
		Err:        err,
	}
}

var errProviderPanic = errors.New("provider panicked")

func callProvider(
	ctx context.Context,
	email, redirectTo string,
	fn func(context.Context, string, string) error,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errProviderPanic, r)
		}
	}()
	return fn(ctx, email, redirectTo)
}

func normalizeResetRequestDeps(deps *ResetRequestDeps) {
	if deps.BuildCallback == nil {
		deps.BuildCallback = func(origin, path string) string { return origin + path }
	}
	if deps.ProviderMessage == nil {
		deps.ProviderMessage = func(error) (string, bool) { return "", false }
	}
	if deps.FallbackMessage == nil {
		deps.FallbackMessage = func() string { return "" }
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.MetricObserve == nil {
		deps.MetricObserve = func(int, time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.LogFailure == nil {
		deps.LogFailure = func(string, error) {}
	}
	if deps.Errors.EngineNotReady == nil {
		deps.Errors.EngineNotReady = errors.New("engine not initialized")
	}
	if deps.Errors.AppURLNotConfigured == nil {
		deps.Errors.AppURLNotConfigured = errors.New("App URL not configured")
	}
}
