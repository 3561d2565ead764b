package goReset

import (
	"context"
	"errors"
	"fmt"
	"sync"

	internalflows "github.com/MrEthical07/goReset/internal/flows"
	"github.com/MrEthical07/goReset/internal/validate"
)

var errSubmitPanic = errors.New("submission panicked")

// Form is one instance of the reset-request form and owns its FlowState.
//
// The mutex guards state only; it is released while the provider call runs.
type Form struct {
	id     string
	engine *Engine

	mu          sync.Mutex
	state       FlowState
	loading     bool
	email       string
	fieldErrors map[string]string
	formError   string
	failure     string
	closed      bool
}

// ID returns the opaque form identifier.
func (f *Form) ID() string {
	if f == nil {
		return ""
	}
	return f.id
}

// State returns the current flow state.
func (f *Form) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Snapshot returns a consistent copy of the form for rendering.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// Close discards the form. A submission still in flight finishes, but its
// result is not applied.
func (f *Form) Close() {
	if f == nil {
		return
	}
	f.markClosed()
	if f.engine != nil && f.engine.forms != nil {
		f.engine.forms.Delete(f.id)
	}
}

// Submit validates in and, when valid, asks the provider to send a reset
// link whose callback is derived from ambientOrigin (or the configured app
// URL when ambientOrigin is empty).
//
// The returned error is non-nil only when the submission was rejected before
// reaching Submitting: ErrEmailRequired, ErrEmailInvalid, ErrSubmitInFlight,
// ErrFlowComplete or ErrFormClosed. Provider and configuration failures are
// reported through the snapshot as StateFailed with FormError set. A form
// closed while the provider call ran also yields ErrFormClosed; the result
// is discarded and the form is left in StateIdle.
func (f *Form) Submit(ctx context.Context, in FormInput, ambientOrigin string) (snap Snapshot, err error) {
	if f == nil || f.engine == nil {
		return Snapshot{}, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	e := f.engine

	email, failure := validate.Email(in.Email)

	f.mu.Lock()
	switch {
	case f.closed:
		snap = f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrFormClosed
	case f.state == StateSubmitting:
		snap = f.snapshotLocked()
		f.mu.Unlock()
		e.metricInc(MetricSubmitInFlightRejected)
		return snap, ErrSubmitInFlight
	case f.state == StateSuccess:
		snap = f.snapshotLocked()
		f.mu.Unlock()
		return snap, ErrFlowComplete
	}

	f.email = in.Email
	if failure != validate.FailureNone {
		verr, key, metric := ErrEmailRequired, KeyEmailRequired, MetricValidationRequired
		if failure == validate.FailureInvalid {
			verr, key, metric = ErrEmailInvalid, KeyEmailInvalid, MetricValidationInvalid
		}
		f.fieldErrors = map[string]string{FieldEmail: e.Translate(key)}
		snap = f.snapshotLocked()
		f.mu.Unlock()

		e.metricInc(metric)
		e.emitAudit(ctx, f.id, auditEventSubmit, false, auditReasonValidation, verr, nil)
		return snap, verr
	}

	f.fieldErrors = nil
	f.formError = ""
	f.failure = ""
	f.state = StateSubmitting
	f.loading = true
	f.mu.Unlock()

	e.metricInc(MetricSubmitAccepted)

	var result internalflows.ResetRequestResult
	defer func() {
		if r := recover(); r != nil {
			result = internalflows.ResetRequestResult{
				Outcome: internalflows.ResetRequestUnexpectedError,
				Message: e.Translate(KeySendError),
				Err:     fmt.Errorf("%w: %v", errSubmitPanic, r),
			}
			e.metricInc(MetricUnexpectedError)
			e.logFailure(f.id, auditReasonPanic, result.Err)
			e.emitAudit(ctx, f.id, auditEventSubmit, false, auditReasonPanic, result.Err, nil)
		}
		snap, err = f.finish(result)
	}()

	result = internalflows.RunRequestReset(ctx, email, e.resetRequestFlowDeps(f.id, ambientOrigin))
	return snap, err
}

// finish leaves Submitting exactly once and always clears loading.
func (f *Form) finish(result internalflows.ResetRequestResult) (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loading = false
	if f.closed {
		// The result is dropped; the closed form never shows Submitting.
		f.state = StateIdle
		return f.snapshotLocked(), ErrFormClosed
	}

	switch result.Outcome {
	case internalflows.ResetRequestSucceeded:
		f.state = StateSuccess
		f.email = ""
		f.fieldErrors = nil
		f.formError = ""
	default:
		f.state = StateFailed
		msg := result.Message
		if msg == "" {
			msg = f.engine.Translate(KeySendError)
		}
		f.formError = msg
		f.failure = result.Outcome.String()
		if result.Outcome == internalflows.ResetRequestUnresolved {
			f.failure = internalflows.ResetRequestUnexpectedError.String()
		}
	}

	return f.snapshotLocked(), nil
}

func (f *Form) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:        f.id,
		State:     f.state,
		Loading:   f.loading,
		Email:     f.email,
		FormError: f.formError,
		Failure:   f.failure,
	}
	if len(f.fieldErrors) > 0 {
		s.FieldErrors = make(map[string]string, len(f.fieldErrors))
		for k, v := range f.fieldErrors {
			s.FieldErrors[k] = v
		}
	}
	if f.state == StateSuccess && f.engine != nil {
		s.Message = f.engine.Translate(KeySuccessMessage)
		s.LoginURL = f.engine.LoginURL()
	}
	return s
}

func (f *Form) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Form) markClosed() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}
