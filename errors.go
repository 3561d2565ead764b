package goReset

import (
	"errors"
	"net/http"
)

var (
	// ErrEmailRequired is returned by Form.Submit when the email field is empty or whitespace.
	ErrEmailRequired = errors.New("email required")
	// ErrEmailInvalid is returned by Form.Submit when the email does not match the address pattern.
	ErrEmailInvalid = errors.New("email invalid")
	// ErrAppURLNotConfigured marks a submission that had neither an ambient origin nor a configured app URL.
	ErrAppURLNotConfigured = errors.New("App URL not configured")
	// ErrSubmitInFlight is returned when a form already has a submission in progress.
	ErrSubmitInFlight = errors.New("submission already in progress")
	// ErrFlowComplete is returned when submitting a form that already succeeded.
	ErrFlowComplete = errors.New("reset request already sent")
	// ErrFormClosed is returned when submitting a form that was closed.
	ErrFormClosed = errors.New("form closed")
	// ErrFormNotFound is returned when a form ID is unknown or expired.
	ErrFormNotFound = errors.New("form not found")
	// ErrProviderRequired is returned by Build when no provider was supplied.
	ErrProviderRequired = errors.New("reset provider required")
	// ErrEngineNotReady is returned when the engine was not created through Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ProviderError is the typed failure an authentication provider reports for a
// reset request. Message is shown to the user as-is when non-empty.
type ProviderError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = "provider error"
	}
	if e.Err != nil {
		return "reset provider: " + msg + ": " + e.Err.Error()
	}
	return "reset provider: " + msg
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewProviderError builds a ProviderError with the given status and message.
func NewProviderError(status int, message string) *ProviderError {
	return &ProviderError{Status: status, Message: message}
}

// ProviderMessage extracts the user-facing message from err. ok reports
// whether err is (or wraps) a ProviderError at all.
func ProviderMessage(err error) (message string, ok bool) {
	var pe *ProviderError
	if !errors.As(err, &pe) || pe == nil {
		return "", false
	}
	return pe.Message, true
}
