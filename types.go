package goReset

import "context"

// FlowState is the lifecycle position of one form instance.
//
// Exactly one state is active at a time. Transitions happen only inside
// Form.Submit.
type FlowState uint8

const (
	// StateIdle is the state of a freshly created form.
	StateIdle FlowState = iota
	// StateSubmitting is active while the provider call is in flight.
	StateSubmitting
	// StateSuccess is terminal for the form instance.
	StateSuccess
	// StateFailed allows another submission.
	StateFailed
)

func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON responses.
func (s FlowState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FieldEmail is the field key used in Snapshot.FieldErrors.
const FieldEmail = "email"

// FormInput is the raw user input of one submit.
type FormInput struct {
	Email string `json:"email"`
}

// Snapshot is a consistent read of a form, suitable for rendering.
//
// FieldErrors and FormError are independent slots: a field error can coexist
// with StateIdle or StateFailed, and FormError is only set in StateFailed.
type Snapshot struct {
	ID          string            `json:"form_id"`
	State       FlowState         `json:"state"`
	Loading     bool              `json:"loading"`
	Email       string            `json:"email"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	FormError   string            `json:"form_error,omitempty"`
	// Failure classifies FormError: "config", "provider" or "unexpected".
	Failure     string            `json:"failure,omitempty"`
	Message     string            `json:"message,omitempty"`
	LoginURL    string            `json:"login_url,omitempty"`
}

// ResetOptions carries per-request provider options.
type ResetOptions struct {
	// RedirectTo is the callback URL embedded in the reset email.
	RedirectTo string
}

// Provider is the authentication service that sends reset emails.
//
// Failures the user should see are returned as *ProviderError; any other
// error is treated as unexpected and replaced by a generic message.
type Provider interface {
	RequestPasswordReset(ctx context.Context, email string, opts ResetOptions) error
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, email string, opts ResetOptions) error

// RequestPasswordReset calls f.
func (f ProviderFunc) RequestPasswordReset(ctx context.Context, email string, opts ResetOptions) error {
	return f(ctx, email, opts)
}

// Translator maps a message key to localized text.
type Translator func(key string) string

// Message keys consumed by the flow and its views.
const (
	KeyEmailLabel       = "auth.emailLabel"
	KeyEmailRequired    = "auth.emailRequired"
	KeyEmailInvalid     = "auth.emailInvalid"
	KeyTitle            = "auth.resetPassword.title"
	KeyEmailPlaceholder = "auth.resetPassword.emailPlaceholder"
	KeySendButton       = "auth.resetPassword.sendButton"
	KeySendingButton    = "auth.resetPassword.sendingButton"
	KeySendError        = "auth.resetPassword.sendError"
	KeySuccessMessage   = "auth.resetPassword.successMessage"
	KeyReturnToLogin    = "auth.resetPassword.returnToLogin"
	KeyBackToLogin      = "auth.resetPassword.backToLogin"
	KeyLogo             = "common.logo"
)
