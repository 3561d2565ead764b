// Package goReset implements the "forgot password" request flow: it collects
// an email address, validates it, asks an authentication provider to send a
// reset link, and exposes the resulting UI state as a [Snapshot].
//
// The engine is built once through [Builder.Build] and is safe for concurrent
// use. Each rendered form is a [Form] with its own state machine:
//
//	Idle --submit(valid)--> Submitting
//	Submitting --no origin--> Failed("App URL not configured")
//	Submitting --provider ok--> Success (email cleared)
//	Submitting --provider error--> Failed(provider message | localized fallback)
//	Failed --submit(valid)--> Submitting
//
// Success is terminal for a form instance. Submitting is never entered twice
// concurrently for the same form.
//
// # Architecture boundaries
//
// goReset is the public surface. Validation, origin resolution, the
// submission sequence and the form registry live under internal/ and are not
// exported. Providers live in provider/..., HTTP handlers in web.
package goReset
