// Package web serves the password-reset request form over HTTP.
//
// # Routes
//
//	GET  /forgot-password      render a new form instance (cookie goreset_form)
//	POST /forgot-password      submit the HTML form and re-render its snapshot
//	POST /api/password-reset   JSON {"form_id"?, "email"} -> envelope
//
// JSON responses use one envelope:
//
//	{"ok": bool, "data": Snapshot, "error": {"code", "message", "details"}}
//
// # Architecture boundaries
//
// Handlers translate HTTP into goReset.Form calls. The ambient origin is
// taken from the request (forwarding headers only when
// Config.App.TrustForwardedHeaders is set); flow decisions stay in the
// engine.
package web
