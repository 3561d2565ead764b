// Package middleware exposes HTTP middleware that carries request metadata
// into the context consumed by goReset.Engine.
//
// # Request info
//
//   - [ClientInfo] records the client IP and User-Agent with
//     goReset.WithClientIP and goReset.WithUserAgent.
//
// Providers read the IP back through goReset.ClientIPFromContext for
// per-IP throttling; the audit dispatcher copies both into events.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into context values. It does NOT
// implement the reset flow itself.
//
// # What this package must NOT do
//
//   - Read or mutate form state.
//   - Access Redis or the provider.
//   - Trust forwarding headers unless told to.
package middleware
