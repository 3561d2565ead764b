// Package flows contains the pure-function orchestrator behind Form.Submit.
//
// [RunRequestReset] accepts a typed dependency struct of functions (origin
// resolution, provider call, translation, audit, metrics, logging) and
// returns a [ResetRequestResult]. Keeping the flow free of engine types makes
// every branch testable with stubs.
//
// # Architecture boundaries
//
// The flow decides the outcome of one attempt. Form state, locking and the
// loading flag stay with the caller.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goReset (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
