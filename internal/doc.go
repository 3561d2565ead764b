// Package internal groups helpers that are private to goReset.
//
// # Sub-packages
//
//   - flows: the reset-request orchestrator behind Form.Submit
//   - forms: TTL-bounded registry of live form instances
//   - origin: callback origin resolution
//   - rate: Redis fixed-window throttle for the self-hosted provider
//   - stores: Redis store of issued reset tokens
//   - validate: email syntax check
//
// # What this package must NOT do
//
//   - Export types that appear in the public goReset API.
//   - Be imported by any package outside the goReset module.
package internal
