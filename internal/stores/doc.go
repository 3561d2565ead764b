// Package stores provides the Redis-backed record of issued password-reset
// tokens.
//
// # Design
//
// Each record is versioned, binary-encoded and stored with a TTL equal to
// the token lifetime. A per-user pointer key keeps at most one live token per
// account. Consume uses a WATCH/MULTI optimistic transaction with retry on
// contention, so a token is redeemable once. Only a SHA-256 of the token is
// stored and it is compared in constant time.
//
// # What this package must NOT do
//
//   - Generate or sign tokens (package jwt does that).
//   - Log or expose plaintext tokens.
package stores
