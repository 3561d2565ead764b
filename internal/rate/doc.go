// Package rate provides the Redis-backed throttle that bounds how often a
// reset email may be requested.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Keys:
//   - <prefix>:e:<sha256(email)[:16]> per email address
//   - <prefix>:i:<ip>                 per client IP
package rate
