// Package origin resolves the base URL embedded in reset callback links.
//
// The ambient origin of the current request wins when present (and allowed);
// otherwise the configured application URL is used. "No origin" is an
// ordinary result, reported through the boolean return, never a panic.
//
// # What this package must NOT do
//
//   - Import goReset.
//   - Build URLs through constructors that fail on a missing base; callers
//     get plain concatenation over values this package has already checked.
package origin
