// Package forms keeps live form instances addressable by ID for a bounded
// time. It stores opaque values; goReset decides what a form is.
//
// Entries expire after the configured TTL. An evicted or expired form is
// simply gone, the same as a page that was navigated away from.
package forms
