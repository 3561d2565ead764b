// Package validate checks raw form input before a reset request is submitted.
//
// # Rules
//
//   - required: empty or whitespace-only values are rejected.
//   - shape: a permissive address pattern (local part A-Z0-9._%+-, dotted
//     domain, alphabetic TLD of two or more letters, case-insensitive). A
//     domain containing ".." is also rejected.
//
// # What this package must NOT do
//
//   - Import goReset or touch flow state; callers decide what a failure means.
//   - Resolve DNS or otherwise check deliverability.
package validate
