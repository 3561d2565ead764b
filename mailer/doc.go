// Package mailer composes and delivers the password-reset email.
//
// SMTP delivers through an SMTP relay with optional PLAIN authentication.
// Memory keeps messages in process and is meant for tests and local
// development.
package mailer
