// Package local is a self-hosted goReset.Provider: it throttles requests in
// Redis, signs a single-use reset token, records it, and mails the link.
//
// Unknown addresses are reported as success so the response never reveals
// whether an account exists. Spent request budgets surface as
// *goReset.ProviderError with status 429 and message "Too many requests".
package local
