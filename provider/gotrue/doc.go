// Package gotrue implements goReset.Provider against a GoTrue-compatible
// authentication server (the "/recover" endpoint).
//
// Error responses are decoded into *goReset.ProviderError so the server's
// message reaches the user unchanged. Transport failures and gateway errors
// (502, 503, 504) are retried with exponential backoff; every other response
// is final.
package gotrue
