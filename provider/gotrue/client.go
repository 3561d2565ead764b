package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/cenkalti/backoff/v4"
)

const (
	defaultMaxRetries   = 2
	defaultInitialDelay = 200 * time.Millisecond
	maxErrorBodyBytes   = 64 << 10
)

// ErrInvalidConfig is returned by New for a missing or malformed URL.
var ErrInvalidConfig = errors.New("gotrue: invalid configuration")

// Config describes how to reach the authentication server.
type Config struct {
	// URL is the base URL of the auth API, e.g. https://xyz.supabase.co/auth/v1.
	URL string
	// APIKey is sent as the apikey header and as a bearer token.
	APIKey string
	// HTTPClient defaults to a client with a 10s timeout.
	HTTPClient *http.Client
	// MaxRetries bounds retries of transient failures. Negative disables retries.
	MaxRetries int
	// InitialDelay is the first backoff interval.
	InitialDelay time.Duration
}

// Client sends password-reset requests to GoTrue.
type Client struct {
	endpoint     string
	apiKey       string
	http         *http.Client
	maxRetries   int
	initialDelay time.Duration
}

var _ goReset.Provider = (*Client)(nil)

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	u, err := url.Parse(base)
	if base == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q", ErrInvalidConfig, cfg.URL)
	}

	c := &Client{
		endpoint:     base + "/recover",
		apiKey:       cfg.APIKey,
		http:         cfg.HTTPClient,
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.maxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.initialDelay <= 0 {
		c.initialDelay = defaultInitialDelay
	}
	return c, nil
}

type recoverRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset asks the server to email a recovery link that lands
// on opts.RedirectTo.
func (c *Client) RequestPasswordReset(ctx context.Context, email string, opts goReset.ResetOptions) error {
	body, err := json.Marshal(recoverRequest{Email: email})
	if err != nil {
		return err
	}

	target := c.endpoint
	if opts.RedirectTo != "" {
		target += "?" + url.Values{"redirect_to": {opts.RedirectTo}}.Encode()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialDelay
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		return c.send(ctx, target, body)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
}

// send performs one attempt. Errors wrapped in backoff.Permanent are not retried.
func (c *Client) send(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil
	}

	perr := decodeError(resp)
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return perr
	default:
		return backoff.Permanent(perr)
	}
}

// errorBody covers the error shapes GoTrue versions have used.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeError(resp *http.Response) *goReset.ProviderError {
	perr := &goReset.ProviderError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return perr
	}

	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return perr
	}

	perr.Message = firstNonEmpty(body.Msg, body.Message, body.ErrorDescription, body.Error)
	perr.Code = body.ErrorCode
	if perr.Code == "" {
		var s string
		if json.Unmarshal(body.Code, &s) == nil {
			perr.Code = s
		}
	}
	if perr.Code == "" && body.Error != "" && body.Error != perr.Message {
		perr.Code = body.Error
	}
	return perr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
