package local

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"html/template"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/i18n"
	"github.com/MrEthical07/goReset/internal/rate"
	"github.com/MrEthical07/goReset/internal/stores"
	"github.com/MrEthical07/goReset/jwt"
	"github.com/MrEthical07/goReset/mailer"
	"github.com/emersion/go-message/mail"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Message keys of the reset email.
const (
	KeyMailSubject = "mail.resetPassword.subject"
	KeyMailIntro   = "mail.resetPassword.intro"
	KeyMailAction  = "mail.resetPassword.action"
	KeyMailIgnore  = "mail.resetPassword.ignore"
)

var (
	ErrInvalidConfig = errors.New("local provider: invalid configuration")
	// ErrInvalidToken is returned by Check and Redeem for unknown, reused,
	// superseded or expired tokens.
	ErrInvalidToken = errors.New("local provider: invalid or expired reset token")
)

// Config tunes the provider. Zero values select the defaults noted per field.
type Config struct {
	// MaxRequests per Window, per email and per client IP. Default 3 per hour.
	MaxRequests int
	Window      time.Duration
	// DisableIPThrottle skips the per-IP budget.
	DisableIPThrottle bool
	// RedisPrefix namespaces all keys. Default "goreset".
	RedisPrefix string
	// EnumerationDelay is the upper bound of the random pause taken for
	// unknown addresses. Default 40ms; negative disables it.
	EnumerationDelay time.Duration
	// Locale selects the email language from Catalog.
	Locale  string
	Catalog *i18n.Catalog
}

// Deps are the collaborators the provider cannot build itself.
type Deps struct {
	Redis  redis.UniversalClient
	Users  UserLookup
	Tokens *jwt.Manager
	Mailer mailer.Mailer
	Logger *zerolog.Logger
}

// Provider implements goReset.Provider.
type Provider struct {
	users     UserLookup
	limiter   *rate.Limiter
	store     *stores.ResetTokenStore
	tokens    *jwt.Manager
	mailer    mailer.Mailer
	translate func(string) string
	delay     time.Duration
	logger    zerolog.Logger
}

var _ goReset.Provider = (*Provider)(nil)

func New(cfg Config, deps Deps) (*Provider, error) {
	if deps.Redis == nil || deps.Users == nil || deps.Tokens == nil || deps.Mailer == nil {
		return nil, fmt.Errorf("%w: redis, users, tokens and mailer are required", ErrInvalidConfig)
	}
	if cfg.MaxRequests < 0 || cfg.Window < 0 {
		return nil, fmt.Errorf("%w: negative throttle", ErrInvalidConfig)
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 3
	}
	if cfg.Window == 0 {
		cfg.Window = time.Hour
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = "goreset"
	}
	if cfg.EnumerationDelay == 0 {
		cfg.EnumerationDelay = 40 * time.Millisecond
	}

	catalog := cfg.Catalog
	if catalog == nil {
		var err error
		if catalog, err = i18n.Default(); err != nil {
			return nil, err
		}
	}

	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	return &Provider{
		users: deps.Users,
		limiter: rate.New(deps.Redis, rate.Config{
			EnableEmailThrottle: true,
			EnableIPThrottle:    !cfg.DisableIPThrottle,
			MaxRequests:         cfg.MaxRequests,
			Window:              cfg.Window,
			Prefix:              cfg.RedisPrefix + ":rl",
		}),
		store:     stores.NewResetTokenStore(deps.Redis, cfg.RedisPrefix+":tok"),
		tokens:    deps.Tokens,
		mailer:    deps.Mailer,
		translate: catalog.Func(cfg.Locale),
		delay:     cfg.EnumerationDelay,
		logger:    logger.With().Str("component", "provider.local").Logger(),
	}, nil
}

// RequestPasswordReset throttles, issues a token for a known account, and
// mails opts.RedirectTo with the token appended as the "token" query
// parameter. The client IP is taken from goReset.ClientIPFromContext.
func (p *Provider) RequestPasswordReset(ctx context.Context, email string, opts goReset.ResetOptions) error {
	link, err := url.Parse(opts.RedirectTo)
	if opts.RedirectTo == "" || err != nil || !link.IsAbs() {
		return &goReset.ProviderError{
			Status:  http.StatusBadRequest,
			Code:    "invalid_redirect",
			Message: "Invalid redirect URL",
			Err:     err,
		}
	}

	if err := p.limiter.CheckRequest(ctx, email, goReset.ClientIPFromContext(ctx)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return &goReset.ProviderError{
				Status:  http.StatusTooManyRequests,
				Code:    "over_email_send_rate_limit",
				Message: "Too many requests",
			}
		}
		return err
	}

	user, found, err := p.users.LookupByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("local provider: user lookup: %w", err)
	}
	if !found {
		p.logger.Debug().Msg("reset requested for unknown address")
		return sleepEnumerationDelay(ctx, p.delay)
	}

	token, claims, err := p.tokens.IssueReset(user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("local provider: issue token: %w", err)
	}

	record := &stores.ResetTokenRecord{
		UserID:    user.ID,
		TokenHash: sha256.Sum256([]byte(token)),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}
	if err := p.store.Save(ctx, claims.ID, record, p.tokens.TTL()); err != nil {
		return err
	}

	q := link.Query()
	q.Set("token", token)
	link.RawQuery = q.Encode()

	msg, err := p.compose(user, link.String())
	if err != nil {
		return err
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return &goReset.ProviderError{
			Status:  http.StatusInternalServerError,
			Code:    "unexpected_failure",
			Message: "Error sending recovery email",
			Err:     err,
		}
	}

	p.logger.Info().Str("user_id", user.ID).Str("token_id", claims.ID).Msg("reset link sent")
	return nil
}

// Redeem verifies token and consumes it. A token can be redeemed once; a
// newer token for the same account invalidates older ones.
func (p *Provider) Redeem(ctx context.Context, token string) (User, error) {
	claims, err := p.tokens.ParseReset(token)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	record, err := p.store.Consume(ctx, claims.ID, sha256.Sum256([]byte(token)))
	if err != nil {
		if errors.Is(err, stores.ErrTokenNotFound) || errors.Is(err, stores.ErrTokenMismatch) {
			return User{}, ErrInvalidToken
		}
		return User{}, err
	}
	if record.UserID != claims.Subject {
		return User{}, ErrInvalidToken
	}

	// The account owner proved control of the mailbox; give back the email budget.
	if err := p.limiter.Reset(ctx, claims.Email, ""); err != nil {
		p.logger.Warn().Err(err).Str("user_id", claims.Subject).Msg("reset throttle not cleared")
	}

	return User{ID: claims.Subject, Email: claims.Email}, nil
}

// Check reports the account a reset token belongs to without consuming it,
// so a change-password page can be shown before the token is redeemed.
func (p *Provider) Check(ctx context.Context, token string) (User, error) {
	claims, err := p.tokens.ParseReset(token)
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	record, err := p.store.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, stores.ErrTokenNotFound) {
			return User{}, ErrInvalidToken
		}
		return User{}, err
	}
	hash := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(hash[:], record.TokenHash[:]) != 1 || record.UserID != claims.Subject {
		return User{}, ErrInvalidToken
	}

	return User{ID: claims.Subject, Email: claims.Email}, nil
}

var mailHTML = template.Must(template.New("reset").Parse(`<!doctype html>
<html><body>
<p>{{.Intro}}</p>
<p><a href="{{.Link}}">{{.Action}}</a></p>
<p>{{.Ignore}}</p>
</body></html>
`))

func (p *Provider) compose(user User, link string) (mailer.Message, error) {
	data := struct {
		Intro, Action, Ignore, Link string
	}{
		Intro:  p.translate(KeyMailIntro),
		Action: p.translate(KeyMailAction),
		Ignore: p.translate(KeyMailIgnore),
		Link:   link,
	}

	var html bytes.Buffer
	if err := mailHTML.Execute(&html, data); err != nil {
		return mailer.Message{}, err
	}

	text := strings.Join([]string{data.Intro, "", data.Action + ": " + link, "", data.Ignore, ""}, "\n")

	return mailer.Message{
		To:      mail.Address{Address: user.Email},
		Subject: p.translate(KeyMailSubject),
		Text:    text,
		HTML:    html.String(),
	}, nil
}

func sleepEnumerationDelay(ctx context.Context, maxDelay time.Duration) error {
	if maxDelay <= 0 {
		return nil
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(maxDelay/time.Millisecond)+1))
	if err != nil {
		return err
	}

	timer := time.NewTimer(time.Duration(n.Int64()) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
