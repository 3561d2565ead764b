package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/i18n"
	"github.com/MrEthical07/goReset/jwt"
	"github.com/MrEthical07/goReset/mailer"
	"github.com/MrEthical07/goReset/provider/gotrue"
	"github.com/MrEthical07/goReset/provider/local"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type resourceList []func() error

func (r resourceList) Close() error {
	var errs []error
	for i := len(r) - 1; i >= 0; i-- {
		if err := r[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildProvider returns the configured provider and the resources that must
// be released after the server stops.
func buildProvider(ctx context.Context, o *Options, catalog *i18n.Catalog, log zerolog.Logger) (goReset.Provider, resourceList, error) {
	switch o.Provider {
	case providerGoTrue:
		p, err := gotrue.New(gotrue.Config{URL: o.GoTrueURL, APIKey: o.GoTrueKey})
		return p, nil, err
	case providerLocal:
		return buildLocal(ctx, o, catalog, log)
	default:
		return nil, nil, fmt.Errorf("provider: unknown provider %q", o.Provider)
	}
}

func buildLocal(ctx context.Context, o *Options, catalog *i18n.Catalog, log zerolog.Logger) (goReset.Provider, resourceList, error) {
	var resources resourceList

	addr := o.RedisAddr
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-process redis: %w", err)
		}
		resources = append(resources, func() error { mr.Close(); return nil })
		addr = mr.Addr()
		log.Warn().Str("addr", addr).Msg("no redis-addr given, using in-process redis; state is lost on exit")
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
	resources = append(resources, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = resources.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", addr, err)
	}

	tokens, err := newTokenManager(o, log)
	if err != nil {
		_ = resources.Close()
		return nil, nil, err
	}

	m, err := newMailer(o, log)
	if err != nil {
		_ = resources.Close()
		return nil, nil, err
	}

	users, err := parseUsers(o.Users)
	if err != nil {
		_ = resources.Close()
		return nil, nil, err
	}

	p, err := local.New(local.Config{
		Locale:  o.Locale,
		Catalog: catalog,
	}, local.Deps{
		Redis:  rdb,
		Users:  users,
		Tokens: tokens,
		Mailer: m,
		Logger: &log,
	})
	if err != nil {
		_ = resources.Close()
		return nil, nil, err
	}
	return p, resources, nil
}

func newTokenManager(o *Options, log zerolog.Logger) (*jwt.Manager, error) {
	cfg := jwt.Config{
		TTL:    o.TokenTTL,
		Issuer: "goreset",
	}

	switch {
	case o.SigningKey == "":
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		log.Warn().Msg("no signing-key given, using an ephemeral ed25519 key; links die with the process")
		cfg.SigningMethod = jwt.MethodEd25519
		cfg.PrivateKey = priv
	default:
		if pem, err := os.ReadFile(o.SigningKey); err == nil {
			cfg.SigningMethod = jwt.MethodEd25519
			cfg.PrivateKey = pem
		} else {
			cfg.SigningMethod = jwt.MethodHS256
			cfg.PrivateKey = []byte(o.SigningKey)
		}
	}

	m, err := jwt.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("signing-key: %w", err)
	}
	return m, nil
}

// logMailer keeps mail in memory and logs every reset link, for development.
type logMailer struct {
	*mailer.Memory
	log zerolog.Logger
}

func (m logMailer) Send(ctx context.Context, msg mailer.Message) error {
	if err := m.Memory.Send(ctx, msg); err != nil {
		return err
	}
	m.log.Info().Str("to", msg.To.Address).Str("subject", msg.Subject).Str("body", msg.Text).Msg("mail not sent, no smtp-addr")
	return nil
}

func newMailer(o *Options, log zerolog.Logger) (mailer.Mailer, error) {
	if o.SMTPAddr == "" {
		return logMailer{Memory: mailer.NewMemory(), log: log.With().Str("component", "mailer").Logger()}, nil
	}
	return mailer.NewSMTP(mailer.SMTPConfig{
		Addr:     o.SMTPAddr,
		From:     o.SMTPFrom,
		Username: o.SMTPUser,
		Password: o.SMTPPassword,
	})
}

// parseUsers reads "id=email,id=email". A bare email is its own id.
func parseUsers(raw string) (*local.StaticUsers, error) {
	users := local.NewStaticUsers()
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, email, ok := strings.Cut(part, "=")
		if !ok {
			id, email = part, part
		}
		id, email = strings.TrimSpace(id), strings.TrimSpace(email)
		if id == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("users: bad entry %q", part)
		}
		users.Add(local.User{ID: id, Email: email})
	}
	return users, nil
}
