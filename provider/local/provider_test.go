package local

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/jwt"
	"github.com/MrEthical07/goReset/mailer"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const redirect = "https://app.example.com/change-password"

type fixture struct {
	provider *Provider
	mail     *mailer.Memory
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           30 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goreset-test",
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}

	if cfg.EnumerationDelay == 0 {
		cfg.EnumerationDelay = -1
	}
	mem := mailer.NewMemory()
	p, err := New(cfg, Deps{
		Redis:  rdb,
		Users:  NewStaticUsers(User{ID: "u1", Email: "Alice@Example.com"}),
		Tokens: tokens,
		Mailer: mem,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return fixture{provider: p, mail: mem, mr: mr}
}

func tokenFromMail(t *testing.T, msg mailer.Message) string {
	t.Helper()
	for _, line := range strings.Split(msg.Text, "\n") {
		i := strings.Index(line, "https://")
		if i < 0 {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(line[i:]))
		if err != nil {
			t.Fatalf("parse link: %v", err)
		}
		return u.Query().Get("token")
	}
	t.Fatalf("no link in mail body %q", msg.Text)
	return ""
}

func TestKnownUserReceivesLink(t *testing.T) {
	f := newFixture(t, Config{})

	if err := f.provider.RequestPasswordReset(context.Background(), "alice@example.com", goReset.ResetOptions{RedirectTo: redirect}); err != nil {
		t.Fatalf("request failed: %v", err)
	}

	msg, ok := f.mail.Last()
	if !ok {
		t.Fatal("expected an email")
	}
	if msg.To.Address != "Alice@Example.com" {
		t.Fatalf("unexpected recipient %q", msg.To.Address)
	}
	if !strings.Contains(msg.Text, redirect+"?token=") || !strings.Contains(msg.HTML, redirect+"?token=") {
		t.Fatalf("expected reset link in both bodies, got %q", msg.Text)
	}
	if msg.Subject == "" || msg.Subject == KeyMailSubject {
		t.Fatalf("expected translated subject, got %q", msg.Subject)
	}

	user, err := f.provider.Redeem(context.Background(), tokenFromMail(t, msg))
	if err != nil || user.ID != "u1" {
		t.Fatalf("unexpected redeem %+v %v", user, err)
	}
}

func TestUnknownUserReportsSuccessWithoutMail(t *testing.T) {
	f := newFixture(t, Config{})

	if err := f.provider.RequestPasswordReset(context.Background(), "nobody@example.com", goReset.ResetOptions{RedirectTo: redirect}); err != nil {
		t.Fatalf("unknown user must look like success, got %v", err)
	}
	if len(f.mail.Messages()) != 0 {
		t.Fatal("no email may be sent for unknown users")
	}
}

func TestThrottleReportsTooManyRequests(t *testing.T) {
	f := newFixture(t, Config{MaxRequests: 2, Window: time.Minute})
	ctx := goReset.WithClientIP(context.Background(), "203.0.113.9")

	for i := 0; i < 2; i++ {
		if err := f.provider.RequestPasswordReset(ctx, "alice@example.com", goReset.ResetOptions{RedirectTo: redirect}); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}

	err := f.provider.RequestPasswordReset(ctx, "alice@example.com", goReset.ResetOptions{RedirectTo: redirect})
	var pe *goReset.ProviderError
	if !errors.As(err, &pe) || pe.Status != 429 || pe.Message != "Too many requests" {
		t.Fatalf("expected 429 Too many requests, got %v", err)
	}

	// Same IP, different address: the per-IP budget is spent too.
	err = f.provider.RequestPasswordReset(ctx, "nobody@example.com", goReset.ResetOptions{RedirectTo: redirect})
	if msg, ok := goReset.ProviderMessage(err); !ok || msg != "Too many requests" {
		t.Fatalf("expected per-IP throttle, got %v", err)
	}

	f.mr.FastForward(2 * time.Minute)
	if err := f.provider.RequestPasswordReset(ctx, "alice@example.com", goReset.ResetOptions{RedirectTo: redirect}); err != nil {
		t.Fatalf("expected new window, got %v", err)
	}
}

func TestRedeemIsSingleUseAndSuperseded(t *testing.T) {
	f := newFixture(t, Config{MaxRequests: 10})
	ctx := context.Background()

	_ = f.provider.RequestPasswordReset(ctx, "alice@example.com", goReset.ResetOptions{RedirectTo: redirect})
	first, _ := f.mail.Last()
	_ = f.provider.RequestPasswordReset(ctx, "alice@example.com", goReset.ResetOptions{RedirectTo: redirect})
	second, _ := f.mail.Last()

	if _, err := f.provider.Redeem(ctx, tokenFromMail(t, first)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("superseded token must be rejected, got %v", err)
	}
	tok := tokenFromMail(t, second)
	if _, err := f.provider.Redeem(ctx, tok); err != nil {
		t.Fatalf("latest token must redeem, got %v", err)
	}
	if _, err := f.provider.Redeem(ctx, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token must be single use, got %v", err)
	}
	if _, err := f.provider.Redeem(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage must be rejected, got %v", err)
	}
}

func TestCheckLeavesTokenRedeemable(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	if err := f.provider.RequestPasswordReset(ctx, "alice@example.com", goReset.ResetOptions{RedirectTo: redirect}); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	msg, _ := f.mail.Last()
	tok := tokenFromMail(t, msg)

	for i := 0; i < 2; i++ {
		user, err := f.provider.Check(ctx, tok)
		if err != nil || user.ID != "u1" {
			t.Fatalf("check %d: user %+v err %v", i+1, user, err)
		}
	}
	if _, err := f.provider.Redeem(ctx, tok); err != nil {
		t.Fatalf("redeem after check failed: %v", err)
	}
	if _, err := f.provider.Check(ctx, tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("check after redeem must fail, got %v", err)
	}
	if _, err := f.provider.Check(ctx, "garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage must be rejected, got %v", err)
	}
}

func TestRedeemRestoresEmailBudget(t *testing.T) {
	f := newFixture(t, Config{MaxRequests: 2})
	ctx := context.Background()
	opts := goReset.ResetOptions{RedirectTo: redirect}

	for i := 0; i < 2; i++ {
		if err := f.provider.RequestPasswordReset(ctx, "alice@example.com", opts); err != nil {
			t.Fatalf("request %d failed: %v", i+1, err)
		}
	}
	var pe *goReset.ProviderError
	if err := f.provider.RequestPasswordReset(ctx, "alice@example.com", opts); !errors.As(err, &pe) || pe.Status != 429 {
		t.Fatalf("expected throttle, got %v", err)
	}

	msg, _ := f.mail.Last()
	if _, err := f.provider.Redeem(ctx, tokenFromMail(t, msg)); err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if err := f.provider.RequestPasswordReset(ctx, "alice@example.com", opts); err != nil {
		t.Fatalf("budget should be restored after redeem, got %v", err)
	}
}

func TestMailFailureIsProviderError(t *testing.T) {
	f := newFixture(t, Config{})
	f.mail.Err = errors.New("relay down")

	err := f.provider.RequestPasswordReset(context.Background(), "alice@example.com", goReset.ResetOptions{RedirectTo: redirect})
	if msg, ok := goReset.ProviderMessage(err); !ok || msg != "Error sending recovery email" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestInvalidRedirectRejected(t *testing.T) {
	f := newFixture(t, Config{})

	for _, r := range []string{"", "/relative/path", "::bad"} {
		err := f.provider.RequestPasswordReset(context.Background(), "alice@example.com", goReset.ResetOptions{RedirectTo: r})
		var pe *goReset.ProviderError
		if !errors.As(err, &pe) || pe.Status != 400 {
			t.Fatalf("%q: expected 400 ProviderError, got %v", r, err)
		}
	}
}

func TestRedisOutageIsUnexpected(t *testing.T) {
	f := newFixture(t, Config{})
	f.mr.Close()

	err := f.provider.RequestPasswordReset(context.Background(), "alice@example.com", goReset.ResetOptions{RedirectTo: redirect})
	if err == nil {
		t.Fatal("expected error with redis down")
	}
	if _, ok := goReset.ProviderMessage(err); ok {
		t.Fatalf("redis outage must not be a ProviderError, got %v", err)
	}
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Config{}, Deps{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
