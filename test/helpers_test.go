//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	goReset "github.com/MrEthical07/goReset"
	"github.com/MrEthical07/goReset/jwt"
	"github.com/MrEthical07/goReset/mailer"
	"github.com/MrEthical07/goReset/provider/local"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stack struct {
	engine   *goReset.Engine
	provider *local.Provider
	outbox   *mailer.Memory
	mr       *miniredis.Miniredis
	audit    *goReset.ChannelSink
}

func newIntegrationStack(t *testing.T, mutate func(*goReset.Config)) *stack {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           15 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("integration-secret-integration-secret"),
	})
	if err != nil {
		t.Fatalf("jwt manager failed: %v", err)
	}

	outbox := mailer.NewMemory()
	provider, err := local.New(local.Config{MaxRequests: 3, EnumerationDelay: -1}, local.Deps{
		Redis:  rdb,
		Users:  local.NewStaticUsers(local.User{ID: "user-1", Email: "alice@example.com"}),
		Tokens: tokens,
		Mailer: outbox,
	})
	if err != nil {
		t.Fatalf("provider failed: %v", err)
	}

	cfg := goReset.DefaultConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}
	audit := goReset.NewChannelSink(64)

	engine, err := goReset.New().WithConfig(cfg).WithProvider(provider).WithAuditSink(audit).Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})

	return &stack{engine: engine, provider: provider, outbox: outbox, mr: mr, audit: audit}
}
