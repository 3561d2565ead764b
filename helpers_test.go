package goReset

import (
	"context"
	"sync"
	"testing"
)

type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	emails []string
	opts   []ResetOptions
	fn     func(ctx context.Context, email string, opts ResetOptions) error
}

func (p *fakeProvider) RequestPasswordReset(ctx context.Context, email string, opts ResetOptions) error {
	p.mu.Lock()
	p.calls++
	p.emails = append(p.emails, email)
	p.opts = append(p.opts, opts)
	fn := p.fn
	p.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, email, opts)
}

func (p *fakeProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakeProvider) LastRedirect() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.opts) == 0 {
		return ""
	}
	return p.opts[len(p.opts)-1].RedirectTo
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func buildTestEngine(t *testing.T, cfg Config, p Provider, sink AuditSink) *Engine {
	t.Helper()

	b := New().WithConfig(cfg).WithProvider(p)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestForm(t *testing.T, engine *Engine) *Form {
	t.Helper()

	f, err := engine.NewForm()
	if err != nil {
		t.Fatalf("NewForm failed: %v", err)
	}
	return f
}
