package goReset

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &captureSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) next(t *testing.T) AuditEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("expected audit event to be received")
	}
	return AuditEvent{}
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

type panicSink struct{}

func (panicSink) Emit(context.Context, AuditEvent) { panic("sink exploded") }

func auditConfig() Config {
	cfg := testConfig()
	cfg.App.URL = "https://app.example.com"
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 16
	cfg.Audit.DropIfFull = false
	return cfg
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := auditConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	engine := buildTestEngine(t, cfg, &fakeProvider{}, sink)
	f := newTestForm(t, engine)

	_, _ = f.Submit(context.Background(), FormInput{Email: "user@example.com"}, "")
	time.Sleep(30 * time.Millisecond)

	if sink.Count() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.Count())
	}
}

func TestAuditEnabledSinkReceivesEventWithFields(t *testing.T) {
	sink := newCaptureSink(8)
	engine := buildTestEngine(t, auditConfig(), &fakeProvider{}, sink)
	f := newTestForm(t, engine)

	ctx := WithUserAgent(WithClientIP(context.Background(), "198.51.100.33"), "test-agent/1.0")
	if _, err := f.Submit(ctx, FormInput{Email: "user@example.com"}, ""); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	ev := sink.next(t)
	if ev.EventType != auditEventSubmit {
		t.Fatalf("expected %q, got %q", auditEventSubmit, ev.EventType)
	}
	if ev.FormID != f.ID() {
		t.Fatalf("expected form id %q, got %q", f.ID(), ev.FormID)
	}
	if ev.IP != "198.51.100.33" || ev.UserAgent != "test-agent/1.0" {
		t.Fatalf("unexpected request metadata %q %q", ev.IP, ev.UserAgent)
	}
	if !ev.Success || ev.Reason != "ok" {
		t.Fatalf("expected successful ok event, got %v %q", ev.Success, ev.Reason)
	}
	if ev.Metadata["redirect_to"] != "https://app.example.com/change-password" {
		t.Fatalf("unexpected metadata %v", ev.Metadata)
	}
}

func TestAuditReasonsPerOutcome(t *testing.T) {
	cfg := auditConfig()
	cfg.App.URL = ""

	sink := newCaptureSink(8)
	provider := &fakeProvider{fn: func(context.Context, string, ResetOptions) error {
		return &ProviderError{Status: 429, Code: "over_email_send_rate_limit", Message: "Too many requests"}
	}}
	engine := buildTestEngine(t, cfg, provider, sink)
	f := newTestForm(t, engine)

	_, _ = f.Submit(context.Background(), FormInput{Email: ""}, "")
	if ev := sink.next(t); ev.Reason != "validation" || ev.Error != "email_required" {
		t.Fatalf("unexpected validation event %+v", ev)
	}

	_, _ = f.Submit(context.Background(), FormInput{Email: "user@example.com"}, "")
	if ev := sink.next(t); ev.Reason != "config" || ev.Error != "app_url_not_configured" {
		t.Fatalf("unexpected config event %+v", ev)
	}

	_, _ = f.Submit(context.Background(), FormInput{Email: "user@example.com"}, "https://app.example.com")
	ev := sink.next(t)
	if ev.Reason != "provider" || ev.Error != "provider_over_email_send_rate_limit" {
		t.Fatalf("unexpected provider event %+v", ev)
	}
}

func TestAuditBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	start := time.Now()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if dispatcher.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestAuditBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		dispatcher.Close()
	}()

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		dispatcher.Emit(context.Background(), AuditEvent{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestAuditDispatcherSurvivesPanickingSink(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
	}, panicSink{})

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
	dispatcher.Close()

	if got := dispatcher.SinkPanics(); got != 2 {
		t.Fatalf("expected 2 recovered sink panics, got %d", got)
	}
}

func TestEngineReportsAuditSinkPanics(t *testing.T) {
	engine := buildTestEngine(t, auditConfig(), &fakeProvider{}, panicSink{})
	f := newTestForm(t, engine)

	if _, err := f.Submit(context.Background(), FormInput{Email: "user@example.com"}, ""); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	engine.Close()

	if got := engine.AuditSinkPanics(); got != 1 {
		t.Fatalf("expected 1 sink panic, got %d", got)
	}
	if got := engine.AuditDropped(); got != 0 {
		t.Fatalf("panics must not count as drops, got %d", got)
	}
}

func TestAuditJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventSubmit,
		FormID:    "f1",
		IP:        "127.0.0.1",
		Success:   true,
		Reason:    "ok",
	})

	if !buf.Contains("reset_request.submit") {
		t.Fatal("expected JSON log line to contain event type")
	}
	if !buf.Contains("\"form_id\":\"f1\"") {
		t.Fatal("expected JSON log line to contain form id")
	}
}

func TestAuditLogSinkWritesStructuredFields(t *testing.T) {
	var out bytes.Buffer
	sink := NewLogSink(zerolog.New(&out))
	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventSubmit,
		FormID:    "f2",
		Reason:    "provider",
		Error:     "provider_error",
		Metadata:  map[string]string{"redirect_to": "https://app.example.com/change-password"},
	})

	line := out.String()
	for _, want := range []string{`"component":"audit"`, `"form_id":"f2"`, `"reason":"provider"`, `"redirect_to":"https://app.example.com/change-password"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestAuditDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	dispatcher := newAuditDispatcher(AuditConfig{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{})

	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e1"})
	dispatcher.Close()
	dispatcher.Close()
	dispatcher.Emit(context.Background(), AuditEvent{EventType: "e2"})
}

func TestAuditNoEmailInEvents(t *testing.T) {
	sink := newCaptureSink(8)
	provider := &fakeProvider{fn: func(_ context.Context, email string, _ ResetOptions) error {
		return NewProviderError(400, "cannot send to "+email)
	}}
	engine := buildTestEngine(t, auditConfig(), provider, sink)
	f := newTestForm(t, engine)

	const secret = "private.person@example.com"
	_, _ = f.Submit(context.Background(), FormInput{Email: secret}, "")
	_, _ = f.Submit(context.Background(), FormInput{Email: "private.person@"}, "")

	for i := 0; i < 2; i++ {
		ev := sink.next(t)
		if strings.Contains(ev.Error, "private.person") {
			t.Fatalf("email leaked in audit error field: %q", ev.Error)
		}
		for k, v := range ev.Metadata {
			if strings.Contains(k, "private.person") || strings.Contains(v, "private.person") {
				t.Fatalf("email leaked in audit metadata: %q=%q", k, v)
			}
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Contains(v string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Contains(string(b.buf), v)
}
