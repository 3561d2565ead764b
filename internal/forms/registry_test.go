package forms

import (
	"errors"
	"testing"
	"time"
)

func TestRegistryPutGetDelete(t *testing.T) {
	r, err := New(Config{TTL: time.Minute, MaxForms: 100})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Close()

	if !r.Put("f1", "value") {
		t.Fatal("expected Put to be accepted")
	}
	got, ok := r.Get("f1")
	if !ok || got.(string) != "value" {
		t.Fatalf("Get = %v, %v", got, ok)
	}

	r.Delete("f1")
	if _, ok := r.Get("f1"); ok {
		t.Fatal("expected entry to be deleted")
	}
}

func TestRegistryRejectsEmptyID(t *testing.T) {
	r, err := New(Config{TTL: time.Minute, MaxForms: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer r.Close()

	if r.Put("", 1) {
		t.Fatal("empty id must be rejected")
	}
	if _, ok := r.Get(""); ok {
		t.Fatal("empty id lookup must miss")
	}
}

func TestRegistryInvalidConfig(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNilRegistryIsSafe(t *testing.T) {
	var r *Registry
	if r.Put("x", 1) {
		t.Fatal("nil registry must not accept entries")
	}
	if _, ok := r.Get("x"); ok {
		t.Fatal("nil registry must miss")
	}
	r.Delete("x")
	r.Close()
}
