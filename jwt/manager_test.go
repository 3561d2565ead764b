package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func signClaims(t *testing.T, method gjwt.SigningMethod, key any, claims ResetClaims, kid string) string {
	t.Helper()
	tok := gjwt.NewWithClaims(method, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func validClaims(iss, aud string) ResetClaims {
	c := ResetClaims{Email: "user@example.com", RegisteredClaims: gjwt.RegisteredClaims{
		ID:        "jti-1",
		Subject:   "u1",
		Issuer:    iss,
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	if aud != "" {
		c.Audience = gjwt.ClaimStrings{aud}
	}
	return c
}

func TestIssueAndParseResetRoundTrip(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{TTL: 30 * time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, issued, err := m.IssueReset("u1", "user@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.ParseReset(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Fatalf("expected matching jti, got %q vs %q", claims.ID, issued.ID)
	}
	if claims.Subject != "u1" || claims.Email != "user@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	_, second, _ := m.IssueReset("u1", "user@example.com")
	if second.ID == issued.ID {
		t.Fatal("each token must get a unique jti")
	}
}

func TestParseResetRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token := signClaims(t, gjwt.SigningMethodHS256, []byte("secret-secret-secret-secret-secret"), validClaims("", ""), "")
	if _, err := m.ParseReset(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected wrong algorithm to be rejected, got %v", err)
	}
}

func TestParseResetIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "goreset",
		Audience:      "reset",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := m.ParseReset(signClaims(t, gjwt.SigningMethodEdDSA, priv, validClaims("other", "reset"), "")); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}
	if _, err := m.ParseReset(signClaims(t, gjwt.SigningMethodEdDSA, priv, validClaims("goreset", "other"), "")); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	within := validClaims("goreset", "reset")
	within.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-15 * time.Second))
	if _, err := m.ParseReset(signClaims(t, gjwt.SigningMethodEdDSA, priv, within, "")); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := validClaims("goreset", "reset")
	expired.ExpiresAt = gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute))
	if _, err := m.ParseReset(signClaims(t, gjwt.SigningMethodEdDSA, priv, expired, "")); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseResetRequiresJTIAndSubject(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: key})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	noJTI := validClaims("", "")
	noJTI.ID = ""
	if _, err := m.ParseReset(signClaims(t, gjwt.SigningMethodHS256, key, noJTI, "")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected missing jti to fail, got %v", err)
	}

	noExp := validClaims("", "")
	noExp.ExpiresAt = nil
	if _, err := m.ParseReset(signClaims(t, gjwt.SigningMethodHS256, key, noExp, "")); err == nil {
		t.Fatal("expected missing exp to fail")
	}
}

func TestParseResetUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub1},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	if _, err := m.ParseReset(signClaims(t, gjwt.SigningMethodEdDSA, priv1, validClaims("", ""), "k2")); err == nil {
		t.Fatal("expected unknown kid failure")
	}

	good := signClaims(t, gjwt.SigningMethodEdDSA, priv1, validClaims("", ""), "k1")
	if _, err := m.ParseReset(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.ParseReset(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestVerifyOnlyManagerCannotIssue(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, _, err := m.IssueReset("u1", "user@example.com"); !errors.Is(err, ErrNoSigningKey) {
		t.Fatalf("expected ErrNoSigningKey, got %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	for name, cfg := range map[string]Config{
		"zero ttl":       {SigningMethod: MethodHS256, PrivateKey: make([]byte, 32)},
		"short hs key":   {TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		"no ed keys":     {TTL: time.Minute, SigningMethod: MethodEd25519},
		"unknown":        {TTL: time.Minute, SigningMethod: "rs256"},
		"leeway too big": {TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: make([]byte, 32), Leeway: time.Hour},
	} {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
