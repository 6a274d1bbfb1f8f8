package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"strings"
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

func TestSignAndParseEd25519(t *testing.T) {
	pub, priv := newEdKeys(t)
	signer, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		Issuer:        "prereg",
		Audience:      "backend",
		KeyID:         "k1",
		TTL:           time.Minute,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	verifier, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PublicKey:     pub,
		Issuer:        "prereg",
		Audience:      "backend",
		KeyID:         "k1",
		TTL:           time.Minute,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := signer.Sign("alice@example.com", "send_code")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := verifier.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "alice@example.com" || claims.Op != "send_code" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := verifier.Sign("x", "y"); err == nil {
		t.Fatal("verify-only manager must not sign")
	}
}

func TestSignUsesUniqueJTI(t *testing.T) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte(strings.Repeat("k", 32)), TTL: time.Minute})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	a, _ := m.Sign("a@example.com", "send_code")
	b, _ := m.Sign("a@example.com", "send_code")
	ca, err := m.Parse(a)
	if err != nil {
		t.Fatalf("parse a: %v", err)
	}
	cb, err := m.Parse(b)
	if err != nil {
		t.Fatalf("parse b: %v", err)
	}
	if ca.ID == cb.ID {
		t.Fatal("expected distinct jti values")
	}
}

func TestParseRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PublicKey: pub, TTL: time.Minute})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AssertionClaims{RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.Parse(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseRejectsIssuerAudienceAndExpiry(t *testing.T) {
	secret := []byte(strings.Repeat("s", 32))
	now := time.Unix(1700000000, 0)
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    secret,
		Issuer:        "prereg",
		Audience:      "backend",
		TTL:           time.Minute,
		Now:           func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	sign := func(c AssertionClaims) string {
		s, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, c).SignedString(secret)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	base := func() AssertionClaims {
		return AssertionClaims{RegisteredClaims: gjwt.RegisteredClaims{
			Issuer:    "prereg",
			Audience:  gjwt.ClaimStrings{"backend"},
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(now.Add(time.Minute)),
		}}
	}

	if _, err := m.Parse(sign(base())); err != nil {
		t.Fatalf("expected valid token: %v", err)
	}

	wrongIssuer := base()
	wrongIssuer.Issuer = "other"
	if _, err := m.Parse(sign(wrongIssuer)); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	wrongAudience := base()
	wrongAudience.Audience = gjwt.ClaimStrings{"other"}
	if _, err := m.Parse(sign(wrongAudience)); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	expired := base()
	expired.ExpiresAt = gjwt.NewNumericDate(now.Add(-time.Second))
	if _, err := m.Parse(sign(expired)); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noExp := base()
	noExp.ExpiresAt = nil
	if _, err := m.Parse(sign(noExp)); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestParseRejectsUnknownKid(t *testing.T) {
	secret := []byte(strings.Repeat("s", 32))
	signer, _ := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: secret, KeyID: "a", TTL: time.Minute})
	verifier, _ := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: secret, KeyID: "b", TTL: time.Minute})

	token, err := signer.Sign("a@example.com", "verify_code")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Parse(token); err == nil {
		t.Fatal("expected kid mismatch to fail")
	}
}

func TestNewManagerValidation(t *testing.T) {
	cases := []Config{
		{SigningMethod: MethodHS256, TTL: time.Minute},
		{SigningMethod: MethodHS256, PrivateKey: []byte("k"), TTL: 0},
		{SigningMethod: MethodHS256, PrivateKey: []byte("k"), TTL: time.Minute, Leeway: 5 * time.Minute},
		{SigningMethod: MethodEd25519, TTL: time.Minute},
		{SigningMethod: MethodEd25519, PrivateKey: []byte("short"), TTL: time.Minute},
		{SigningMethod: "rs256", PrivateKey: []byte("k"), TTL: time.Minute},
	}
	for i, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestDecodeKey(t *testing.T) {
	_, priv := newEdKeys(t)
	seed := priv.Seed()

	b, err := DecodeKey(MethodEd25519, base64.StdEncoding.EncodeToString(seed))
	if err != nil || len(b) != ed25519.SeedSize {
		t.Fatalf("expected seed bytes, got %d, %v", len(b), err)
	}
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: b, TTL: time.Minute})
	if err != nil {
		t.Fatalf("seed key should be accepted: %v", err)
	}
	if _, err := m.Sign("a@example.com", "send_code"); err != nil {
		t.Fatalf("sign with seed: %v", err)
	}

	raw, err := DecodeKey(MethodHS256, "plain-secret")
	if err != nil || string(raw) != "plain-secret" {
		t.Fatalf("hs256 keys are raw secrets, got %q, %v", raw, err)
	}
	if _, err := DecodeKey(MethodEd25519, "%%%"); err == nil {
		t.Fatal("expected garbage key to fail")
	}
	if _, err := DecodeKey(MethodEd25519, " "); err == nil {
		t.Fatal("expected empty key to fail")
	}
}
