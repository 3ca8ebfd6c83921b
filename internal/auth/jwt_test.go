package auth

import (
	"testing"
	"time"

	"widget-gateway/internal/config"
)

func TestIssueAndVerifyServiceToken(t *testing.T) {
	m, err := NewManager(config.AuthConfig{
		JWTSecret: "secret",
		JWTIssuer: "issuer",
		TokenTTL:  15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}

	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "ops-cli", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok == "" {
		t.Fatalf("expected token string")
	}

	claims, err := m.Verify(tok, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ServiceID != "ops-cli" || claims.Role != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Minute})
	now := time.Unix(1700000000, 0).UTC()
	tok, err := m.Issue(now, "ops-cli", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(tok, now.Add(2*time.Hour)); err == nil {
		t.Fatalf("expected expiry error")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	a, _ := NewManager(config.AuthConfig{JWTSecret: "secret-a", TokenTTL: time.Minute})
	b, _ := NewManager(config.AuthConfig{JWTSecret: "secret-b", TokenTTL: time.Minute})

	now := time.Unix(1700000000, 0).UTC()
	tok, err := a.Issue(now, "ops-cli", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Verify(tok, now); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issue, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "other", TokenTTL: time.Minute})
	verify, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer", TokenTTL: time.Minute})

	now := time.Unix(1700000000, 0).UTC()
	tok, err := issue.Issue(now, "ops-cli", "admin")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verify.Verify(tok, now); err == nil {
		t.Fatalf("expected issuer error")
	}
}

func TestIssueRequiresIdentity(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Minute})
	if _, err := m.Issue(time.Now(), "", "admin"); err == nil {
		t.Fatalf("expected service_id error")
	}
	if _, err := m.Issue(time.Now(), "ops-cli", ""); err == nil {
		t.Fatalf("expected role error")
	}
}
