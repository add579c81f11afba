package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/freshkart/freshkart-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "freshkart-test",
		ExpirationMinutes: 10,
	}
}

func TestRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	raw, err := NewAccessToken(cfg, userID, "customer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseAccessToken(cfg, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != "customer" {
		t.Fatalf("role = %s, want customer", claims.Role)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	raw, err := NewAccessToken(cfg, uuid.New(), "customer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := cfg
	bad.Secret = "other-secret"
	if _, err := ParseAccessToken(bad, raw); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	cfg := testJWTConfig()
	raw, err := NewAccessToken(cfg, uuid.New(), "customer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := cfg
	other.Issuer = "someone-else"
	if _, err := ParseAccessToken(other, raw); err == nil {
		t.Fatal("expected issuer error")
	}
}

func TestNewAccessTokenRequiresSecret(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Secret = ""
	if _, err := NewAccessToken(cfg, uuid.New(), "customer"); err == nil {
		t.Fatal("expected error for missing secret")
	}
}
