package auth

import (
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, "campus_pay")

	token, expiresIn, err := m.Generate("user-1", "student")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if expiresIn != 60 {
		t.Fatalf("expected 60s lifetime, got %d", expiresIn)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "student" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", time.Minute, "campus_pay").Generate("user-1", "student")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewTokenManager("other", time.Minute, "campus_pay").Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, "campus_pay")
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }
	token, _, err := m.Generate("user-1", "student")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	m.now = time.Now
	if _, err := m.Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestTokenRejectsTampered(t *testing.T) {
	m := NewTokenManager("secret", time.Minute, "campus_pay")
	token, _, _ := m.Generate("user-1", "student")
	parts := strings.Split(token, ".")
	parts[1] = parts[1] + "x"
	if _, err := m.Validate(strings.Join(parts, ".")); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
