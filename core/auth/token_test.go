package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("0123456789abcdef-secret", time.Hour)
	tok, err := m.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != "user-1" {
		t.Fatalf("user id = %q", id)
	}
}

func TestTokenRejectsWrongKeyAndExpiry(t *testing.T) {
	m := NewTokenManager("0123456789abcdef-secret", time.Hour)
	tok, _ := m.Issue("user-1")

	other := NewTokenManager("another-secret-value-123", time.Hour)
	if _, err := other.Verify(tok); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign key, got %v", err)
	}

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := m.Verify(tok); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	if _, err := m.Verify("garbage"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("seller123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("seller123", hash) {
		t.Fatalf("correct password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Fatalf("wrong password accepted")
	}
	if CheckPasswordHash("seller123", "not-a-hash") {
		t.Fatalf("malformed hash accepted")
	}
}
