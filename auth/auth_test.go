package auth

import (
	"errors"
	"testing"
	"time"
)

func testManager() *Manager {
	return NewManager("test-secret", "test-pepper", time.Hour, "parlor-test")
}

func TestManager_IssueAndVerify(t *testing.T) {
	m := testManager()

	token, err := m.Issue("alice")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	username, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if username != "alice" {
		t.Errorf("Verify() username = %q, want %q", username, "alice")
	}
}

func TestManager_VerifyRejectsBadTokens(t *testing.T) {
	m := testManager()

	good, err := m.Issue("bob")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewManager("different-secret", "test-pepper", time.Hour, "parlor-test")
	foreign, err := other.Issue("bob")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not-a-jwt"},
		{"wrong secret", foreign},
		{"truncated token", good[:len(good)-10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", tt.name, err)
			}
		})
	}
}

func TestManager_VerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", "test-pepper", -time.Minute, "parlor-test")

	token, err := m.Issue("carol")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
}

func TestManager_PasswordHashing(t *testing.T) {
	m := testManager()

	hash, err := m.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("HashPassword() returned the plain password")
	}

	if err := m.VerifyPassword(hash, "hunter2"); err != nil {
		t.Errorf("VerifyPassword() with correct password error = %v", err)
	}
	if err := m.VerifyPassword(hash, "wrong"); err == nil {
		t.Error("VerifyPassword() with wrong password expected error, got nil")
	}
}

func TestManager_PepperChangesHashInput(t *testing.T) {
	m := testManager()
	peppered := NewManager("test-secret", "another-pepper", time.Hour, "parlor-test")

	hash, err := m.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if err := peppered.VerifyPassword(hash, "hunter2"); err == nil {
		t.Error("VerifyPassword() with different pepper expected error, got nil")
	}
}
