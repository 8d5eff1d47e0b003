package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService uses a fixed secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		ttl     time.Duration
		wantErr bool
	}{
		{name: "short secret", secret: "short", ttl: time.Hour, wantErr: true},
		{name: "zero ttl", secret: "this-is-16-chars", ttl: 0, wantErr: true},
		{name: "valid", secret: "this-is-16-chars", ttl: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenService(tt.secret, tt.ttl)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewTokenService() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && ts.TTL() != tt.ttl {
				t.Errorf("TTL() = %v, want %v", ts.TTL(), tt.ttl)
			}
		})
	}
}

// =========================================================================
// GENERATE / VALIDATE
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// header.payload.signature
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("token has %d dots, want 2", got)
	}
}

func TestGenerate_DifferentUsersGetDifferentTokens(t *testing.T) {
	ts := newTestTokenService(t)

	t1, _ := ts.Generate("user-1")
	t2, _ := ts.Generate("user-2")
	if t1 == t2 {
		t.Error("different users received identical tokens")
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("user-abc")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	userID, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if userID != "user-abc" {
		t.Errorf("Validate() = %q, want %q", userID, "user-abc")
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-1", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}
	if _, err := ts.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Generate("user-1")

	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)
	foreign, _ := other.Generate("user-1")

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"tampered":     good[:len(good)-2] + "xx",
		"wrong secret": foreign,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ts.Validate(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
