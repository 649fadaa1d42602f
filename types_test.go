package edgeauth

import (
	"testing"
	"time"
)

func TestGenerateSecureToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateSecureToken()
		if err != nil {
			t.Fatalf("GenerateSecureToken: %v", err)
		}
		if len(token) != 64 {
			t.Fatalf("expected 64 hex chars, got %d", len(token))
		}
		if seen[token] {
			t.Fatalf("duplicate token generated: %s", token)
		}
		seen[token] = true
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Referee@Example.COM", "referee@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"already@example.com", "already@example.com"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSession(t *testing.T) {
	t.Run("requires an owner", func(t *testing.T) {
		if _, err := NewSession("", time.Hour); err == nil {
			t.Error("expected error for empty user id")
		}
	})

	t.Run("defaults the TTL", func(t *testing.T) {
		session, err := NewSession("u1", 0)
		if err != nil {
			t.Fatal(err)
		}
		if got := session.ExpiresAt.Sub(session.CreatedAt); got != SessionTTLDefault {
			t.Errorf("expected default 24h TTL, got %v", got)
		}
	})
}

func TestNewMagicLinkToken(t *testing.T) {
	t.Run("normalizes and binds the email", func(t *testing.T) {
		token, err := NewMagicLinkToken("Ref@Example.Com", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if token.Email != "ref@example.com" {
			t.Errorf("expected normalized email, got %q", token.Email)
		}
		if token.Consumed {
			t.Error("fresh tokens start unconsumed")
		}
	})

	t.Run("requires an email", func(t *testing.T) {
		if _, err := NewMagicLinkToken("  ", time.Minute); err == nil {
			t.Error("expected error for empty email")
		}
	})
}

func TestMagicLinkTokenExpiry(t *testing.T) {
	expiry := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	token := &MagicLinkToken{Token: "t", Email: "a@b.com", ExpiresAt: expiry}

	// Unlike sessions, the boundary instant is still valid: expiry means
	// strictly past expiresAt.
	if token.IsExpired(expiry) {
		t.Error("token should still be valid exactly at expiry")
	}
	if !token.IsExpired(expiry.Add(time.Nanosecond)) {
		t.Error("token should be expired after expiry")
	}
}
