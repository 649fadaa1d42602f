package edgeauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Default lifetimes for the two kinds of server-side records.
const (
	SessionTTLDefault   = 24 * time.Hour
	MagicLinkTTLDefault = 15 * time.Minute
)

// User is the aggregate root shared by sessions and magic-link tokens. A user
// is created on the first successful sign-in (either path) and is never
// deleted by this flow.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	// Provider that established the account: "google", "microsoft" or
	// "magiclink". Social sign-ins for an existing account must match it
	// unless an explicit linking step changed it.
	Provider string `json:"provider"`

	CompletedOnboarding bool      `json:"completed_onboarding"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// UserPatch describes a partial update to a user. Nil fields are left alone.
type UserPatch struct {
	CompletedOnboarding *bool
	Provider            *string
}

// Session is the server-recorded proof of authentication. The token is the
// opaque value handed to the client; a user may own many concurrent sessions.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session must be treated as invalid at the
// given instant. Expiry is inclusive: now == ExpiresAt is expired.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// MagicLinkToken is a single-use, time-limited credential bound to an email
// address. Consumption flips Consumed exactly once; every later attempt fails.
type MagicLinkToken struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Consumed  bool      `json:"consumed"`
}

func (t *MagicLinkToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// NewSession builds a session record with a fresh unguessable token. Stores
// call this so the invariants (positive TTL, non-empty owner) hold at creation
// time no matter which backend persists the record.
func NewSession(userID string, ttl time.Duration) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("session requires an owning user")
	}
	if ttl <= 0 {
		ttl = SessionTTLDefault
	}
	token, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// NewMagicLinkToken builds an unconsumed token bound to the given address.
func NewMagicLinkToken(email string, ttl time.Duration) (*MagicLinkToken, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("magic link requires an email address")
	}
	if ttl <= 0 {
		ttl = MagicLinkTTLDefault
	}
	token, err := GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &MagicLinkToken{
		Token:     token,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NormalizeEmail lowers and trims an address so email uniqueness is
// case-insensitive everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity is a verified authenticated identity produced by the credential
// verifier. It is a closed union: SocialIdentity or MagicLinkIdentity.
type Identity interface {
	// Email is the verified address, already normalized.
	Email() string

	// Provider names the channel that verified the identity: "google",
	// "microsoft" or "magiclink".
	Provider() string
}

// SocialIdentity is an identity asserted by an external OAuth2 provider.
type SocialIdentity struct {
	ProviderName string
	AccountID    string
	EmailAddress string

	// Optional profile data from the provider.
	Name    string
	Picture string
}

func (s SocialIdentity) Email() string    { return NormalizeEmail(s.EmailAddress) }
func (s SocialIdentity) Provider() string { return s.ProviderName }

// MagicLinkIdentity is an identity proven by redeeming a magic-link token.
type MagicLinkIdentity struct {
	EmailAddress string
}

func (m MagicLinkIdentity) Email() string    { return NormalizeEmail(m.EmailAddress) }
func (m MagicLinkIdentity) Provider() string { return ProviderMagicLink }

// Provider names used across the flow.
const (
	ProviderGoogle    = "google"
	ProviderMicrosoft = "microsoft"
	ProviderMagicLink = "magiclink"
)
