package edgeauth

import "time"

// UserStore manages user accounts.
//
// Lookups return (nil, nil) when no record exists; a non-nil error always
// means the store itself failed and should wrap ErrStoreUnavailable.
type UserStore interface {
	// GetUser retrieves a user by id.
	GetUser(id string) (*User, error)

	// GetUserByEmail retrieves a user by normalized email.
	GetUserByEmail(email string) (*User, error)

	// CreateUser creates a new user with CompletedOnboarding false. The email
	// must be unique (case-insensitive); provider records which channel
	// established the account.
	CreateUser(email, provider string) (*User, error)

	// UpdateUser applies a partial update and returns the updated user.
	UpdateUser(id string, patch UserPatch) (*User, error)
}

// SessionStore manages server-side session records.
type SessionStore interface {
	// CreateSession creates a session for the user with expiresAt = now + ttl.
	CreateSession(userID string, ttl time.Duration) (*Session, error)

	// GetSession retrieves a session by token, expired or not. Callers decide
	// validity; the store only reports what it has.
	GetSession(token string) (*Session, error)

	// DeleteSession removes a session record. Deleting an absent token is not
	// an error.
	DeleteSession(token string) error
}

// MagicLinkStore manages single-use sign-in tokens.
type MagicLinkStore interface {
	// CreateMagicLinkToken creates a fresh unconsumed token for the address.
	// Outstanding tokens for the same address stay independently valid.
	CreateMagicLinkToken(email string, ttl time.Duration) (*MagicLinkToken, error)

	// ConsumeMagicLinkToken atomically marks the token consumed and returns
	// the bound email. At most one call ever succeeds for a given token, no
	// matter how many race; losers get ErrTokenAlreadyUsed. Expired tokens
	// fail with ErrTokenExpired and stay unconsumed; unknown tokens fail with
	// ErrTokenNotFound.
	ConsumeMagicLinkToken(token string) (email string, err error)
}

// AuthStore combines the store interfaces needed for the full sign-in and
// route-guard flow. Both the memory and the gorm implementations satisfy it.
type AuthStore interface {
	UserStore
	SessionStore
	MagicLinkStore
}
