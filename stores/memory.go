// Package stores provides the in-memory AuthStore implementation, used by
// tests and by host apps that do not need persistence (dev servers, demos).
// The gorm subpackage has the Postgres-backed implementation.
package stores

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/courtedge/edgeauth"
)

// MemoryStore keeps users, sessions and magic-link tokens in process memory.
// Safe for concurrent use. All data is lost on restart.
type MemoryStore struct {
	mu sync.Mutex

	usersByID    map[string]*edgeauth.User
	usersByEmail map[string]*edgeauth.User
	sessions     map[string]*edgeauth.Session
	magicTokens  map[string]*edgeauth.MagicLinkToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usersByID:    map[string]*edgeauth.User{},
		usersByEmail: map[string]*edgeauth.User{},
		sessions:     map[string]*edgeauth.Session{},
		magicTokens:  map[string]*edgeauth.MagicLinkToken{},
	}
}

/////////////////////// User Store Methods

func (m *MemoryStore) GetUser(id string) (*edgeauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return nil, nil
	}
	out := *user
	return &out, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (*edgeauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByEmail[edgeauth.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	out := *user
	return &out, nil
}

func (m *MemoryStore) CreateUser(email, provider string) (*edgeauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = edgeauth.NormalizeEmail(email)
	if existing, ok := m.usersByEmail[email]; ok {
		out := *existing
		return &out, nil
	}
	now := time.Now()
	user := &edgeauth.User{
		ID:        uuid.NewString(),
		Email:     email,
		Provider:  provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[email] = user
	out := *user
	return &out, nil
}

func (m *MemoryStore) UpdateUser(id string, patch edgeauth.UserPatch) (*edgeauth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.usersByID[id]
	if !ok {
		return nil, nil
	}
	if patch.CompletedOnboarding != nil {
		user.CompletedOnboarding = *patch.CompletedOnboarding
	}
	if patch.Provider != nil {
		user.Provider = *patch.Provider
	}
	user.UpdatedAt = time.Now()
	out := *user
	return &out, nil
}

/////////////////////// Session Store Methods

func (m *MemoryStore) CreateSession(userID string, ttl time.Duration) (*edgeauth.Session, error) {
	session, err := edgeauth.NewSession(userID, ttl)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Token] = session
	out := *session
	return &out, nil
}

func (m *MemoryStore) GetSession(token string) (*edgeauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return nil, nil
	}
	out := *session
	return &out, nil
}

func (m *MemoryStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

/////////////////////// Magic Link Token Store Methods

func (m *MemoryStore) CreateMagicLinkToken(email string, ttl time.Duration) (*edgeauth.MagicLinkToken, error) {
	token, err := edgeauth.NewMagicLinkToken(email, ttl)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.magicTokens[token.Token] = token
	out := *token
	return &out, nil
}

func (m *MemoryStore) ConsumeMagicLinkToken(token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.magicTokens[token]
	if !ok {
		return "", edgeauth.ErrTokenNotFound
	}
	// Expired tokens stay unconsumed; validity is judged before the flip.
	if record.IsExpired(time.Now()) {
		return "", edgeauth.ErrTokenExpired
	}
	if record.Consumed {
		return "", edgeauth.ErrTokenAlreadyUsed
	}
	record.Consumed = true
	return record.Email, nil
}

var _ edgeauth.AuthStore = (*MemoryStore)(nil)
