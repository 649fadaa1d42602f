//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	oa "github.com/courtedge/edgeauth"
)

// AutoMigrate runs database migrations for all edgeauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&SessionModel{},
		&MagicLinkTokenModel{},
	)
}

// Store implements oa.AuthStore on a GORM connection. Every infrastructure
// failure is wrapped in oa.ErrStoreUnavailable so callers can tell "store
// broke" apart from "record absent" (which is (nil, nil)).
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres, runs migrations and returns the store.
func Open(dsn string) (*Store, error) {
	// TranslateError maps driver duplicate-key errors onto gorm.ErrDuplicatedKey,
	// which CreateUser relies on to resolve concurrent first sign-ins.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", oa.ErrStoreUnavailable, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("%w: %v", oa.ErrStoreUnavailable, err)
	}
	return NewStore(db), nil
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", oa.ErrStoreUnavailable, err)
}

// =============================================================================
// UserStore
// =============================================================================

func (s *Store) GetUser(id string) (*oa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *Store) GetUserByEmail(email string) (*oa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", oa.NormalizeEmail(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *Store) CreateUser(email, provider string) (*oa.User, error) {
	model := &UserModel{
		ID:       uuid.NewString(),
		Email:    oa.NormalizeEmail(email),
		Provider: provider,
	}
	if err := s.db.Create(model).Error; err != nil {
		// A concurrent sign-in may have created the row; the unique index on
		// email makes that visible here, so fall back to the winner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return s.GetUserByEmail(email)
		}
		return nil, storeErr(err)
	}
	return model.ToUser(), nil
}

func (s *Store) UpdateUser(id string, patch oa.UserPatch) (*oa.User, error) {
	updates := map[string]any{}
	if patch.CompletedOnboarding != nil {
		updates["completed_onboarding"] = *patch.CompletedOnboarding
	}
	if patch.Provider != nil {
		updates["provider"] = *patch.Provider
	}
	if len(updates) > 0 {
		result := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, storeErr(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, nil
		}
	}
	return s.GetUser(id)
}

// =============================================================================
// SessionStore
// =============================================================================

func (s *Store) CreateSession(userID string, ttl time.Duration) (*oa.Session, error) {
	session, err := oa.NewSession(userID, ttl)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(SessionToModel(session)).Error; err != nil {
		return nil, storeErr(err)
	}
	return session, nil
}

func (s *Store) GetSession(token string) (*oa.Session, error) {
	var model SessionModel
	if err := s.db.First(&model, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storeErr(err)
	}
	return model.ToSession(), nil
}

func (s *Store) DeleteSession(token string) error {
	if err := s.db.Delete(&SessionModel{}, "token = ?", token).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

// CleanupExpiredSessions removes session rows past their expiry. The route
// guard already purges lazily; this is for a periodic sweep.
func (s *Store) CleanupExpiredSessions() error {
	if err := s.db.Delete(&SessionModel{}, "expires_at <= ?", time.Now()).Error; err != nil {
		return storeErr(err)
	}
	return nil
}

// =============================================================================
// MagicLinkStore
// =============================================================================

func (s *Store) CreateMagicLinkToken(email string, ttl time.Duration) (*oa.MagicLinkToken, error) {
	token, err := oa.NewMagicLinkToken(email, ttl)
	if err != nil {
		return nil, err
	}
	if err := s.db.Create(MagicLinkTokenToModel(token)).Error; err != nil {
		return nil, storeErr(err)
	}
	return token, nil
}

// ConsumeMagicLinkToken flips the consumed flag with a conditional update, so
// concurrent redemptions of the same token resolve to exactly one winner at
// the database level.
func (s *Store) ConsumeMagicLinkToken(token string) (string, error) {
	var model MagicLinkTokenModel
	if err := s.db.First(&model, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", oa.ErrTokenNotFound
		}
		return "", storeErr(err)
	}

	// Expiry is judged before the flip; an expired token is never consumed.
	if model.ToMagicLinkToken().IsExpired(time.Now()) {
		return "", oa.ErrTokenExpired
	}
	if model.Consumed {
		return "", oa.ErrTokenAlreadyUsed
	}

	result := s.db.Model(&MagicLinkTokenModel{}).
		Where("token = ? AND consumed = ?", token, false).
		Update("consumed", true)
	if result.Error != nil {
		return "", storeErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return "", oa.ErrTokenAlreadyUsed
	}
	return model.Email, nil
}

var _ oa.AuthStore = (*Store)(nil)
