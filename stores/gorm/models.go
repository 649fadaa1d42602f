//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	oa "github.com/courtedge/edgeauth"
)

// UserModel is the GORM model for users. Email is stored already normalized,
// so the unique index enforces case-insensitive uniqueness.
type UserModel struct {
	ID                  string    `gorm:"primaryKey;size:64"`
	Email               string    `gorm:"size:320;uniqueIndex"`
	Provider            string    `gorm:"size:32"`
	CompletedOnboarding bool      `gorm:"default:false"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *oa.User {
	return &oa.User{
		ID:                  m.ID,
		Email:               m.Email,
		Provider:            m.Provider,
		CompletedOnboarding: m.CompletedOnboarding,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// SessionModel is the GORM model for session records
type SessionModel struct {
	Token     string    `gorm:"primaryKey;size:128"`
	UserID    string    `gorm:"size:64;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToSession() *oa.Session {
	return &oa.Session{
		Token:     m.Token,
		UserID:    m.UserID,
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
}

func SessionToModel(s *oa.Session) *SessionModel {
	return &SessionModel{
		Token:     s.Token,
		UserID:    s.UserID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

// MagicLinkTokenModel is the GORM model for single-use sign-in tokens
type MagicLinkTokenModel struct {
	Token     string    `gorm:"primaryKey;size:128"`
	Email     string    `gorm:"size:320;index"`
	Consumed  bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

func (MagicLinkTokenModel) TableName() string {
	return "magic_link_tokens"
}

func (m *MagicLinkTokenModel) ToMagicLinkToken() *oa.MagicLinkToken {
	return &oa.MagicLinkToken{
		Token:     m.Token,
		Email:     m.Email,
		Consumed:  m.Consumed,
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
}

func MagicLinkTokenToModel(t *oa.MagicLinkToken) *MagicLinkTokenModel {
	return &MagicLinkTokenModel{
		Token:     t.Token,
		Email:     t.Email,
		Consumed:  t.Consumed,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
}
