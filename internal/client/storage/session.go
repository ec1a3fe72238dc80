package storage

import (
	"context"
	"time"
)

// SessionStorage хранит единственную сессию CLI
type SessionStorage interface {
	// SaveSession replaces the stored session
	SaveSession(ctx context.Context, session *Session) error

	// GetSession returns ErrSessionNotFound when nobody is logged in
	GetSession(ctx context.Context) (*Session, error)

	// DeleteSession removes the session (logout)
	DeleteSession(ctx context.Context) error
}

// Session is the result of a successful login. Токен хранится как есть,
// файл БД создается с правами 0600.
type Session struct {
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
}

// Expired reports whether the token is no longer usable at now
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
