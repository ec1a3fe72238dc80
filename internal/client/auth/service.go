// Package auth управляет сессией CLI: регистрация, вход, выход.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/custadmin/internal/client/storage"
	"github.com/iudanet/custadmin/pkg/api"
)

// ErrNotAuthenticated нет действующей сессии
var ErrNotAuthenticated = errors.New("not authenticated, please run 'custadmin-cli login' first")

// Authenticator часть API клиента, нужная сервису
type Authenticator interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
}

// Service предоставляет функции авторизации
type Service struct {
	api      Authenticator
	sessions storage.SessionStorage
	now      func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(apiClient Authenticator, sessions storage.SessionStorage) *Service {
	return &Service{
		api:      apiClient,
		sessions: sessions,
		now:      time.Now,
	}
}

// Register создает аккаунт и сохраняет полученную сессию
func (s *Service) Register(ctx context.Context, username, email, password string) (*storage.Session, error) {
	resp, err := s.api.Register(ctx, api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	return s.save(ctx, resp)
}

// Login выполняет вход и сохраняет сессию
func (s *Service) Login(ctx context.Context, username, password string) (*storage.Session, error) {
	resp, err := s.api.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return s.save(ctx, resp)
}

func (s *Service) save(ctx context.Context, resp *api.AuthResponse) (*storage.Session, error) {
	session := &storage.Session{
		Username:  resp.User.Username,
		UserID:    resp.User.ID,
		Role:      resp.User.Role,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// Logout удаляет локальную сессию. Сервер токены не отзывает.
func (s *Service) Logout(ctx context.Context) error {
	err := s.sessions.DeleteSession(ctx)
	if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Stored возвращает сохраненную сессию, даже истекшую
func (s *Service) Stored(ctx context.Context) (*storage.Session, error) {
	session, err := s.sessions.GetSession(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Current возвращает сессию, если токен еще не истек
func (s *Service) Current(ctx context.Context) (*storage.Session, error) {
	session, err := s.Stored(ctx)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, fmt.Errorf("session expired at %s: %w", session.ExpiresAt.Format(time.RFC3339), ErrNotAuthenticated)
	}
	return session, nil
}
