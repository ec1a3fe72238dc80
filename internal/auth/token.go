package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL время жизни access токена
	DefaultTokenTTL = 24 * time.Hour
	// DefaultIssuer значение iss в каждом токене
	DefaultIssuer = "custadmin"
)

// Claims полезная нагрузка access токена
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Subject данные аккаунта, которые попадают в новый токен
type Subject struct {
	UserID   string
	Username string
	Email    string
	Role     string
}

// TokenIssuer подписывает и проверяет HS256 токены общим для процесса секретом
type TokenIssuer struct {
	now    func() time.Time
	issuer string
	secret []byte
	ttl    time.Duration
}

// TokenOption настраивает TokenIssuer
type TokenOption func(*TokenIssuer)

// WithIssuer переопределяет iss
func WithIssuer(issuer string) TokenOption {
	return func(t *TokenIssuer) {
		if issuer != "" {
			t.issuer = issuer
		}
	}
}

// WithTTL переопределяет время жизни токена
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenIssuer создает issuer. Секрет копируется и больше не меняется.
func NewTokenIssuer(secret []byte, opts ...TokenOption) *TokenIssuer {
	t := &TokenIssuer{
		secret: append([]byte(nil), secret...),
		issuer: DefaultIssuer,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TTL возвращает настроенное время жизни токена
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue создает подписанный токен для sub, истекающий через TTL
func (t *TokenIssuer) Issue(sub Subject) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		UserID:   sub.UserID,
		Username: sub.Username,
		Email:    sub.Email,
		Role:     sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   sub.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Verify разбирает токен и проверяет подпись, issuer и срок.
// Токен считается истекшим начиная с секунды exp.
// Ошибки совпадают с ErrTokenMalformed, ErrTokenSignature или ErrTokenExpired.
func (t *TokenIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) {
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)

	switch {
	case err == nil && parsed.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, wrap(ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, wrap(ErrTokenSignature, err)
	default:
		return nil, wrap(ErrTokenMalformed, err)
	}

	if claims.UserID == "" {
		return nil, wrap(ErrTokenMalformed, errors.New("userId claim is empty"))
	}

	return claims, nil
}
