package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// APIKeyPrefix отмечает ключи, выданные этим сервисом
	APIKeyPrefix = "cak_"
	// apiKeyBytes объем случайных данных в ключе (256 бит)
	apiKeyBytes = 32
	// displayPrefixLen сколько символов ключа храним для опознания
	displayPrefixLen = len(APIKeyPrefix) + 8
)

// KeyRecord запись, которую каталог аккаунтов возвращает по хешу ключа
type KeyRecord struct {
	ID        string
	UserID    string
	ExpiresAt *time.Time
	IsActive  bool
}

// KeyLookup ищет записи API ключей по хешу
type KeyLookup interface {
	LookupAPIKey(ctx context.Context, keyHash string) (*KeyRecord, error)
}

// KeyUsageRecorder опционально реализуется KeyLookup для учета использования ключа
type KeyUsageRecorder interface {
	TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error
}

// HashAPIKey возвращает hex SHA-256 от ключа.
// В отличие от пароля хеш детерминирован, по нему ищем запись.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey создает новый ключ вместе с префиксом и хешем.
// Сам ключ показываем один раз и не сохраняем.
func GenerateAPIKey() (raw, prefix, hash string, err error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	raw = APIKeyPrefix + base64.RawURLEncoding.EncodeToString(buf)
	return raw, raw[:displayPrefixLen], HashAPIKey(raw), nil
}

// APIKeyAuthenticator проверяет API ключи по каталогу аккаунтов
type APIKeyAuthenticator struct {
	lookup KeyLookup
	now    func() time.Time
}

// NewAPIKeyAuthenticator создает аутентификатор поверх lookup
func NewAPIKeyAuthenticator(lookup KeyLookup) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{lookup: lookup, now: time.Now}
}

// WithNow подменяет источник времени (для тестов)
func (a *APIKeyAuthenticator) WithNow(now func() time.Time) *APIKeyAuthenticator {
	a.now = now
	return a
}

// Authenticate находит аккаунт-владелец ключа rawKey.
// Любая ошибка поиска, включая сетевую, отдается как ErrKeyNotFound
// без повторов.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, rawKey string) (*Identity, error) {
	if rawKey == "" {
		return nil, ErrMissingKey
	}

	rec, err := a.lookup.LookupAPIKey(ctx, HashAPIKey(rawKey))
	if err != nil {
		return nil, wrap(ErrKeyNotFound, err)
	}
	if rec == nil {
		return nil, ErrKeyNotFound
	}

	now := a.now()
	if rec.ExpiresAt != nil && !now.Before(*rec.ExpiresAt) {
		return nil, ErrKeyExpired
	}
	if !rec.IsActive {
		return nil, ErrKeyInactive
	}

	if recorder, ok := a.lookup.(KeyUsageRecorder); ok {
		// учет использования не должен ронять запрос
		_ = recorder.TouchAPIKey(ctx, rec.ID, now)
	}

	return &Identity{UserID: rec.UserID, Method: MethodAPIKey}, nil
}
