package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

// CreateAPIKey stores a new key record. Only the hash is persisted.
func (s *Storage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	query := `
		INSERT INTO api_keys (id, user_id, name, prefix, key_hash, expires_at, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		key.ID,
		key.UserID,
		key.Name,
		key.Prefix,
		key.KeyHash,
		utcPtr(key.ExpiresAt),
		key.IsActive,
		utc(key.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	return nil
}

// ListAPIKeys returns keys owned by userID, newest first
func (s *Storage) ListAPIKeys(ctx context.Context, userID string) ([]*models.APIKey, error) {
	query := `
		SELECT id, user_id, name, prefix, key_hash, expires_at, is_active, last_used_at, created_at
		FROM api_keys
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*models.APIKey, 0)
	for rows.Next() {
		key := &models.APIKey{}
		var expiresAt, lastUsed sql.NullTime

		if err := rows.Scan(
			&key.ID,
			&key.UserID,
			&key.Name,
			&key.Prefix,
			&key.KeyHash,
			&expiresAt,
			&key.IsActive,
			&lastUsed,
			&key.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}

		key.ExpiresAt = timePtr(expiresAt)
		key.LastUsedAt = timePtr(lastUsed)
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return keys, nil
}

// RevokeAPIKey deactivates a key owned by userID
func (s *Storage) RevokeAPIKey(ctx context.Context, id, userID string) error {
	query := `UPDATE api_keys SET is_active = ? WHERE id = ? AND user_id = ?`

	res, err := s.exec(ctx, query, false, id, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	return expectOneRow(res, storage.ErrAPIKeyNotFound)
}

// LookupAPIKey ищет ключ по хешу.
// Неизвестный хеш дает nil без ошибки; срок и активность
// проверяет аутентификатор.
func (s *Storage) LookupAPIKey(ctx context.Context, keyHash string) (*auth.KeyRecord, error) {
	query := `SELECT id, user_id, expires_at, is_active FROM api_keys WHERE key_hash = ?`

	rec := &auth.KeyRecord{}
	var expiresAt sql.NullTime

	err := s.queryRow(ctx, query, keyHash).Scan(&rec.ID, &rec.UserID, &expiresAt, &rec.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lookup api key: %w", err)
	}

	rec.ExpiresAt = timePtr(expiresAt)
	return rec, nil
}

// TouchAPIKey запоминает время последнего использования ключа
func (s *Storage) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	query := `UPDATE api_keys SET last_used_at = ? WHERE id = ?`

	if _, err := s.exec(ctx, query, utc(usedAt), id); err != nil {
		return fmt.Errorf("failed to update api key usage: %w", err)
	}

	return nil
}
