package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

const accountColumns = `id, username, email, password_hash, role, supervisor_id, is_active, created_at, updated_at`

// CreateAccount creates a new account in the storage
func (s *Storage) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		string(account.Role),
		nullString(account.SupervisorID),
		account.IsActive,
		utc(account.CreatedAt),
		utc(account.UpdatedAt),
	)

	if err != nil {
		// Проверяем на duplicate username
		if isUniqueViolation(err) {
			return storage.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	return nil
}

// GetAccountByID retrieves account by ID
func (s *Storage) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return s.getAccount(ctx, query, id)
}

// GetActiveAccountByUsername retrieves an active account by username
func (s *Storage) GetActiveAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = ? AND is_active = ?`
	return s.getAccount(ctx, query, username, true)
}

func (s *Storage) getAccount(ctx context.Context, query string, args ...any) (*models.Account, error) {
	account, err := scanAccount(s.queryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// ListAccounts returns accounts newest first
func (s *Storage) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return accounts, nil
}

// UpdateAccount updates account information
func (s *Storage) UpdateAccount(ctx context.Context, account *models.Account) error {
	query := `
		UPDATE accounts
		SET email = ?, role = ?, supervisor_id = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.exec(ctx, query,
		account.Email,
		string(account.Role),
		nullString(account.SupervisorID),
		account.IsActive,
		utc(account.UpdatedAt),
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	return expectOneRow(res, storage.ErrAccountNotFound)
}

// DeactivateAccount clears the active flag of the account
func (s *Storage) DeactivateAccount(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?`

	res, err := s.exec(ctx, query, false, utc(at), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	return expectOneRow(res, storage.ErrAccountNotFound)
}

// rowScanner реализуют *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	account := &models.Account{}
	var (
		role       string
		supervisor sql.NullString
	)

	err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&role,
		&supervisor,
		&account.IsActive,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Role = models.Role(role)
	account.SupervisorID = stringPtr(supervisor)

	return account, nil
}
