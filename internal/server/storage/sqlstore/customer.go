package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

const customerColumns = `id, type, first_name, last_name, company_name, email, phone, status,
	membership_tier, portfolio_size, created_at, updated_at, deleted_at, deleted_by`

// CreateCustomer inserts a new customer
func (s *Storage) CreateCustomer(ctx context.Context, c *models.Customer) error {
	query := `
		INSERT INTO customers (id, type, first_name, last_name, company_name, email, phone, status,
			membership_tier, portfolio_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		c.ID,
		string(c.Type),
		c.FirstName,
		c.LastName,
		c.CompanyName,
		c.Email,
		c.Phone,
		string(c.Status),
		c.MembershipTier,
		c.PortfolioSize,
		utc(c.CreatedAt),
		utc(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	return nil
}

// GetCustomer возвращает клиента по ID, в том числе удаленного
func (s *Storage) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = ?`

	c, err := scanCustomer(s.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return c, nil
}

// ListCustomers returns customers that are not deleted, newest first
func (s *Storage) ListCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	return s.listCustomers(ctx, query, limit, offset)
}

// ListDeletedCustomers returns soft deleted customers, most recently deleted first
func (s *Storage) ListDeletedCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at DESC
		LIMIT ? OFFSET ?`

	return s.listCustomers(ctx, query, limit, offset)
}

// SearchCustomers ищет q без учета регистра в имени, фамилии и названии компании
func (s *Storage) SearchCustomers(ctx context.Context, q string, limit int) ([]*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers
		WHERE deleted_at IS NULL
		AND (LOWER(first_name) LIKE ? ESCAPE '\'
			OR LOWER(last_name) LIKE ? ESCAPE '\'
			OR LOWER(company_name) LIKE ? ESCAPE '\')
		ORDER BY created_at DESC
		LIMIT ?`

	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"

	return s.listCustomers(ctx, query, pattern, pattern, pattern, limit)
}

func (s *Storage) listCustomers(ctx context.Context, query string, args ...any) ([]*models.Customer, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*models.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return customers, nil
}

const updateCustomerQuery = `
	UPDATE customers
	SET type = ?, first_name = ?, last_name = ?, company_name = ?, email = ?, phone = ?,
		status = ?, membership_tier = ?, portfolio_size = ?, updated_at = ?
	WHERE id = ? AND deleted_at IS NULL
`

func updateCustomerArgs(c *models.Customer) []any {
	return []any{
		string(c.Type),
		c.FirstName,
		c.LastName,
		c.CompanyName,
		c.Email,
		c.Phone,
		string(c.Status),
		c.MembershipTier,
		c.PortfolioSize,
		utc(c.UpdatedAt),
		c.ID,
	}
}

// UpdateCustomer updates a customer that is not deleted
func (s *Storage) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	res, err := s.exec(ctx, updateCustomerQuery, updateCustomerArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}

	return expectOneRow(res, storage.ErrCustomerNotFound)
}

// AnonymizeCustomer сохраняет очищенного клиента и удаляет его адреса и документы.
// Согласия и связи остаются: в них нет персональных данных кроме ID.
func (s *Storage) AnonymizeCustomer(ctx context.Context, c *models.Customer) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, s.rebind(updateCustomerQuery), updateCustomerArgs(c)...)
	if err != nil {
		return fmt.Errorf("failed to anonymize customer: %w", err)
	}
	if err := expectOneRow(res, storage.ErrCustomerNotFound); err != nil {
		return err
	}

	for _, table := range []string{"customer_addresses", "customer_identities"} {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM `+table+` WHERE customer_id = ?`), c.ID); err != nil {
			return fmt.Errorf("failed to purge %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SoftDeleteCustomer помечает клиента удаленным
func (s *Storage) SoftDeleteCustomer(ctx context.Context, id, deletedBy string, at time.Time) error {
	query := `
		UPDATE customers
		SET deleted_at = ?, deleted_by = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	res, err := s.exec(ctx, query, utc(at), deletedBy, utc(at), id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	return expectOneRow(res, storage.ErrCustomerNotFound)
}

// RestoreCustomer снимает пометку удаления
func (s *Storage) RestoreCustomer(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE customers
		SET deleted_at = NULL, deleted_by = NULL, updated_at = ?
		WHERE id = ? AND deleted_at IS NOT NULL
	`

	res, err := s.exec(ctx, query, utc(at), id)
	if err != nil {
		return fmt.Errorf("failed to restore customer: %w", err)
	}

	if err := expectOneRow(res, storage.ErrCustomerNotDeleted); err != nil {
		if !errors.Is(err, storage.ErrCustomerNotDeleted) {
			return err
		}
		// Различаем "не найден" и "не удален"
		if _, getErr := s.GetCustomer(ctx, id); getErr != nil {
			return getErr
		}
		return err
	}

	return nil
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	c := &models.Customer{}
	var (
		customerType, status string
		deletedAt            sql.NullTime
		deletedBy            sql.NullString
	)

	err := row.Scan(
		&c.ID,
		&customerType,
		&c.FirstName,
		&c.LastName,
		&c.CompanyName,
		&c.Email,
		&c.Phone,
		&status,
		&c.MembershipTier,
		&c.PortfolioSize,
		&c.CreatedAt,
		&c.UpdatedAt,
		&deletedAt,
		&deletedBy,
	)
	if err != nil {
		return nil, err
	}

	c.Type = models.CustomerType(customerType)
	c.Status = models.CustomerStatus(status)
	c.DeletedAt = timePtr(deletedAt)
	c.DeletedBy = stringPtr(deletedBy)

	return c, nil
}

// escapeLike экранирует спецсимволы LIKE в пользовательском вводе
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
