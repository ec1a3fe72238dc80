package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

const (
	identityColumns     = `id, customer_id, type, number, issuance_country, expiry_date, created_at, updated_at`
	relationshipColumns = `id, from_customer_id, to_customer_id, role, created_at`
	consentColumns      = `id, customer_id, topic, version, is_granted, timestamp, created_at`

	addressColumns = `id, customer_id, type, address_line1, address_line2, city, state, district,
	sub_district, zip_code, country, created_at, updated_at`
)

// CreateAddress добавляет адрес клиента
func (s *Storage) CreateAddress(ctx context.Context, a *models.Address) error {
	query := `INSERT INTO customer_addresses (` + addressColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query,
		a.ID,
		a.CustomerID,
		a.Type,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.District,
		a.SubDistrict,
		a.ZipCode,
		a.Country,
		utc(a.CreatedAt),
		utc(a.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}

	return nil
}

// ListAddresses возвращает адреса клиента в порядке создания
func (s *Storage) ListAddresses(ctx context.Context, customerID string) ([]*models.Address, error) {
	query := `SELECT ` + addressColumns + ` FROM customer_addresses
		WHERE customer_id = ? ORDER BY created_at, id`

	return listRows(ctx, s, "addresses", func(row rowScanner) (*models.Address, error) {
		a := &models.Address{}
		err := row.Scan(&a.ID, &a.CustomerID, &a.Type, &a.AddressLine1, &a.AddressLine2, &a.City,
			&a.State, &a.District, &a.SubDistrict, &a.ZipCode, &a.Country, &a.CreatedAt, &a.UpdatedAt)
		return a, err
	}, query, customerID)
}

// CreateIdentity добавляет документ клиента
func (s *Storage) CreateIdentity(ctx context.Context, i *models.Identity) error {
	query := `INSERT INTO customer_identities (` + identityColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query,
		i.ID,
		i.CustomerID,
		i.Type,
		i.Number,
		i.IssuanceCountry,
		utcPtr(i.ExpiryDate),
		utc(i.CreatedAt),
		utc(i.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrIdentityAlreadyExists
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	return nil
}

// ListIdentities возвращает документы клиента в порядке создания
func (s *Storage) ListIdentities(ctx context.Context, customerID string) ([]*models.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM customer_identities
		WHERE customer_id = ? ORDER BY created_at, id`

	return listRows(ctx, s, "identities", func(row rowScanner) (*models.Identity, error) {
		i := &models.Identity{}
		var expiry sql.NullTime
		err := row.Scan(&i.ID, &i.CustomerID, &i.Type, &i.Number, &i.IssuanceCountry,
			&expiry, &i.CreatedAt, &i.UpdatedAt)
		i.ExpiryDate = timePtr(expiry)
		return i, err
	}, query, customerID)
}

// CreateRelationship добавляет связь двух клиентов
func (s *Storage) CreateRelationship(ctx context.Context, r *models.Relationship) error {
	query := `INSERT INTO customer_relationships (` + relationshipColumns + `) VALUES (?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query, r.ID, r.FromCustomerID, r.ToCustomerID, r.Role, utc(r.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}

	return nil
}

// ListRelationships возвращает связи, где клиент с любой стороны
func (s *Storage) ListRelationships(ctx context.Context, customerID string) ([]*models.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM customer_relationships
		WHERE from_customer_id = ? OR to_customer_id = ?
		ORDER BY created_at, id`

	return listRows(ctx, s, "relationships", func(row rowScanner) (*models.Relationship, error) {
		r := &models.Relationship{}
		err := row.Scan(&r.ID, &r.FromCustomerID, &r.ToCustomerID, &r.Role, &r.CreatedAt)
		return r, err
	}, query, customerID, customerID)
}

// CreateConsent дописывает решение о согласии
func (s *Storage) CreateConsent(ctx context.Context, c *models.Consent) error {
	query := `INSERT INTO customer_consents (` + consentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query,
		c.ID,
		c.CustomerID,
		c.Topic,
		c.Version,
		c.IsGranted,
		utc(c.Timestamp),
		utc(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert consent: %w", err)
	}

	return nil
}

// ListCustomerConsents история согласий клиента, новые первыми
func (s *Storage) ListCustomerConsents(ctx context.Context, customerID string) ([]*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM customer_consents
		WHERE customer_id = ? ORDER BY timestamp DESC, id`

	return listRows(ctx, s, "consents", scanConsent, query, customerID)
}

// ListConsents согласия всех клиентов, новые первыми
func (s *Storage) ListConsents(ctx context.Context, f storage.ConsentFilter) ([]*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM customer_consents`
	var args []any

	if f.Topic != "" {
		query += ` WHERE topic = ?`
		args = append(args, f.Topic)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY timestamp DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	return listRows(ctx, s, "consents", scanConsent, query, args...)
}

// GetConsent возвращает согласие по ID
func (s *Storage) GetConsent(ctx context.Context, id string) (*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM customer_consents WHERE id = ?`

	c, err := scanConsent(s.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrConsentNotFound
		}
		return nil, fmt.Errorf("failed to get consent: %w", err)
	}

	return c, nil
}

func scanConsent(row rowScanner) (*models.Consent, error) {
	c := &models.Consent{}
	err := row.Scan(&c.ID, &c.CustomerID, &c.Topic, &c.Version, &c.IsGranted, &c.Timestamp, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// listRows выполняет запрос и сканирует все строки; пустой результат это пустой срез
func listRows[T any](ctx context.Context, s *Storage, what string, scan func(rowScanner) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return out, nil
}
