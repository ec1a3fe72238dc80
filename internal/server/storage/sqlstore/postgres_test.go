package sqlstore

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

// setupPostgresMock возвращает Storage в диалекте PostgreSQL поверх sqlmock
func setupPostgresMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return newStorage(db, DriverPostgres), mock
}

func TestPostgres_CreateAccount_Duplicate(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectExec(regexp.QuoteMeta("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := s.CreateAccount(context.Background(), &models.Account{
		ID:       "8b0f2f5e-3f0c-4a39-9d0e-6a5f5f3f2b11",
		Username: "alice",
		Role:     models.RoleOperator,
		IsActive: true,
	})
	assert.ErrorIs(t, err, storage.ErrAccountAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetActiveAccountByUsername(t *testing.T) {
	s, mock := setupPostgresMock(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "username", "email", "password_hash", "role", "supervisor_id", "is_active", "created_at", "updated_at",
	}).AddRow("id-1", "alice", "alice@example.com", "hash", "ADMIN", nil, true, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1 AND is_active = $2")).
		WithArgs("alice", true).
		WillReturnRows(rows)

	account, err := s.GetActiveAccountByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "id-1", account.ID)
	assert.Equal(t, models.RoleAdmin, account.Role)
	assert.Nil(t, account.SupervisorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_LookupAPIKey(t *testing.T) {
	s, mock := setupPostgresMock(t)
	expires := time.Now().Add(time.Hour).UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM api_keys WHERE key_hash = $1")).
		WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "is_active"}).
			AddRow("key-1", "user-1", expires, true))

	mock.ExpectQuery(regexp.QuoteMeta("FROM api_keys WHERE key_hash = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "expires_at", "is_active"}))

	rec, err := s.LookupAPIKey(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "user-1", rec.UserID)
	require.NotNil(t, rec.ExpiresAt)
	assert.True(t, expires.Equal(*rec.ExpiresAt))

	rec, err = s.LookupAPIKey(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListAuditLogs_Placeholders(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE action = $1 AND entity_id = $2 ORDER BY timestamp DESC LIMIT $3 OFFSET $4")).
		WithArgs("DELETE", "cust-1", 20, 40).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "entity_id", "entity_type", "action", "performed_by", "changes", "ip_address", "timestamp",
		}))

	list, err := s.ListAuditLogs(context.Background(), storage.AuditFilter{
		Action:   "DELETE",
		EntityID: "cust-1",
		Limit:    20,
		Offset:   40,
	})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SoftDeleteCustomer_NotFound(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $4 AND deleted_at IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SoftDeleteCustomer(context.Background(), "cust-1", "admin-1", time.Now())
	assert.ErrorIs(t, err, storage.ErrCustomerNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AnonymizeCustomer_RollsBack(t *testing.T) {
	s, mock := setupPostgresMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("portfolio_size = $9, updated_at = $10 WHERE id = $11 AND deleted_at IS NULL")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM customer_addresses WHERE customer_id = $1")).
		WithArgs("cust-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM customer_identities WHERE customer_id = $1")).
		WithArgs("cust-1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.AnonymizeCustomer(context.Background(), &models.Customer{ID: "cust-1", Type: models.CustomerPersonal})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customer_identities")
	assert.NoError(t, mock.ExpectationsWereMet())
}
