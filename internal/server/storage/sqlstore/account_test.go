package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

func TestAccountStorage_CreateAccount(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	supervisor := createTestAccount(t, ctx, s, models.RoleAdmin)

	tests := []struct {
		account *models.Account
		name    string
	}{
		{
			name: "create operator",
			account: &models.Account{
				ID:           uuid.New().String(),
				Username:     "alice",
				Email:        "alice@example.com",
				PasswordHash: "hash-alice",
				Role:         models.RoleOperator,
				IsActive:     true,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			},
		},
		{
			name: "create with supervisor",
			account: &models.Account{
				ID:           uuid.New().String(),
				Username:     "bob",
				Email:        "bob@example.com",
				PasswordHash: "hash-bob",
				Role:         models.RoleViewer,
				SupervisorID: &supervisor.ID,
				IsActive:     true,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.CreateAccount(ctx, tt.account))

			retrieved, err := s.GetAccountByID(ctx, tt.account.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.account.Username, retrieved.Username)
			assert.Equal(t, tt.account.Email, retrieved.Email)
			assert.Equal(t, tt.account.PasswordHash, retrieved.PasswordHash)
			assert.Equal(t, tt.account.Role, retrieved.Role)
			assert.Equal(t, tt.account.SupervisorID, retrieved.SupervisorID)
			assert.True(t, retrieved.IsActive)
			assert.WithinDuration(t, tt.account.CreatedAt, retrieved.CreatedAt, time.Second)
		})
	}
}

func TestAccountStorage_CreateAccount_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	first := createTestAccount(t, ctx, s, models.RoleOperator)

	dup := &models.Account{
		ID:           uuid.New().String(),
		Username:     first.Username,
		Email:        "other@example.com",
		PasswordHash: "hash",
		Role:         models.RoleOperator,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	err := s.CreateAccount(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrAccountAlreadyExists)
}

func TestAccountStorage_GetActiveAccountByUsername(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	active := createTestAccount(t, ctx, s, models.RoleOperator)
	inactive := createTestAccount(t, ctx, s, models.RoleOperator)
	require.NoError(t, s.DeactivateAccount(ctx, inactive.ID, time.Now()))

	got, err := s.GetActiveAccountByUsername(ctx, active.Username)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = s.GetActiveAccountByUsername(ctx, inactive.Username)
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	_, err = s.GetActiveAccountByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	// Деактивированная учетная запись доступна по ID
	got, err = s.GetAccountByID(ctx, inactive.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestAccountStorage_GetAccountByID_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetAccountByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestAccountStorage_ListAccounts(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		createTestAccount(t, ctx, s, models.RoleViewer)
	}

	all, err := s.ListAccounts(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := s.ListAccounts(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	for _, a := range all {
		assert.NotEmpty(t, a.PasswordHash)
	}
}

func TestAccountStorage_UpdateAccount(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	supervisor := createTestAccount(t, ctx, s, models.RoleAdmin)
	account := createTestAccount(t, ctx, s, models.RoleViewer)

	account.Email = "changed@example.com"
	account.Role = models.RoleOperator
	account.SupervisorID = &supervisor.ID
	account.UpdatedAt = time.Now()
	require.NoError(t, s.UpdateAccount(ctx, account))

	got, err := s.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed@example.com", got.Email)
	assert.Equal(t, models.RoleOperator, got.Role)
	require.NotNil(t, got.SupervisorID)
	assert.Equal(t, supervisor.ID, *got.SupervisorID)

	missing := &models.Account{ID: uuid.New().String(), Role: models.RoleViewer, UpdatedAt: time.Now()}
	assert.ErrorIs(t, s.UpdateAccount(ctx, missing), storage.ErrAccountNotFound)
}

func TestAccountStorage_DeactivateAccount_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.DeactivateAccount(ctx, uuid.New().String(), time.Now())
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}
