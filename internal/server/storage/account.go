package storage

import (
	"context"
	"time"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/models"
)

// AccountStorage defines interface for account persistence
type AccountStorage interface {
	// CreateAccount creates a new account
	// Returns ErrAccountAlreadyExists if username is taken
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccountByID retrieves account by ID regardless of its active flag
	// Returns ErrAccountNotFound if account doesn't exist
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)

	// GetActiveAccountByUsername retrieves an active account by username
	// Returns ErrAccountNotFound if account doesn't exist or is deactivated
	GetActiveAccountByUsername(ctx context.Context, username string) (*models.Account, error)

	// ListAccounts returns accounts ordered by creation time, newest first
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error)

	// UpdateAccount updates email, role, active flag and supervisor
	// Returns ErrAccountNotFound if account doesn't exist
	UpdateAccount(ctx context.Context, account *models.Account) error

	// DeactivateAccount clears the active flag
	// Returns ErrAccountNotFound if account doesn't exist
	DeactivateAccount(ctx context.Context, id string, at time.Time) error
}

// APIKeyStorage defines interface for API key persistence.
// It also serves as the key lookup of the API key authenticator.
type APIKeyStorage interface {
	auth.KeyLookup
	auth.KeyUsageRecorder

	// CreateAPIKey stores a new key record (hash only)
	CreateAPIKey(ctx context.Context, key *models.APIKey) error

	// ListAPIKeys returns keys owned by userID, newest first
	ListAPIKeys(ctx context.Context, userID string) ([]*models.APIKey, error)

	// RevokeAPIKey deactivates a key owned by userID
	// Returns ErrAPIKeyNotFound if the key doesn't exist or has another owner
	RevokeAPIKey(ctx context.Context, id, userID string) error
}
