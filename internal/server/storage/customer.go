package storage

import (
	"context"
	"time"

	"github.com/iudanet/custadmin/internal/models"
)

// CustomerStorage defines interface for customer persistence
type CustomerStorage interface {
	// CreateCustomer inserts a new customer
	CreateCustomer(ctx context.Context, customer *models.Customer) error

	// GetCustomer retrieves customer by ID, including soft deleted ones
	// Returns ErrCustomerNotFound if customer doesn't exist
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)

	// ListCustomers returns customers that are not deleted
	ListCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error)

	// ListDeletedCustomers returns soft deleted customers, most recently deleted first
	ListDeletedCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error)

	// SearchCustomers matches query against first, last and company name
	SearchCustomers(ctx context.Context, query string, limit int) ([]*models.Customer, error)

	// UpdateCustomer updates a customer that is not deleted
	// Returns ErrCustomerNotFound if customer doesn't exist or is deleted
	UpdateCustomer(ctx context.Context, customer *models.Customer) error

	// SoftDeleteCustomer marks customer as deleted by deletedBy
	// Returns ErrCustomerNotFound if customer doesn't exist or is already deleted
	SoftDeleteCustomer(ctx context.Context, id, deletedBy string, at time.Time) error

	// RestoreCustomer clears the deletion mark
	// Returns ErrCustomerNotDeleted if customer is not deleted
	RestoreCustomer(ctx context.Context, id string, at time.Time) error

	// AnonymizeCustomer saves the scrubbed customer and removes its addresses
	// and identities in one transaction.
	// Returns ErrCustomerNotFound if customer doesn't exist or is deleted
	AnonymizeCustomer(ctx context.Context, customer *models.Customer) error
}

// ConsentFilter narrows a consent listing
type ConsentFilter struct {
	Topic  string
	Limit  int
	Offset int
}

// ProfileStorage хранит вложенные данные клиента: адреса, документы, связи и согласия
type ProfileStorage interface {
	CreateAddress(ctx context.Context, address *models.Address) error
	ListAddresses(ctx context.Context, customerID string) ([]*models.Address, error)

	// CreateIdentity returns ErrIdentityAlreadyExists for a duplicate document
	CreateIdentity(ctx context.Context, identity *models.Identity) error
	ListIdentities(ctx context.Context, customerID string) ([]*models.Identity, error)

	CreateRelationship(ctx context.Context, rel *models.Relationship) error
	// ListRelationships returns links where the customer is on either side
	ListRelationships(ctx context.Context, customerID string) ([]*models.Relationship, error)

	CreateConsent(ctx context.Context, consent *models.Consent) error
	// ListCustomerConsents returns the consent history of one customer, newest first
	ListCustomerConsents(ctx context.Context, customerID string) ([]*models.Consent, error)
	ListConsents(ctx context.Context, filter ConsentFilter) ([]*models.Consent, error)
	// GetConsent returns ErrConsentNotFound if consent doesn't exist
	GetConsent(ctx context.Context, id string) (*models.Consent, error)
}

// PostStorage defines interface for post persistence
type PostStorage interface {
	CreatePost(ctx context.Context, post *models.Post) error
	// GetPost returns ErrPostNotFound if post doesn't exist
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id string) error
}

// AuditFilter narrows an audit log listing
type AuditFilter struct {
	Action   string
	EntityID string
	Limit    int
	Offset   int
}

// AuditStorage defines interface for the audit trail
type AuditStorage interface {
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error
	// GetAuditLog returns ErrAuditLogNotFound if entry doesn't exist
	GetAuditLog(ctx context.Context, id string) (*models.AuditLog, error)
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]*models.AuditLog, error)
}

// Storage is the full account directory used by the server
type Storage interface {
	AccountStorage
	APIKeyStorage
	CustomerStorage
	ProfileStorage
	PostStorage
	AuditStorage

	Ping(ctx context.Context) error
	Close() error
}
