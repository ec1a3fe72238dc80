package storage

import "errors"

// Common storage errors
var (
	// ErrAccountNotFound indicates that account was not found in storage
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountAlreadyExists indicates that account with this username already exists
	ErrAccountAlreadyExists = errors.New("account already exists")

	// ErrAPIKeyNotFound indicates that API key was not found or belongs to another account
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrCustomerNotFound indicates that customer was not found
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrCustomerNotDeleted indicates a restore of a customer that is not soft deleted
	ErrCustomerNotDeleted = errors.New("customer is not deleted")

	// ErrIdentityAlreadyExists indicates a document with the same type, number and country
	ErrIdentityAlreadyExists = errors.New("identity already exists")

	// ErrConsentNotFound indicates that consent record was not found
	ErrConsentNotFound = errors.New("consent not found")

	// ErrPostNotFound indicates that post was not found
	ErrPostNotFound = errors.New("post not found")

	// ErrAuditLogNotFound indicates that audit log entry was not found
	ErrAuditLogNotFound = errors.New("audit log not found")
)
