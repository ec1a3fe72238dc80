package models

import "time"

// Типы адресов клиента
const (
	AddressRegistered = "REGISTERED"
	AddressMailing    = "MAILING"
	AddressHQ         = "HQ"
)

// Типы документов, удостоверяющих личность
const (
	IdentityNationalID = "NATIONAL_ID"
	IdentityPassport   = "PASSPORT"
	IdentityTaxID      = "TAX_ID"
)

// Address почтовый адрес клиента
type Address struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`
	CustomerID   string    `json:"customer_id"`
	Type         string    `json:"type"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2,omitempty"`
	City         string    `json:"city"`
	State        string    `json:"state,omitempty"`
	District     string    `json:"district,omitempty"`
	SubDistrict  string    `json:"sub_district,omitempty"`
	ZipCode      string    `json:"zip_code,omitempty"`
	Country      string    `json:"country"` // ISO 3166-1 alpha-2
}

// Identity документ, удостоверяющий личность клиента
type Identity struct {
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	Type            string     `json:"type"`
	Number          string     `json:"number"`
	IssuanceCountry string     `json:"issuance_country"`
}

// Relationship связывает двух клиентов, например директора и компанию
type Relationship struct {
	CreatedAt      time.Time `json:"created_at"`
	ID             string    `json:"id"`
	FromCustomerID string    `json:"from_customer_id"`
	ToCustomerID   string    `json:"to_customer_id"`
	Role           string    `json:"role"`
}

// Consent фиксирует согласие или отказ клиента по теме на момент Timestamp.
// Записи не изменяются: новое решение добавляет новую запись.
type Consent struct {
	Timestamp  time.Time `json:"timestamp"`
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Topic      string    `json:"topic"`
	Version    string    `json:"version"`
	IsGranted  bool      `json:"is_granted"`
}
