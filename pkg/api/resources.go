package api

import "time"

// CustomerRequest создает или заменяет клиента.
// Для PATCH учитываются только непустые поля.
type CustomerRequest struct {
	Type           string `json:"type"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	CompanyName    string `json:"company_name,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Status         string `json:"status,omitempty"`
	MembershipTier string `json:"membership_tier,omitempty"`

	// PortfolioSize: nil в PATCH оставляет текущее значение, в PUT сбрасывает в 0
	PortfolioSize *float64 `json:"portfolio_size,omitempty"`
}

// Customer представление клиента в API
type Customer struct {
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
	DeletedBy      *string    `json:"deleted_by,omitempty"`
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	FirstName      string     `json:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty"`
	CompanyName    string     `json:"company_name,omitempty"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Status         string     `json:"status"`
	MembershipTier string     `json:"membership_tier,omitempty"`
	PortfolioSize  float64    `json:"portfolio_size"`
}

// AddressRequest добавляет адрес клиенту
type AddressRequest struct {
	Type         string `json:"type"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	District     string `json:"district,omitempty"`
	SubDistrict  string `json:"sub_district,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	Country      string `json:"country"`
}

// IdentityRequest добавляет документ клиента.
// Тайский NATIONAL_ID проверяется по контрольной цифре.
type IdentityRequest struct {
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	Type            string     `json:"type"`
	Number          string     `json:"number"`
	IssuanceCountry string     `json:"issuance_country"`
}

// RelationshipRequest связывает клиента с другим
type RelationshipRequest struct {
	ToCustomerID string `json:"to_customer_id"`
	Role         string `json:"role"`
}

// ConsentRequest фиксирует решение о согласии
type ConsentRequest struct {
	IsGranted *bool  `json:"is_granted"`
	Topic     string `json:"topic"`
	Version   string `json:"version"`
}

// PostRequest создает или обновляет пост
type PostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status,omitempty"`
}
