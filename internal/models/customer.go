package models

import "time"

// CustomerType различает физических и юридических лиц
type CustomerType string

const (
	CustomerPersonal CustomerType = "PERSONAL"
	CustomerJuristic CustomerType = "JURISTIC"
)

// CustomerStatus статус жизненного цикла клиента
type CustomerStatus string

const (
	CustomerActive      CustomerStatus = "ACTIVE"
	CustomerInactive    CustomerStatus = "INACTIVE"
	CustomerSuspended   CustomerStatus = "SUSPENDED"
	CustomerDeceased    CustomerStatus = "DECEASED"
	CustomerBlacklisted CustomerStatus = "BLACKLISTED"
)

// CustomerStatuses все допустимые статусы
var CustomerStatuses = []CustomerStatus{
	CustomerActive, CustomerInactive, CustomerSuspended, CustomerDeceased, CustomerBlacklisted,
}

// Customer представляет клиента.
// Удаление мягкое: DeletedAt и DeletedBy заполняются, запись остается в БД.
type Customer struct {
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
	DeletedBy      *string        `json:"deleted_by,omitempty"`
	ID             string         `json:"id"`
	Type           CustomerType   `json:"type"`
	FirstName      string         `json:"first_name,omitempty"`
	LastName       string         `json:"last_name,omitempty"`
	CompanyName    string         `json:"company_name,omitempty"`
	Email          string         `json:"email,omitempty"`
	Phone          string         `json:"phone,omitempty"` // E.164
	Status         CustomerStatus `json:"status"`
	MembershipTier string         `json:"membership_tier,omitempty"`

	// PortfolioSize объем продуктов, которые еще есть у клиента
	PortfolioSize float64 `json:"portfolio_size"`
}

// IsDeleted сообщает, удален ли клиент (мягко)
func (c *Customer) IsDeleted() bool {
	return c.DeletedAt != nil
}

// HasPortfolio сообщает, остались ли у клиента продукты
func (c *Customer) HasPortfolio() bool {
	return c.PortfolioSize > 0
}

// Anonymize заменяет персональные данные заглушками с коротким префиксом ID.
// Тип, уровень членства и даты сохраняются для отчетности.
func (c *Customer) Anonymize() {
	short := c.ID
	if len(short) > 8 {
		short = short[:8]
	}

	c.FirstName = ""
	c.LastName = ""
	c.CompanyName = ""
	if c.Type == CustomerJuristic {
		c.CompanyName = "Deleted_Company_" + short
	} else {
		c.FirstName = "Deleted_User_" + short
		c.LastName = "Deleted"
	}
	c.Email = ""
	c.Phone = ""
	c.Status = CustomerBlacklisted
}

// PostStatus состояние публикации поста
type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

// Post короткая заметка аккаунта
type Post struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Status    PostStatus `json:"status"`
}

// Действия аудита для изменений клиента
const (
	AuditCreate  = "CREATE"
	AuditUpdate  = "UPDATE"
	AuditDelete  = "DELETE"
	AuditRestore = "RESTORE"

	AuditAnonymize       = "ANONYMIZE"
	AuditAddAddress      = "ADD_ADDRESS"
	AuditAddIdentity     = "ADD_IDENTITY"
	AuditAddRelationship = "ADD_RELATIONSHIP"
	AuditConsent         = "CONSENT"
)

// AuditLog записывает изменение сущности
type AuditLog struct {
	Timestamp   time.Time `json:"timestamp"`
	ID          string    `json:"id"`
	EntityID    string    `json:"entity_id"`
	EntityType  string    `json:"entity_type"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	Changes     string    `json:"changes,omitempty"` // JSON снимок изменений
	IPAddress   string    `json:"ip_address,omitempty"`
}
