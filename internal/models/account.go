package models

import "time"

// Role определяет уровень доступа учетной записи
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleOperator   Role = "OPERATOR"
	RoleViewer     Role = "VIEWER"
)

// Roles все роли от старшей к младшей
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleOperator, RoleViewer}

// Valid сообщает, известна ли роль r
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// AtLeast возвращает r и все роли старше нее
func (r Role) AtLeast() []Role {
	for i, known := range Roles {
		if known == r {
			return append([]Role(nil), Roles[:i+1]...)
		}
	}
	return nil
}

// Account представляет учетную запись администратора.
// Учетные записи не удаляются физически, только деактивируются.
type Account struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SupervisorID *string   `json:"supervisor_id,omitempty"` // ID руководителя, может восстанавливать удаленное подчиненным
	ID           string    `json:"id"`                      // UUID учетной записи
	Username     string    `json:"username"`                // уникальный username
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt хеш, никогда не покидает сервер
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
}

// APIKey представляет ключ доступа для интеграций.
// Хранится только SHA-256 хеш, сам ключ возвращается один раз при создании.
type APIKey struct {
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"` // первые символы ключа для отображения
	KeyHash    string     `json:"-"`
	IsActive   bool       `json:"is_active"`
}
