package api

import "time"

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse возвращается при регистрации и входе
type AuthResponse struct {
	ExpiresAt time.Time `json:"expires_at"` // время истечения токена
	Token     string    `json:"token"`      // JWT access token
	User      Account   `json:"user"`
}

// Account публичное представление аккаунта, без хеша пароля
type Account struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	SupervisorID *string   `json:"supervisor_id,omitempty"`
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
}

// CreateUserRequest создает учетную запись от имени SUPER_ADMIN
type CreateUserRequest struct {
	SupervisorID *string `json:"supervisor_id,omitempty"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Role         string  `json:"role"`
}

// UpdateUserRequest содержит только изменяемые поля; nil означает "не менять"
type UpdateUserRequest struct {
	Email        *string `json:"email,omitempty"`
	Role         *string `json:"role,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
	SupervisorID *string `json:"supervisor_id,omitempty"`
}

// CreateAPIKeyRequest запрашивает новый API ключ
type CreateAPIKeyRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Name      string     `json:"name"`
}

// APIKey ключ в списке, без хеша
type APIKey struct {
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Prefix     string     `json:"prefix"`
	IsActive   bool       `json:"is_active"`
}

// CreateAPIKeyResponse содержит сам ключ. Он показывается один раз.
type CreateAPIKeyResponse struct {
	Key    string `json:"key"`
	APIKey APIKey `json:"api_key"`
}

// WhoAmIResponse описывает вызывающего на маршруте с API ключом
type WhoAmIResponse struct {
	UserID string `json:"userId"`
	Method string `json:"method"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse ответ GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}
