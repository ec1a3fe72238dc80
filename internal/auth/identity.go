package auth

import "context"

// Method имя стратегии, подтвердившей личность
type Method string

const (
	MethodBearer Method = "bearer"
	MethodAPIKey Method = "api_key"
)

// Identity подтвержденный вызывающий, привязанный к запросу.
// При входе по API ключу Username, Email и Role пустые:
// ключ подтверждает только id аккаунта-владельца.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	Method   Method `json:"method"`
}

type identityKey struct{}

// WithIdentity сохраняет личность в ctx
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext возвращает личность, которую положил auth middleware
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
