package middleware

import (
	"net/http"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/models"
)

// RequireRole пропускает запрос, только если у вызывающего одна из roles.
// Должен идти после Authenticate.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			if _, ok := allowed[models.Role(identity.Role)]; !ok {
				writeError(w, http.StatusForbidden, "Forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAtLeast пропускает role и все роли выше
func RequireAtLeast(role models.Role) func(http.Handler) http.Handler {
	return RequireRole(role.AtLeast()...)
}
