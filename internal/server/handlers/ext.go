package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
	"github.com/iudanet/custadmin/pkg/api"
)

// ExtHandler обслуживает маршруты интеграций с доступом по API ключу.
// Ключ подтверждает только владельца, поэтому роль здесь не проверяется.
type ExtHandler struct {
	responder
	customers storage.CustomerStorage
}

// NewExtHandler создает handler для маршрутов /api/ext
func NewExtHandler(logger *slog.Logger, customers storage.CustomerStorage) *ExtHandler {
	return &ExtHandler{responder: responder{logger: logger}, customers: customers}
}

// Customers обрабатывает GET /api/ext/customers
func (h *ExtHandler) Customers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	customers, err := h.customers.ListCustomers(r.Context(), limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list customers", slog.Any("error", err))
		h.sendError(w, "Failed to fetch customers", http.StatusInternalServerError)
		return
	}
	if customers == nil {
		customers = []*models.Customer{}
	}
	h.sendJSON(w, customers, http.StatusOK)
}

// WhoAmI обрабатывает GET /api/ext/whoami
func (h *ExtHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	h.sendJSON(w, api.WhoAmIResponse{UserID: id.UserID, Method: string(id.Method)}, http.StatusOK)
}
