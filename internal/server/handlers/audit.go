package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

// AuditHandler отдает журнал аудита только на чтение
type AuditHandler struct {
	responder
	audit storage.AuditStorage
}

// NewAuditHandler создает handler журнала аудита
func NewAuditHandler(logger *slog.Logger, audit storage.AuditStorage) *AuditHandler {
	return &AuditHandler{responder: responder{logger: logger}, audit: audit}
}

// List обрабатывает GET /api/v1/audit-logs?action=&entity_id=&limit=&offset=
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	q := r.URL.Query()

	logs, err := h.audit.ListAuditLogs(r.Context(), storage.AuditFilter{
		Action:   q.Get("action"),
		EntityID: q.Get("entity_id"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list audit logs", slog.Any("error", err))
		h.sendError(w, "Failed to fetch audit logs", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	h.sendJSON(w, logs, http.StatusOK)
}

// Get обрабатывает GET /api/v1/audit-logs/{id}
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.audit.GetAuditLog(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, storage.ErrAuditLogNotFound) {
			h.sendError(w, "Audit log not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get audit log", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.sendJSON(w, entry, http.StatusOK)
}
