package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
	"github.com/iudanet/custadmin/internal/validation"
	"github.com/iudanet/custadmin/pkg/api"
)

const (
	customerEntity = "customer"
	searchLimit    = 20
)

// CustomerHandler обрабатывает CRUD клиентов. Все изменения пишутся в аудит.
type CustomerHandler struct {
	responder
	trail     auditTrail
	customers storage.CustomerStorage
	accounts  storage.AccountStorage
}

// NewCustomerHandler создает handler для клиентов
func NewCustomerHandler(
	logger *slog.Logger,
	customers storage.CustomerStorage,
	accounts storage.AccountStorage,
	audit storage.AuditStorage,
) *CustomerHandler {
	return &CustomerHandler{
		responder: responder{logger: logger},
		trail:     auditTrail{logger: logger, store: audit},
		customers: customers,
		accounts:  accounts,
	}
}

// List обрабатывает GET /api/v1/customers
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	customers, err := h.customers.ListCustomers(r.Context(), limit, offset)
	h.sendCustomers(w, r, customers, err)
}

// ListDeleted обрабатывает GET /api/v1/customers/deleted
func (h *CustomerHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	customers, err := h.customers.ListDeletedCustomers(r.Context(), limit, offset)
	h.sendCustomers(w, r, customers, err)
}

// Search обрабатывает GET /api/v1/customers/search?q=
func (h *CustomerHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.sendError(w, "Query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	customers, err := h.customers.SearchCustomers(r.Context(), q, searchLimit)
	h.sendCustomers(w, r, customers, err)
}

func (h *CustomerHandler) sendCustomers(w http.ResponseWriter, r *http.Request, customers []*models.Customer, err error) {
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

// Get обрабатывает GET /api/v1/customers/{id}. Удаленные клиенты видны только в /deleted.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.loadActive(w, r)
	if !ok {
		return
	}
	h.sendJSON(w, customer, http.StatusOK)
}

// Create обрабатывает POST /api/v1/customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	customer := &models.Customer{
		ID:        uuid.New().String(),
		Status:    models.CustomerActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !h.apply(w, customer, &req) {
		return
	}

	if err := h.customers.CreateCustomer(ctx, customer); err != nil {
		h.logger.ErrorContext(ctx, "failed to create customer", slog.Any("error", err))
		h.sendError(w, "Failed to create customer", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, customer.ID, models.AuditCreate, customer)
	h.sendJSON(w, customer, http.StatusCreated)
}

// Update обрабатывает PUT и PATCH /api/v1/customers/{id}.
// PUT заменяет все поля, PATCH только переданные непустые.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CustomerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	customer, ok := h.loadActive(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodPatch {
		req = mergeCustomerRequest(customer, req)
	}
	if !h.apply(w, customer, &req) {
		return
	}
	customer.UpdatedAt = time.Now().UTC()

	if err := h.customers.UpdateCustomer(ctx, customer); err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			h.sendError(w, "Customer not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update customer", slog.Any("error", err))
		h.sendError(w, "Failed to update customer", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, customer.ID, models.AuditUpdate, customer)
	h.sendJSON(w, customer, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/customers/{id} (мягкое удаление)
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.customers.SoftDeleteCustomer(ctx, id, caller.UserID, time.Now().UTC()); err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			h.sendError(w, "Customer not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to delete customer", slog.Any("error", err))
		h.sendError(w, "Failed to delete customer", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, id, models.AuditDelete, nil)
	h.sendJSON(w, map[string]string{"message": "Customer deleted successfully"}, http.StatusOK)
}

// Restore обрабатывает POST /api/v1/customers/{id}/restore.
// Восстановить может удаливший, его руководитель или SUPER_ADMIN.
func (h *CustomerHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	customer, ok := h.load(w, r)
	if !ok {
		return
	}
	if !customer.IsDeleted() {
		h.sendError(w, "Customer is not deleted", http.StatusConflict)
		return
	}

	if !h.mayRestore(w, r, caller.UserID, models.Role(caller.Role), customer) {
		return
	}

	if err := h.customers.RestoreCustomer(ctx, customer.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, storage.ErrCustomerNotDeleted) {
			h.sendError(w, "Customer is not deleted", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to restore customer", slog.Any("error", err))
		h.sendError(w, "Failed to restore customer", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, customer.ID, models.AuditRestore, nil)
	h.sendJSON(w, map[string]string{"message": "Customer restored successfully"}, http.StatusOK)
}

// Anonymize обрабатывает POST /api/v1/customers/{id}/anonymize.
// Пока у клиента есть портфель, обезличивание запрещено.
func (h *CustomerHandler) Anonymize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	customer, ok := h.loadActive(w, r)
	if !ok {
		return
	}
	if customer.HasPortfolio() {
		h.sendError(w, "Cannot anonymize customer with active portfolio", http.StatusConflict)
		return
	}

	customer.Anonymize()
	customer.UpdatedAt = time.Now().UTC()

	if err := h.customers.AnonymizeCustomer(ctx, customer); err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			h.sendError(w, "Customer not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to anonymize customer", slog.Any("error", err))
		h.sendError(w, "Failed to anonymize customer", http.StatusInternalServerError)
		return
	}

	// снимок не пишем: в аудите не должно остаться персональных данных
	h.trail.record(r, caller.UserID, customer.ID, models.AuditAnonymize, nil)
	h.sendJSON(w, customer, http.StatusOK)
}

func (h *CustomerHandler) mayRestore(w http.ResponseWriter, r *http.Request, callerID string, role models.Role, c *models.Customer) bool {
	if role == models.RoleSuperAdmin {
		return true
	}
	if c.DeletedBy == nil {
		h.sendError(w, "Cannot restore record with unknown deleter", http.StatusForbidden)
		return false
	}
	if *c.DeletedBy == callerID {
		return true
	}

	deleter, err := h.accounts.GetAccountByID(r.Context(), *c.DeletedBy)
	if err != nil && !errors.Is(err, storage.ErrAccountNotFound) {
		h.logger.ErrorContext(r.Context(), "failed to verify deleter", slog.Any("error", err))
		h.sendError(w, "Failed to verify deleter identity", http.StatusInternalServerError)
		return false
	}
	if err == nil && deleter.SupervisorID != nil && *deleter.SupervisorID == callerID {
		return true
	}

	h.sendError(w, "Forbidden: only the deleter or their supervisor can restore", http.StatusForbidden)
	return false
}

// load возвращает клиента вместе с удаленными; нужен только Restore
func (h *CustomerHandler) load(w http.ResponseWriter, r *http.Request) (*models.Customer, bool) {
	return loadCustomer(h.responder, h.customers, w, r, mux.Vars(r)["id"], true)
}

func (h *CustomerHandler) loadActive(w http.ResponseWriter, r *http.Request) (*models.Customer, bool) {
	return loadCustomer(h.responder, h.customers, w, r, mux.Vars(r)["id"], false)
}

// loadCustomer пишет 404 для отсутствующего клиента, а без withDeleted и для удаленного
func loadCustomer(
	h responder,
	customers storage.CustomerStorage,
	w http.ResponseWriter,
	r *http.Request,
	id string,
	withDeleted bool,
) (*models.Customer, bool) {
	customer, err := customers.GetCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrCustomerNotFound) {
			h.sendError(w, "Customer not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "failed to get customer", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	if customer.IsDeleted() && !withDeleted {
		h.sendError(w, "Customer not found", http.StatusNotFound)
		return nil, false
	}
	return customer, true
}

// apply проверяет req и переносит его в c, телефон в E.164
func (h *CustomerHandler) apply(w http.ResponseWriter, c *models.Customer, req *api.CustomerRequest) bool {
	if err := validation.Customer(req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return false
	}

	phone := ""
	if req.Phone != "" {
		normalized, err := validation.NormalizePhone(req.Phone, validation.DefaultRegion)
		if err != nil {
			h.sendError(w, "phone: "+err.Error(), http.StatusBadRequest)
			return false
		}
		phone = normalized
	}

	c.Type = models.CustomerType(req.Type)
	c.FirstName = req.FirstName
	c.LastName = req.LastName
	c.CompanyName = req.CompanyName
	c.Email = req.Email
	c.Phone = phone
	c.MembershipTier = req.MembershipTier
	c.PortfolioSize = 0
	if req.PortfolioSize != nil {
		c.PortfolioSize = *req.PortfolioSize
	}
	if req.Status != "" {
		c.Status = models.CustomerStatus(req.Status)
	}
	return true
}

// auditTrail пишет записи аудита по клиентам. Ошибка записи только логируется.
type auditTrail struct {
	logger *slog.Logger
	store  storage.AuditStorage
}

// record сохраняет действие над клиентом; snapshot, если задан, пишется как JSON
func (t auditTrail) record(r *http.Request, userID, customerID, action string, snapshot any) {
	entry := &models.AuditLog{
		ID:          uuid.New().String(),
		EntityID:    customerID,
		EntityType:  customerEntity,
		Action:      action,
		PerformedBy: userID,
		IPAddress:   clientIP(r),
		Timestamp:   time.Now().UTC(),
	}
	if snapshot != nil {
		if raw, err := json.Marshal(snapshot); err == nil {
			entry.Changes = string(raw)
		}
	}

	if err := t.store.CreateAuditLog(r.Context(), entry); err != nil {
		t.logger.ErrorContext(r.Context(), "failed to write audit log",
			slog.String("action", action),
			slog.String("customer_id", customerID),
			slog.Any("error", err))
	}
}

func mergeCustomerRequest(c *models.Customer, req api.CustomerRequest) api.CustomerRequest {
	pick := func(v, current string) string {
		if v != "" {
			return v
		}
		return current
	}
	portfolio := req.PortfolioSize
	if portfolio == nil {
		current := c.PortfolioSize
		portfolio = &current
	}
	return api.CustomerRequest{
		PortfolioSize:  portfolio,
		Type:           pick(req.Type, string(c.Type)),
		FirstName:      pick(req.FirstName, c.FirstName),
		LastName:       pick(req.LastName, c.LastName),
		CompanyName:    pick(req.CompanyName, c.CompanyName),
		Email:          pick(req.Email, c.Email),
		Phone:          pick(req.Phone, c.Phone),
		Status:         pick(req.Status, string(c.Status)),
		MembershipTier: pick(req.MembershipTier, c.MembershipTier),
	}
}
