package handlers

import (
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

// ProfileHandler обрабатывает вложенные ресурсы клиента:
// адреса, документы, связи и согласия. Для удаленного клиента все они 404.
type ProfileHandler struct {
	responder
	trail     auditTrail
	customers storage.CustomerStorage
	profiles  storage.ProfileStorage
}

// NewProfileHandler создает handler для вложенных ресурсов клиента
func NewProfileHandler(
	logger *slog.Logger,
	customers storage.CustomerStorage,
	profiles storage.ProfileStorage,
	audit storage.AuditStorage,
) *ProfileHandler {
	return &ProfileHandler{
		responder: responder{logger: logger},
		trail:     auditTrail{logger: logger, store: audit},
		customers: customers,
		profiles:  profiles,
	}
}

// ListAddresses обрабатывает GET /api/v1/customers/{id}/addresses
func (h *ProfileHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customer(w, r)
	if !ok {
		return
	}
	addresses, err := h.profiles.ListAddresses(r.Context(), customer.ID)
	sendList(h, w, r, "addresses", addresses, err)
}

// AddAddress обрабатывает POST /api/v1/customers/{id}/addresses
func (h *ProfileHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Country = upperTrim(req.Country)
	req.Type = upperTrim(req.Type)
	if err := validation.Address(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	customer, ok := h.customer(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	address := &models.Address{
		ID:           uuid.New().String(),
		CustomerID:   customer.ID,
		Type:         req.Type,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		State:        req.State,
		District:     req.District,
		SubDistrict:  req.SubDistrict,
		ZipCode:      req.ZipCode,
		Country:      req.Country,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.profiles.CreateAddress(ctx, address); err != nil {
		h.logger.ErrorContext(ctx, "failed to create address", slog.Any("error", err))
		h.sendError(w, "Failed to add address", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, customer.ID, models.AuditAddAddress, nil)
	h.sendJSON(w, address, http.StatusCreated)
}

// ListIdentities обрабатывает GET /api/v1/customers/{id}/identities
func (h *ProfileHandler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customer(w, r)
	if !ok {
		return
	}
	identities, err := h.profiles.ListIdentities(r.Context(), customer.ID)
	sendList(h, w, r, "identities", identities, err)
}

// AddIdentity обрабатывает POST /api/v1/customers/{id}/identities.
// Номер тайского NATIONAL_ID сохраняется без дефисов.
func (h *ProfileHandler) AddIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.IdentityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Type = upperTrim(req.Type)
	req.IssuanceCountry = upperTrim(req.IssuanceCountry)
	req.Number = strings.TrimSpace(req.Number)
	if err := validation.Identity(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Type == models.IdentityNationalID && req.IssuanceCountry == "TH" {
		req.Number, _ = validation.NormalizeThaiID(req.Number)
	}

	customer, ok := h.customer(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	doc := &models.Identity{
		ID:              uuid.New().String(),
		CustomerID:      customer.ID,
		Type:            req.Type,
		Number:          req.Number,
		IssuanceCountry: req.IssuanceCountry,
		ExpiryDate:      req.ExpiryDate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := h.profiles.CreateIdentity(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrIdentityAlreadyExists) {
			h.sendError(w, "Identity already exists", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create identity", slog.Any("error", err))
		h.sendError(w, "Failed to add identity", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, customer.ID, models.AuditAddIdentity, nil)
	h.sendJSON(w, doc, http.StatusCreated)
}

// ListRelationships обрабатывает GET /api/v1/customers/{id}/relationships
func (h *ProfileHandler) ListRelationships(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customer(w, r)
	if !ok {
		return
	}
	rels, err := h.profiles.ListRelationships(r.Context(), customer.ID)
	sendList(h, w, r, "relationships", rels, err)
}

// AddRelationship обрабатывает POST /api/v1/customers/{id}/relationships
func (h *ProfileHandler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.RelationshipRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Role = upperTrim(req.Role)
	if err := validation.Relationship(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	customer, ok := h.customer(w, r)
	if !ok {
		return
	}
	if strings.EqualFold(req.ToCustomerID, customer.ID) {
		h.sendError(w, "Customer cannot be related to itself", http.StatusBadRequest)
		return
	}

	target, err := h.customers.GetCustomer(ctx, req.ToCustomerID)
	if err != nil && !errors.Is(err, storage.ErrCustomerNotFound) {
		h.logger.ErrorContext(ctx, "failed to get related customer", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err != nil || target.IsDeleted() {
		h.sendError(w, "Related customer not found", http.StatusNotFound)
		return
	}

	rel := &models.Relationship{
		ID:             uuid.New().String(),
		FromCustomerID: customer.ID,
		ToCustomerID:   target.ID,
		Role:           req.Role,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.profiles.CreateRelationship(ctx, rel); err != nil {
		h.logger.ErrorContext(ctx, "failed to create relationship", slog.Any("error", err))
		h.sendError(w, "Failed to add relationship", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, customer.ID, models.AuditAddRelationship, rel)
	h.sendJSON(w, rel, http.StatusCreated)
}

// CustomerConsents обрабатывает GET /api/v1/customers/{id}/consents
func (h *ProfileHandler) CustomerConsents(w http.ResponseWriter, r *http.Request) {
	customer, ok := h.customer(w, r)
	if !ok {
		return
	}
	consents, err := h.profiles.ListCustomerConsents(r.Context(), customer.ID)
	sendList(h, w, r, "consents", consents, err)
}

// RecordConsent обрабатывает POST /api/v1/customers/{id}/consents.
// Каждое решение добавляет новую запись, история не переписывается.
func (h *ProfileHandler) RecordConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.ConsentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	req.Topic = upperTrim(req.Topic)
	if err := validation.Consent(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	customer, ok := h.customer(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	consent := &models.Consent{
		ID:         uuid.New().String(),
		CustomerID: customer.ID,
		Topic:      req.Topic,
		Version:    req.Version,
		IsGranted:  *req.IsGranted,
		Timestamp:  now,
		CreatedAt:  now,
	}

	if err := h.profiles.CreateConsent(ctx, consent); err != nil {
		h.logger.ErrorContext(ctx, "failed to create consent", slog.Any("error", err))
		h.sendError(w, "Failed to record consent", http.StatusInternalServerError)
		return
	}

	h.trail.record(r, caller.UserID, customer.ID, models.AuditConsent, consent)
	h.sendJSON(w, consent, http.StatusCreated)
}

// ListConsents обрабатывает GET /api/v1/consents?topic=&limit=&offset=
func (h *ProfileHandler) ListConsents(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	consents, err := h.profiles.ListConsents(r.Context(), storage.ConsentFilter{
		Topic:  upperTrim(r.URL.Query().Get("topic")),
		Limit:  limit,
		Offset: offset,
	})
	sendList(h, w, r, "consents", consents, err)
}

// GetConsent обрабатывает GET /api/v1/consents/{id}
func (h *ProfileHandler) GetConsent(w http.ResponseWriter, r *http.Request) {
	consent, err := h.profiles.GetConsent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, storage.ErrConsentNotFound) {
			h.sendError(w, "Consent not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get consent", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.sendJSON(w, consent, http.StatusOK)
}

// customer загружает клиента из пути; удаленный клиент считается отсутствующим
func (h *ProfileHandler) customer(w http.ResponseWriter, r *http.Request) (*models.Customer, bool) {
	return loadCustomer(h.responder, h.customers, w, r, mux.Vars(r)["id"], false)
}

// sendList отправляет список; nil превращается в []
func sendList[T any](h *ProfileHandler, w http.ResponseWriter, r *http.Request, what string, items []T, err error) {
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list "+what, slog.Any("error", err))
		h.sendError(w, "Failed to fetch "+what, http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []T{}
	}
	h.sendJSON(w, items, http.StatusOK)
}

func upperTrim(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
