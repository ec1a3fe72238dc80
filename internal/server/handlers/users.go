package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
	"github.com/iudanet/custadmin/internal/validation"
	"github.com/iudanet/custadmin/pkg/api"
)

// UserHandler управляет учетными записями сотрудников
type UserHandler struct {
	responder
	accounts storage.AccountStorage
	hasher   *auth.PasswordHasher
}

// NewUserHandler создает handler для управления пользователями
func NewUserHandler(logger *slog.Logger, accounts storage.AccountStorage, hasher *auth.PasswordHasher) *UserHandler {
	return &UserHandler{responder: responder{logger: logger}, accounts: accounts, hasher: hasher}
}

// List обрабатывает GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	accounts, err := h.accounts.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list accounts", slog.Any("error", err))
		h.sendError(w, "Failed to fetch users", http.StatusInternalServerError)
		return
	}

	out := make([]api.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAPIAccount(a))
	}
	h.sendJSON(w, out, http.StatusOK)
}

// Get обрабатывает GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := h.load(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	h.sendJSON(w, toAPIAccount(account), http.StatusOK)
}

// Create обрабатывает POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.CreateUser(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.supervisorExists(w, r, req.SupervisorID) {
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.Role(req.Role),
		SupervisorID: nonEmpty(req.SupervisorID),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountAlreadyExists) {
			h.sendError(w, "User already exists", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create account", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "account created",
		slog.String("user_id", account.ID),
		slog.String("role", string(account.Role)))

	h.sendJSON(w, toAPIAccount(account), http.StatusCreated)
}

// Update обрабатывает PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req api.UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.UpdateUser(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.IsActive != nil && !*req.IsActive {
		if caller, ok := identity(r); ok && caller.UserID == id {
			h.sendError(w, "Cannot deactivate your own account", http.StatusBadRequest)
			return
		}
	}
	if req.SupervisorID != nil && *req.SupervisorID == id {
		h.sendError(w, "User cannot supervise themselves", http.StatusBadRequest)
		return
	}
	if !h.supervisorExists(w, r, req.SupervisorID) {
		return
	}

	account, ok := h.load(w, r, id)
	if !ok {
		return
	}

	if req.Email != nil {
		account.Email = *req.Email
	}
	if req.Role != nil {
		account.Role = models.Role(*req.Role)
	}
	if req.IsActive != nil {
		account.IsActive = *req.IsActive
	}
	if req.SupervisorID != nil {
		account.SupervisorID = nonEmpty(req.SupervisorID)
	}
	account.UpdatedAt = time.Now().UTC()

	if err := h.accounts.UpdateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.sendError(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update account", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, toAPIAccount(account), http.StatusOK)
}

// Deactivate обрабатывает DELETE /api/v1/users/{id}.
// Учетная запись только деактивируется, удалить себя нельзя.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if caller, ok := identity(r); ok && caller.UserID == id {
		h.sendError(w, "Cannot deactivate your own account", http.StatusBadRequest)
		return
	}

	if err := h.accounts.DeactivateAccount(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.sendError(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to deactivate account", slog.Any("error", err))
		h.sendError(w, "Failed to deactivate user", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "account deactivated", slog.String("user_id", id))
	h.sendJSON(w, map[string]string{"message": "User deactivated successfully"}, http.StatusOK)
}

func (h *UserHandler) load(w http.ResponseWriter, r *http.Request, id string) (*models.Account, bool) {
	account, err := h.accounts.GetAccountByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.sendError(w, "User not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.ErrorContext(r.Context(), "failed to get account", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return account, true
}

func (h *UserHandler) supervisorExists(w http.ResponseWriter, r *http.Request, id *string) bool {
	if id == nil || *id == "" {
		return true
	}
	_, err := h.accounts.GetAccountByID(r.Context(), *id)
	switch {
	case err == nil:
		return true
	case errors.Is(err, storage.ErrAccountNotFound):
		h.sendError(w, "Supervisor not found", http.StatusBadRequest)
	default:
		h.logger.ErrorContext(r.Context(), "failed to get supervisor", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
	}
	return false
}

// nonEmpty превращает пустую строку в nil
func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
