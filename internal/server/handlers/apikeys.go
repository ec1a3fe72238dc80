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

// APIKeyHandler управляет API ключами текущего пользователя
type APIKeyHandler struct {
	responder
	keys storage.APIKeyStorage
}

// NewAPIKeyHandler создает handler для API ключей
func NewAPIKeyHandler(logger *slog.Logger, keys storage.APIKeyStorage) *APIKeyHandler {
	return &APIKeyHandler{responder: responder{logger: logger}, keys: keys}
}

// Create обрабатывает POST /api/keys.
// Сырой ключ возвращается только в этом ответе.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.CreateAPIKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.CreateAPIKey(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		h.sendError(w, "expires_at must be in the future", http.StatusBadRequest)
		return
	}

	raw, prefix, hash, err := auth.GenerateAPIKey()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate api key", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	key := &models.APIKey{
		ID:        uuid.New().String(),
		UserID:    id.UserID,
		Name:      req.Name,
		Prefix:    prefix,
		KeyHash:   hash,
		ExpiresAt: req.ExpiresAt,
		IsActive:  true,
		CreatedAt: now,
	}

	if err := h.keys.CreateAPIKey(ctx, key); err != nil {
		h.logger.ErrorContext(ctx, "failed to store api key", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "api key created",
		slog.String("user_id", id.UserID),
		slog.String("key_id", key.ID),
		slog.String("prefix", prefix))

	h.sendJSON(w, api.CreateAPIKeyResponse{Key: raw, APIKey: toAPIKey(key)}, http.StatusCreated)
}

// List обрабатывает GET /api/keys
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	keys, err := h.keys.ListAPIKeys(r.Context(), id.UserID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list api keys", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	out := make([]api.APIKey, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKey(k))
	}
	h.sendJSON(w, out, http.StatusOK)
}

// Revoke обрабатывает DELETE /api/keys/{id}
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	keyID := mux.Vars(r)["id"]
	if err := h.keys.RevokeAPIKey(r.Context(), keyID, id.UserID); err != nil {
		if errors.Is(err, storage.ErrAPIKeyNotFound) {
			h.sendError(w, "API key not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to revoke api key", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(r.Context(), "api key revoked",
		slog.String("user_id", id.UserID), slog.String("key_id", keyID))
	w.WriteHeader(http.StatusNoContent)
}

func toAPIKey(k *models.APIKey) api.APIKey {
	return api.APIKey{
		ID:         k.ID,
		Name:       k.Name,
		Prefix:     k.Prefix,
		IsActive:   k.IsActive,
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		LastUsedAt: k.LastUsedAt,
	}
}
