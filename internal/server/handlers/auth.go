package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
	"github.com/iudanet/custadmin/internal/validation"
	"github.com/iudanet/custadmin/pkg/api"
)

const oauthStateCookie = "custadmin_oauth_state"

// AuthHandler обрабатывает регистрацию, вход и текущего пользователя
type AuthHandler struct {
	responder
	accounts storage.AccountStorage
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenIssuer
	oauth    *oauth2.Config
	// dummyHash сравнивается при неизвестном username, чтобы время ответа не выдавало существование аккаунта
	dummyHash string
}

// NewAuthHandler создает новый handler для авторизации.
// oauthConfig может быть nil, тогда OAuth маршруты отвечают 501.
func NewAuthHandler(
	logger *slog.Logger,
	accounts storage.AccountStorage,
	hasher *auth.PasswordHasher,
	tokens *auth.TokenIssuer,
	oauthConfig *oauth2.Config,
) *AuthHandler {
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", slog.Any("error", err))
	}

	return &AuthHandler{
		responder: responder{logger: logger},
		accounts:  accounts,
		hasher:    hasher,
		tokens:    tokens,
		oauth:     oauthConfig,
		dummyHash: dummy,
	}
}

// Register обрабатывает POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.Register(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			slog.String("username", req.Username), slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
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
		Role:         models.RoleOperator,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountAlreadyExists) {
			h.logger.WarnContext(ctx, "account already exists", slog.String("username", req.Username))
			h.sendError(w, "User already exists", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create account", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "account registered",
		slog.String("username", account.Username),
		slog.String("user_id", account.ID))

	h.respondWithToken(w, r, account, http.StatusCreated)
}

// Login обрабатывает POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.Login(&req); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	account, err := h.accounts.GetActiveAccountByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, storage.ErrAccountNotFound) {
			h.logger.ErrorContext(ctx, "failed to get account", slog.Any("error", err))
			h.sendError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		h.hasher.Verify(req.Password, h.dummyHash)
		h.logger.WarnContext(ctx, "login for unknown or inactive account", slog.String("username", req.Username))
		h.sendError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !h.hasher.Verify(req.Password, account.PasswordHash) {
		h.logger.WarnContext(ctx, "wrong password", slog.String("username", req.Username))
		h.sendError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.logger.InfoContext(ctx, "account logged in", slog.String("user_id", account.ID))
	h.respondWithToken(w, r, account, http.StatusOK)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, account *models.Account, status int) {
	token, expiresAt, err := h.tokens.Issue(auth.Subject{
		UserID:   account.ID,
		Username: account.Username,
		Email:    account.Email,
		Role:     string(account.Role),
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue token", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, api.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      toAPIAccount(account),
	}, status)
}

// Me обрабатывает GET /api/users/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := identity(r)
	if !ok {
		h.sendError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	account, err := h.accounts.GetAccountByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			h.sendError(w, "User not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get account", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// токен мог быть выдан до деактивации
	if !account.IsActive {
		h.sendError(w, "Account is deactivated", http.StatusForbidden)
		return
	}

	h.sendJSON(w, toAPIAccount(account), http.StatusOK)
}

// OAuthGoogle обрабатывает GET /api/auth/oauth/google
func (h *AuthHandler) OAuthGoogle(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.sendJSON(w, api.ErrorResponse{
			Error:   "OAuth is not configured",
			Message: "set oauth client id, secret and redirect url",
		}, http.StatusNotImplemented)
		return
	}

	state, err := newOAuthState()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate oauth state", slog.Any("error", err))
		h.sendError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/oauth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

// OAuthCallback обрабатывает GET /api/auth/oauth/callback.
// Проверяется только state; аккаунты у провайдера не создаются.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil {
		h.sendError(w, "OAuth is not configured", http.StatusNotImplemented)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.logger.WarnContext(r.Context(), "oauth state mismatch")
		h.sendError(w, "Invalid OAuth state", http.StatusBadRequest)
		return
	}

	h.sendError(w, "OAuth login is not implemented", http.StatusNotImplemented)
}

func newOAuthState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func toAPIAccount(a *models.Account) api.Account {
	return api.Account{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		Role:         string(a.Role),
		IsActive:     a.IsActive,
		SupervisorID: a.SupervisorID,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
