package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/server/metrics"
)

// Сообщения клиенту при отказе. Внутренние причины пишутся только в лог.
const (
	MsgMissingAuthHeader = "Missing authorization header"
	MsgInvalidAuthFormat = "Invalid authorization header format"
	MsgInvalidToken      = "Invalid token"
	MsgMissingAPIKey     = "Missing API key"
	MsgInvalidAPIKey     = "Invalid API key"
)

// APIKeyHeader заголовок с API ключом
const APIKeyHeader = "X-API-Key"

// Rejection описывает, почему стратегия отклонила запрос
type Rejection struct {
	Err     error  // внутренняя причина, клиенту не отдается
	Message string // тело ответа 401
}

// Strategy проверяет единственный способ входа, настроенный для маршрута
type Strategy interface {
	Name() string
	Authenticate(r *http.Request) (*auth.Identity, *Rejection)
}

// TokenVerifier реализуется *auth.TokenIssuer
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// KeyAuthenticator реализуется *auth.APIKeyAuthenticator
type KeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey string) (*auth.Identity, error)
}

// BearerStrategy аутентифицирует по "Authorization: Bearer <token>"
type BearerStrategy struct {
	verifier TokenVerifier
}

// NewBearerStrategy создает bearer стратегию поверх verifier
func NewBearerStrategy(verifier TokenVerifier) *BearerStrategy {
	return &BearerStrategy{verifier: verifier}
}

// Name возвращает метку стратегии для метрик
func (s *BearerStrategy) Name() string {
	return string(auth.MethodBearer)
}

// Authenticate разбирает заголовок Authorization и проверяет токен
func (s *BearerStrategy) Authenticate(r *http.Request) (*auth.Identity, *Rejection) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, &Rejection{Message: MsgMissingAuthHeader, Err: auth.ErrMissingHeader}
	}

	// Ожидаем ровно: "Bearer <token>"
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, &Rejection{Message: MsgInvalidAuthFormat, Err: auth.ErrMalformedHeader}
	}

	claims, err := s.verifier.Verify(parts[1])
	if err != nil {
		return nil, &Rejection{Message: MsgInvalidToken, Err: err}
	}

	return &auth.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
		Role:     claims.Role,
		Method:   auth.MethodBearer,
	}, nil
}

// APIKeyStrategy аутентифицирует по заголовку X-API-Key
type APIKeyStrategy struct {
	authenticator KeyAuthenticator
}

// NewAPIKeyStrategy создает стратегию API ключей поверх authenticator
func NewAPIKeyStrategy(authenticator KeyAuthenticator) *APIKeyStrategy {
	return &APIKeyStrategy{authenticator: authenticator}
}

// Name возвращает метку стратегии для метрик
func (s *APIKeyStrategy) Name() string {
	return string(auth.MethodAPIKey)
}

// Authenticate находит аккаунт-владелец ключа
func (s *APIKeyStrategy) Authenticate(r *http.Request) (*auth.Identity, *Rejection) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		return nil, &Rejection{Message: MsgMissingAPIKey, Err: auth.ErrMissingKey}
	}

	identity, err := s.authenticator.Authenticate(r.Context(), key)
	if err != nil {
		return nil, &Rejection{Message: MsgInvalidAPIKey, Err: err}
	}

	return identity, nil
}

// Authenticate создает middleware, пропускающий запрос дальше только с
// подтвержденной личностью. Каждый маршрут использует ровно одну стратегию.
func Authenticate(logger *slog.Logger, strategy Strategy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, rejection := strategy.Authenticate(r)
			if rejection != nil {
				reason := auth.KindOf(rejection.Err).String()
				metrics.AuthAttemptsTotal.WithLabelValues(strategy.Name(), metrics.OutcomeRejected, reason).Inc()

				// Причину пишем в лог, клиент получает только обобщенное сообщение
				logger.Warn("Authentication rejected",
					"strategy", strategy.Name(),
					"reason", reason,
					"error", rejection.Err,
					"path", sanitizePath(r.URL.Path),
					"remote_addr", r.RemoteAddr,
				)

				writeError(w, http.StatusUnauthorized, rejection.Message)
				return
			}

			metrics.AuthAttemptsTotal.WithLabelValues(strategy.Name(), metrics.OutcomeSuccess, "").Inc()
			logger.Debug("Request authenticated", "strategy", strategy.Name(), "user_id", identity.UserID)

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
