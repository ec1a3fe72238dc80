// Package server собирает HTTP сервер: маршруты, аутентификацию и middleware.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/oauth2"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/config"
	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/handlers"
	"github.com/iudanet/custadmin/internal/server/middleware"
	"github.com/iudanet/custadmin/internal/server/metrics"
	"github.com/iudanet/custadmin/internal/server/storage"
)

// idPattern ограничивает {id} форматом UUID, чтобы /customers/search
// и /customers/deleted не попадали в маршруты одного клиента
const idPattern = "{id:[0-9a-fA-F-]{36}}"

// Options общие для всех запросов настройки аутентификации
type Options struct {
	Hasher      *auth.PasswordHasher
	Tokens      *auth.TokenIssuer
	OAuth       *oauth2.Config // nil отключает OAuth
	CORSOrigins []string
	Version     string

	// TrustedProxies могут передавать адрес клиента в X-Forwarded-For
	TrustedProxies []netip.Prefix
}

// NewRouter собирает весь HTTP handler
func NewRouter(logger *slog.Logger, store storage.Storage, opts Options) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = jsonError(http.StatusNotFound, "Not found")
	r.MethodNotAllowedHandler = jsonError(http.StatusMethodNotAllowed, "Method not allowed")
	r.Use(metrics.Middleware)

	authHandler := handlers.NewAuthHandler(logger, store, opts.Hasher, opts.Tokens, opts.OAuth)
	keyHandler := handlers.NewAPIKeyHandler(logger, store)
	userHandler := handlers.NewUserHandler(logger, store, opts.Hasher)
	customerHandler := handlers.NewCustomerHandler(logger, store, store, store)
	profileHandler := handlers.NewProfileHandler(logger, store, store, store)
	postHandler := handlers.NewPostHandler(logger, store)
	auditHandler := handlers.NewAuditHandler(logger, store)
	healthHandler := handlers.NewHealthHandler(logger, store, opts.Version)
	extHandler := handlers.NewExtHandler(logger, store)

	bearer := middleware.Authenticate(logger, middleware.NewBearerStrategy(opts.Tokens))
	apiKey := middleware.Authenticate(logger,
		middleware.NewAPIKeyStrategy(auth.NewAPIKeyAuthenticator(store)))

	// Публичные маршруты
	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/oauth/google", authHandler.OAuthGoogle).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/oauth/callback", authHandler.OAuthCallback).Methods(http.MethodGet)

	// Интеграции: только X-API-Key
	ext := r.PathPrefix("/api/ext").Subrouter()
	ext.Use(apiKey)
	ext.HandleFunc("/customers", extHandler.Customers).Methods(http.MethodGet)
	ext.HandleFunc("/whoami", extHandler.WhoAmI).Methods(http.MethodGet)

	// Ресурсы: только Bearer, права по уровням ролей
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(bearer)

	v1.HandleFunc("/posts", postHandler.List).Methods(http.MethodGet)
	v1.HandleFunc("/posts", postHandler.Create).Methods(http.MethodPost)
	v1.HandleFunc("/posts/"+idPattern, postHandler.Get).Methods(http.MethodGet)
	v1.HandleFunc("/posts/"+idPattern, postHandler.Update).Methods(http.MethodPut)
	v1.HandleFunc("/posts/"+idPattern, postHandler.Delete).Methods(http.MethodDelete)

	viewer := v1.NewRoute().Subrouter()
	viewer.Use(middleware.RequireAtLeast(models.RoleViewer))
	viewer.HandleFunc("/customers", customerHandler.List).Methods(http.MethodGet)
	viewer.HandleFunc("/customers/search", customerHandler.Search).Methods(http.MethodGet)
	viewer.HandleFunc("/customers/"+idPattern, customerHandler.Get).Methods(http.MethodGet)
	viewer.HandleFunc("/customers/"+idPattern+"/addresses", profileHandler.ListAddresses).Methods(http.MethodGet)
	viewer.HandleFunc("/customers/"+idPattern+"/identities", profileHandler.ListIdentities).Methods(http.MethodGet)
	viewer.HandleFunc("/customers/"+idPattern+"/relationships", profileHandler.ListRelationships).Methods(http.MethodGet)
	viewer.HandleFunc("/customers/"+idPattern+"/consents", profileHandler.CustomerConsents).Methods(http.MethodGet)
	viewer.HandleFunc("/consents", profileHandler.ListConsents).Methods(http.MethodGet)
	viewer.HandleFunc("/consents/"+idPattern, profileHandler.GetConsent).Methods(http.MethodGet)
	viewer.HandleFunc("/audit-logs", auditHandler.List).Methods(http.MethodGet)
	viewer.HandleFunc("/audit-logs/"+idPattern, auditHandler.Get).Methods(http.MethodGet)

	operator := v1.NewRoute().Subrouter()
	operator.Use(middleware.RequireAtLeast(models.RoleOperator))
	operator.HandleFunc("/customers", customerHandler.Create).Methods(http.MethodPost)
	operator.HandleFunc("/customers/"+idPattern, customerHandler.Update).Methods(http.MethodPut, http.MethodPatch)
	operator.HandleFunc("/customers/"+idPattern+"/addresses", profileHandler.AddAddress).Methods(http.MethodPost)
	operator.HandleFunc("/customers/"+idPattern+"/identities", profileHandler.AddIdentity).Methods(http.MethodPost)
	operator.HandleFunc("/customers/"+idPattern+"/relationships", profileHandler.AddRelationship).Methods(http.MethodPost)
	operator.HandleFunc("/customers/"+idPattern+"/consents", profileHandler.RecordConsent).Methods(http.MethodPost)

	admin := v1.NewRoute().Subrouter()
	admin.Use(middleware.RequireAtLeast(models.RoleAdmin))
	admin.HandleFunc("/customers/deleted", customerHandler.ListDeleted).Methods(http.MethodGet)
	admin.HandleFunc("/customers/"+idPattern, customerHandler.Delete).Methods(http.MethodDelete)
	admin.HandleFunc("/customers/"+idPattern+"/restore", customerHandler.Restore).Methods(http.MethodPost)
	admin.HandleFunc("/customers/"+idPattern+"/anonymize", customerHandler.Anonymize).Methods(http.MethodPost)
	admin.HandleFunc("/users", userHandler.List).Methods(http.MethodGet)
	admin.HandleFunc("/users/"+idPattern, userHandler.Get).Methods(http.MethodGet)

	superAdmin := v1.NewRoute().Subrouter()
	superAdmin.Use(middleware.RequireRole(models.RoleSuperAdmin))
	superAdmin.HandleFunc("/users", userHandler.Create).Methods(http.MethodPost)
	superAdmin.HandleFunc("/users/"+idPattern, userHandler.Update).Methods(http.MethodPut)
	superAdmin.HandleFunc("/users/"+idPattern, userHandler.Deactivate).Methods(http.MethodDelete)

	// Учетная запись и ключи текущего пользователя
	account := r.PathPrefix("/api").Subrouter()
	account.Use(bearer)
	account.HandleFunc("/users/me", authHandler.Me).Methods(http.MethodGet)
	account.HandleFunc("/keys", keyHandler.List).Methods(http.MethodGet)
	account.HandleFunc("/keys", keyHandler.Create).Methods(http.MethodPost)
	account.HandleFunc("/keys/"+idPattern, keyHandler.Revoke).Methods(http.MethodDelete)

	var h http.Handler = r
	h = middleware.Logging(logger, "/health", "/metrics")(h)
	h = middleware.RealIP(opts.TrustedProxies)(h)
	h = middleware.Recovery(logger)(h)
	h = newCORS(opts.CORSOrigins).Handler(h)
	return h
}

func newCORS(origins []string) *cors.Cors {
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.APIKeyHeader},
		// с "*" браузеры не передают credentials
		AllowCredentials: !allowAll,
	})
}

func jsonError(status int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", message)
	})
}

// OAuthConfig собирает конфиг oauth2 клиента или nil, если OAuth выключен
func OAuthConfig(cfg config.OAuthConfig) *oauth2.Config {
	if !cfg.Enabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
		},
	}
}

// Server обертка над http.Server с graceful shutdown
type Server struct {
	logger          *slog.Logger
	httpServer      *http.Server
	shutdownTimeout time.Duration
}

// New создает сервер по cfg. Секреты и стоимость bcrypt читаются один раз.
// cfg должен быть уже провалидирован.
func New(cfg *config.Config, logger *slog.Logger, store storage.Storage, version string) *Server {
	proxies, err := cfg.Server.ProxyPrefixes()
	if err != nil {
		logger.Warn("ignoring trusted proxies", slog.Any("error", err))
		proxies = nil
	}

	opts := Options{
		Hasher: auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Tokens: auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret),
			auth.WithIssuer(cfg.Auth.Issuer),
			auth.WithTTL(cfg.Auth.TokenTTL)),
		OAuth:          OAuthConfig(cfg.OAuth),
		CORSOrigins:    cfg.Server.CORSOrigins,
		TrustedProxies: proxies,
		Version:        version,
	}

	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           NewRouter(logger, store, opts),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       2 * cfg.Server.WriteTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Run обслуживает запросы до отмены ctx, затем дожидается текущих
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve это Run на готовом listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
