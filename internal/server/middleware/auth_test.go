package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/server/metrics"
)

var testSecret = []byte("test-secret-key-at-least-32-bytes!!")

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// identityHandler echoes the identity attached by the gateway
func identityHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.IdentityFromContext(r.Context())
		require.True(t, ok, "identity should be in context")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(identity)
	}
}

// mustNotRun fails the test if downstream is reached
func mustNotRun(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("Handler should not be called")
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	return body["error"]
}

func authAttempts(t *testing.T, labels ...string) float64 {
	t.Helper()
	m := &dto.Metric{}
	c, err := metrics.AuthAttemptsTotal.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)
	require.NoError(t, c.(prometheus.Metric).Write(m))
	return m.GetCounter().GetValue()
}

func TestAuthenticate_Bearer_Success(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret)
	token, _, err := issuer.Issue(auth.Subject{
		UserID:   "user123",
		Username: "testuser",
		Email:    "test@example.com",
		Role:     "ADMIN",
	})
	require.NoError(t, err)

	before := authAttempts(t, "bearer", metrics.OutcomeSuccess, "")

	handler := Authenticate(setupTestLogger(), NewBearerStrategy(issuer))(identityHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var identity auth.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, "user123", identity.UserID)
	assert.Equal(t, "testuser", identity.Username)
	assert.Equal(t, "test@example.com", identity.Email)
	assert.Equal(t, "ADMIN", identity.Role)
	assert.Equal(t, auth.MethodBearer, identity.Method)

	assert.Equal(t, before+1, authAttempts(t, "bearer", metrics.OutcomeSuccess, ""))
}

func TestAuthenticate_Bearer_Rejections(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	issuer := auth.NewTokenIssuer(testSecret, auth.WithClock(func() time.Time { return now }))

	valid, _, err := issuer.Issue(auth.Subject{UserID: "user123", Username: "testuser"})
	require.NoError(t, err)

	foreign, _, err := auth.NewTokenIssuer([]byte("another-secret-key-of-enough-length")).
		Issue(auth.Subject{UserID: "user123"})
	require.NoError(t, err)

	handler := Authenticate(setupTestLogger(), NewBearerStrategy(issuer))(mustNotRun(t))

	tests := []struct {
		name        string
		header      string
		wantMessage string
		wantReason  string
		advance     time.Duration
		setHeader   bool
	}{
		{name: "no header", wantMessage: MsgMissingAuthHeader, wantReason: "missing"},
		{name: "Bearer alone", header: "Bearer", setHeader: true, wantMessage: MsgInvalidAuthFormat, wantReason: "malformed"},
		{name: "other scheme", header: "Token abc", setHeader: true, wantMessage: MsgInvalidAuthFormat, wantReason: "malformed"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", setHeader: true, wantMessage: MsgInvalidAuthFormat, wantReason: "malformed"},
		{name: "lowercase scheme", header: "bearer " + valid, setHeader: true, wantMessage: MsgInvalidAuthFormat, wantReason: "malformed"},
		{name: "too many parts", header: "Bearer a b", setHeader: true, wantMessage: MsgInvalidAuthFormat, wantReason: "malformed"},
		{name: "garbage token", header: "Bearer randomstring123", setHeader: true, wantMessage: MsgInvalidToken, wantReason: "malformed"},
		{name: "empty token", header: "Bearer ", setHeader: true, wantMessage: MsgInvalidToken, wantReason: "malformed"},
		{name: "wrong secret", header: "Bearer " + foreign, setHeader: true, wantMessage: MsgInvalidToken, wantReason: "invalid"},
		{name: "expired", header: "Bearer " + valid, setHeader: true, advance: 25 * time.Hour, wantMessage: MsgInvalidToken, wantReason: "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = start.Add(tt.advance)
			before := authAttempts(t, "bearer", metrics.OutcomeRejected, tt.wantReason)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.setHeader {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantMessage, decodeError(t, w))
			assert.Equal(t, before+1, authAttempts(t, "bearer", metrics.OutcomeRejected, tt.wantReason))
		})
	}
}

func TestAuthenticate_Bearer_IgnoresAPIKey(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret)
	handler := Authenticate(setupTestLogger(), NewBearerStrategy(issuer))(mustNotRun(t))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(APIKeyHeader, "cak_something")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, MsgMissingAuthHeader, decodeError(t, w))
}

// stubKeyAuthenticator maps raw keys to results
type stubKeyAuthenticator struct {
	identities map[string]*auth.Identity
	errs       map[string]error
}

func (s *stubKeyAuthenticator) Authenticate(_ context.Context, raw string) (*auth.Identity, error) {
	if raw == "" {
		return nil, auth.ErrMissingKey
	}
	if err, ok := s.errs[raw]; ok {
		return nil, err
	}
	if id, ok := s.identities[raw]; ok {
		return id, nil
	}
	return nil, auth.ErrKeyNotFound
}

func TestAuthenticate_APIKey(t *testing.T) {
	stub := &stubKeyAuthenticator{
		identities: map[string]*auth.Identity{
			"cak_good": {UserID: "owner-1", Method: auth.MethodAPIKey},
		},
		errs: map[string]error{
			"cak_expired":  auth.ErrKeyExpired,
			"cak_inactive": auth.ErrKeyInactive,
			"cak_dbdown":   errors.New("connection refused"),
		},
	}

	tests := []struct {
		name        string
		key         string
		wantMessage string
		wantStatus  int
		setHeader   bool
	}{
		{name: "valid key", key: "cak_good", setHeader: true, wantStatus: http.StatusOK},
		{name: "no header", wantStatus: http.StatusUnauthorized, wantMessage: MsgMissingAPIKey},
		{name: "unknown key", key: "cak_unknown", setHeader: true, wantStatus: http.StatusUnauthorized, wantMessage: MsgInvalidAPIKey},
		{name: "expired key", key: "cak_expired", setHeader: true, wantStatus: http.StatusUnauthorized, wantMessage: MsgInvalidAPIKey},
		{name: "inactive key", key: "cak_inactive", setHeader: true, wantStatus: http.StatusUnauthorized, wantMessage: MsgInvalidAPIKey},
		{name: "lookup failure", key: "cak_dbdown", setHeader: true, wantStatus: http.StatusUnauthorized, wantMessage: MsgInvalidAPIKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var next http.Handler = mustNotRun(t)
			if tt.wantStatus == http.StatusOK {
				next = identityHandler(t)
			}
			handler := Authenticate(setupTestLogger(), NewAPIKeyStrategy(stub))(next)

			req := httptest.NewRequest(http.MethodGet, "/api/ext/whoami", nil)
			if tt.setHeader {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, tt.wantMessage, decodeError(t, w))
				return
			}

			var identity auth.Identity
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
			assert.Equal(t, "owner-1", identity.UserID)
			assert.Empty(t, identity.Username)
		})
	}
}

func TestAuthenticate_APIKey_IgnoresBearer(t *testing.T) {
	issuer := auth.NewTokenIssuer(testSecret)
	token, _, err := issuer.Issue(auth.Subject{UserID: "user123"})
	require.NoError(t, err)

	handler := Authenticate(setupTestLogger(), NewAPIKeyStrategy(&stubKeyAuthenticator{}))(mustNotRun(t))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, MsgMissingAPIKey, decodeError(t, w))
}

func TestAuthenticate_LogsReasonNotSecret(t *testing.T) {
	var logBuf strings.Builder
	logger := slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := Authenticate(logger, NewAPIKeyStrategy(&stubKeyAuthenticator{}))(mustNotRun(t))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(APIKeyHeader, "cak_supersecretvalue")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, logBuf.String(), "Authentication rejected")
	assert.Contains(t, logBuf.String(), "api_key")
	assert.NotContains(t, logBuf.String(), "cak_supersecretvalue")
}
