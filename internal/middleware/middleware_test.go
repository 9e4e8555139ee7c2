package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IdkwhatImD0ing/PortfolioV3/pkg/logger"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, scopes []string, expires time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Scopes: scopes,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func protected() http.Handler {
	return Auth(testSecret)(RequireScope(ScopeSessionsRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetSubject(r.Context())))
	})))
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad signature", "Bearer " + signToken(t, "other", []string{ScopeSessionsRead}, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, []string{ScopeSessionsRead}, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		{"missing scope", "Bearer " + signToken(t, testSecret, nil, time.Now().Add(time.Hour)), http.StatusForbidden},
		{"valid", "Bearer " + signToken(t, testSecret, []string{ScopeSessionsRead}, time.Now().Add(time.Hour)), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected().ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "ops", rec.Body.String())
			}
		})
	}
}

func TestAuth_EmptySecretRejects(t *testing.T) {
	h := Auth("")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, []string{ScopeSessionsRead}, time.Now().Add(time.Hour)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogging_CorrelationID(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Logging(logger.Nop()))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetCorrelationID(r.Context())))
	})

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		id := rec.Header().Get("X-Correlation-ID")
		assert.NotEmpty(t, id)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", "abc-123")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Correlation-ID"))
		assert.Equal(t, "abc-123", rec.Body.String())
	})
}

func TestLogging_PreservesFlusher(t *testing.T) {
	var flushable bool
	h := Logging(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, flushable = w.(http.Flusher)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.True(t, flushable)
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("call_8a7f-XY"))
	assert.Error(t, ValidateID(""))
	assert.Error(t, ValidateID("a/b"))
	assert.Error(t, ValidateID("with space"))
	assert.Error(t, ValidateID(string(make([]byte, 129))))
}

func TestValidateRoleAndContent(t *testing.T) {
	assert.NoError(t, ValidateRole("user"))
	assert.NoError(t, ValidateRole("assistant"))
	assert.Error(t, ValidateRole("system"))

	assert.NoError(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent(string([]byte{0xff, 0xfe})))
}
