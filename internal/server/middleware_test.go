package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/toolshed/internal/logging"
)

func echoClient() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ClientID(r.Context())))
	})
}

func TestClientIDMiddleware(t *testing.T) {
	h := clientIDMiddleware(false)(echoClient())

	t.Run("issues cookie on first contact", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, ClientCookie, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, cookies[0].Value, rec.Body.String())
		_, err := uuid.Parse(rec.Body.String())
		assert.NoError(t, err)
	})

	t.Run("reuses cookie", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: ClientCookie, Value: id})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Empty(t, rec.Result().Cookies())
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("header wins over cookie", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ClientHeader, id)
		req.AddCookie(&http.Cookie{Name: ClientCookie, Value: uuid.NewString()})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("malformed ids are replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ClientHeader, "'; DROP TABLE history; --")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		_, err := uuid.Parse(rec.Body.String())
		assert.NoError(t, err)
		assert.Len(t, rec.Result().Cookies(), 1)
	})
}

func TestSecurityHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	securityHeaders(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	securityHeaders(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name        string
		allowed     []string
		origin      string
		method      string
		wantStatus  int
		wantAllowed bool
		wantCreds   bool
	}{
		{"allowed origin", []string{"https://tools.example.com"}, "https://tools.example.com", http.MethodGet, http.StatusOK, true, true},
		{"other origin passes without headers", []string{"https://tools.example.com"}, "https://evil.example.com", http.MethodGet, http.StatusOK, false, false},
		{"preflight from other origin", []string{"https://tools.example.com"}, "https://evil.example.com", http.MethodOptions, http.StatusForbidden, false, false},
		{"preflight allowed", []string{"https://tools.example.com"}, "https://tools.example.com", http.MethodOptions, http.StatusNoContent, true, true},
		{"wildcard without credentials", []string{"*"}, "http://localhost:3000", http.MethodGet, http.StatusOK, true, false},
		{"wildcard preflight without credentials", []string{"*"}, "https://evil.example.com", http.MethodOptions, http.StatusNoContent, true, false},
		{"listed origin next to wildcard", []string{"*", "https://tools.example.com"}, "https://tools.example.com", http.MethodGet, http.StatusOK, true, true},
		{"no origin", nil, "", http.MethodGet, http.StatusOK, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/tools", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			cors(tt.allowed)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantAllowed {
				assert.Equal(t, tt.origin, rec.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
			}
			if tt.wantCreds {
				assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
			} else {
				assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	boom := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	recoverer(logging.Nop())(boom).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_INTERNAL")
	assert.NotContains(t, rec.Body.String(), "boom")
}
