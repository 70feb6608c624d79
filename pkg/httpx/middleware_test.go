package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), tag("outer"), tag("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	secret := []byte("0123456789abcdef0123456789abcdef")
	signer, err := jwtx.NewSignerHS256(secret)
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256(secret, jwtx.VerifyOptions{})
	require.NoError(t, err)

	valid, err := signer.Sign(jwtx.NewAccessClaims("acct-1", "a@x.com", "", time.Minute, time.Now().UTC()))
	require.NoError(t, err)
	expired, err := signer.Sign(jwtx.NewAccessClaims("acct-1", "a@x.com", "", time.Minute, time.Now().Add(-time.Hour).UTC()))
	require.NoError(t, err)

	protected := httpx.AuthnMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, ok := httpx.SubjectFromContext(r.Context())
		require.True(t, ok)
		claims, ok := httpx.ClaimsFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, sub, claims.Subject)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"sub": sub, "email": claims.Email})
	}))

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "No access token provided"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, "No access token provided"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "No access token provided"},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "Invalid or expired token"},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				require.JSONEq(t, `{"sub":"acct-1","email":"a@x.com"}`, rec.Body.String())
				return
			}
			require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))
			require.JSONEq(t, `{"error":{"code":"unauthorized","message":"`+tt.message+`"}}`, rec.Body.String())
		})
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := httpx.CORS([]string{"http://localhost:3000"})(okHandler)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/auth/refresh", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("other origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestWriteError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpx.WriteError(rec, http.StatusBadRequest, "validation", "Validation failed", map[string]string{"email": "must be a valid email"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":{"code":"validation","message":"Validation failed","details":{"email":"must be a valid email"}}}`, rec.Body.String())
}
