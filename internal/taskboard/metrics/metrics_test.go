package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestAuthEvent(t *testing.T) {
	t.Parallel()
	m := New("test")

	m.AuthEvent("login", true)
	m.AuthEvent("login", false)
	m.AuthEvent("login", false)

	require.InDelta(t, 1, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "success")), 0)
	require.InDelta(t, 2, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "failure")), 0)
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	t.Parallel()
	m := New("test")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := m.Middleware(mux)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/"+id, nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	require.InDelta(t, 2, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "GET /tasks/{id}", "404")), 0)
}

func TestHandlerExposition(t *testing.T) {
	t.Parallel()
	m := New("test")
	m.RefreshTokensDeleted(3)
	m.RefreshTokensDeleted(0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "test_housekeeping_refresh_tokens_deleted_total 3"), body)
	require.Contains(t, body, "go_goroutines")
}
