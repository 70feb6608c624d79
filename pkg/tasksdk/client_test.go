package tasksdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func unsignedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "acc-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestParseErrorResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		code    string
		message string
	}{
		{
			name:    "envelope",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":"validation_failed","message":"Validation failed","details":{"title":"is required"}}}`,
			code:    "validation_failed",
			message: "Validation failed",
		},
		{
			name:    "plain text",
			status:  http.StatusBadGateway,
			body:    "upstream down",
			message: "upstream down",
		},
		{
			name:    "empty",
			status:  http.StatusServiceUnavailable,
			message: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := parseErrorResponse(&http.Response{StatusCode: tt.status}, []byte(tt.body))

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.code, apiErr.Code)
			require.Equal(t, tt.message, apiErr.Message)
			require.True(t, IsStatus(err, tt.status))
		})
	}
}

func TestIsStatus(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("call failed: %w", &APIError{StatusCode: http.StatusNotFound})
	require.True(t, IsStatus(wrapped, http.StatusNotFound))
	require.False(t, IsStatus(wrapped, http.StatusConflict))
	require.False(t, IsStatus(errors.New("boom"), http.StatusNotFound))
	require.False(t, IsStatus(nil, http.StatusNotFound))
}

func TestLoginCapturesRefreshCookie(t *testing.T) {
	t.Parallel()

	access := unsignedToken(t, time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if r.URL.Path != "/auth/login" || json.NewDecoder(r.Body).Decode(&req) != nil {
			http.NotFound(w, r)
			return
		}
		if req.Password != "right" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": "unauthorized", "message": "Invalid email or password"},
			})
			return
		}

		http.SetCookie(w, &http.Cookie{Name: DefaultRefreshCookie, Value: "handle.secret", Path: "/auth", MaxAge: 60, HttpOnly: true})
		writeJSON(w, http.StatusOK, AuthResponse{AccessToken: access, User: User{ID: "acc-1", Email: req.Email}})
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL + "/")

	sess, err := c.Login(context.Background(), "a@example.com", "right")
	require.NoError(t, err)
	require.Equal(t, access, sess.AccessToken())
	require.Equal(t, "handle.secret", sess.RefreshToken())
	require.Equal(t, "acc-1", sess.User().ID)

	_, err = c.Login(context.Background(), "a@example.com", "wrong")
	require.True(t, IsStatus(err, http.StatusUnauthorized))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Invalid email or password", apiErr.Message)
}

func TestSessionRefreshesExpiredAccessToken(t *testing.T) {
	t.Parallel()

	fresh := unsignedToken(t, time.Now().Add(time.Hour))
	var refreshes atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			ck, err := r.Cookie(DefaultRefreshCookie)
			if err != nil || (ck.Value != "h1.s1" && ck.Value != "h2.s2") {
				writeJSON(w, http.StatusUnauthorized, map[string]any{
					"error": map[string]any{"code": "unauthorized", "message": "Invalid refresh token"},
				})
				return
			}
			refreshes.Add(1)
			// Rotate on every call.
			http.SetCookie(w, &http.Cookie{Name: DefaultRefreshCookie, Value: "h2.s2", MaxAge: 60})
			writeJSON(w, http.StatusOK, RefreshResponse{AccessToken: fresh})
		case "/auth/me":
			if r.Header.Get("Authorization") != "Bearer "+fresh {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, User{ID: "acc-1"})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	sess := NewClient(srv.URL).ResumeSession("h1.s1")
	sess.setAccessToken(unsignedToken(t, time.Now().Add(10*time.Second)))

	u, err := sess.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, "acc-1", u.ID)
	require.Equal(t, int32(1), refreshes.Load())
	require.Equal(t, "h2.s2", sess.RefreshToken())

	// Token is now valid for an hour; no further refresh.
	_, err = sess.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), refreshes.Load())
}

func TestSessionLogoutClearsRefreshToken(t *testing.T) {
	t.Parallel()

	gotCookie := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(DefaultRefreshCookie)
		if err != nil {
			gotCookie <- ""
		} else {
			gotCookie <- ck.Value
		}
		http.SetCookie(w, &http.Cookie{Name: DefaultRefreshCookie, Value: "", MaxAge: -1})
		writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out"})
	}))
	t.Cleanup(srv.Close)

	sess := NewClient(srv.URL).ResumeSession("h.s")
	require.NoError(t, sess.Logout(context.Background()))
	require.Equal(t, "h.s", <-gotCookie)
	require.Empty(t, sess.RefreshToken())

	err := sess.Refresh(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)

	_, err = sess.ListTasks(context.Background(), ListTasksOptions{})
	require.ErrorIs(t, err, ErrNoRefreshToken)
}

func TestListTasksQuery(t *testing.T) {
	t.Parallel()

	access := unsignedToken(t, time.Now().Add(time.Hour))
	query := make(chan url.Values, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query <- r.URL.Query()
		writeJSON(w, http.StatusOK, TaskListResponse{
			Items: []Task{{ID: "t1", Title: "tax return", Status: StatusDone}},
			Meta:  PageMeta{Total: 6, Page: 2, Limit: 5},
		})
	}))
	t.Cleanup(srv.Close)

	sess := &Session{client: NewClient(srv.URL)}
	sess.setAccessToken(access)

	out, err := sess.ListTasks(context.Background(), ListTasksOptions{Limit: 5, Page: 2, Status: StatusDone, Search: "tax return"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.Equal(t, PageMeta{Total: 6, Page: 2, Limit: 5}, out.Meta)

	q := <-query
	require.Equal(t, "5", q.Get("limit"))
	require.Equal(t, "2", q.Get("page"))
	require.Equal(t, StatusDone, q.Get("status"))
	require.Equal(t, "tax return", q.Get("search"))
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{not json"))}
	var out Task
	err := decodeJSON(resp, &out, http.StatusOK)
	require.ErrorContains(t, err, "failed to decode response")

	resp = &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(strings.NewReader(""))}
	require.NoError(t, decodeJSON(resp, nil, http.StatusNoContent))
}
