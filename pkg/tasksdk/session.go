package tasksdk

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// refreshSkew refreshes the access token this long before it expires.
const refreshSkew = 30 * time.Second

// ErrNoRefreshToken is returned when a refresh is needed but the session
// has no refresh token.
var ErrNoRefreshToken = errors.New("tasksdk: session has no refresh token")

// Session performs authenticated calls. It is safe for concurrent use.
type Session struct {
	client *Client

	mu           sync.Mutex
	accessToken  string
	expiresAt    time.Time
	refreshToken string
	user         User
}

func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken is the raw refresh cookie value.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

// User is the account returned at login or registration.
func (s *Session) User() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// setAccessToken stores token and reads its expiry. The signature is not
// checked; the server does that.
func (s *Session) setAccessToken(token string) {
	var claims jwt.RegisteredClaims
	exp := time.Time{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}

	s.mu.Lock()
	s.accessToken = token
	s.expiresAt = exp
	s.mu.Unlock()
}

// Refresh trades the refresh token for a new access token. If the server
// rotates refresh tokens the new one is kept.
func (s *Session) Refresh(ctx context.Context) error {
	refresh := s.RefreshToken()
	if refresh == "" {
		return ErrNoRefreshToken
	}

	resp, err := s.client.do(ctx, http.MethodPost, "/auth/refresh", nil, s.withRefreshCookie(refresh))
	if err != nil {
		return err
	}
	rotated := s.client.refreshCookie(resp)

	var out RefreshResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return err
	}

	s.setAccessToken(out.AccessToken)
	if rotated != "" {
		s.mu.Lock()
		s.refreshToken = rotated
		s.mu.Unlock()
	}
	return nil
}

// Logout revokes this session's refresh token. The server answers 200
// even for unknown tokens.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.client.do(ctx, http.MethodPost, "/auth/logout", nil, s.withRefreshCookie(s.RefreshToken()))
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.mu.Unlock()
	return nil
}

// LogoutAll revokes every refresh token of the account, including this
// one. The access token stays valid until it expires.
func (s *Session) LogoutAll(ctx context.Context) error {
	resp, err := s.doAuth(ctx, http.MethodPost, "/auth/logout-all", nil)
	if err != nil {
		return err
	}
	if err := decodeJSON(resp, nil, http.StatusOK); err != nil {
		return err
	}

	s.mu.Lock()
	s.refreshToken = ""
	s.mu.Unlock()
	return nil
}

// Me returns the authenticated account.
func (s *Session) Me(ctx context.Context) (*User, error) {
	resp, err := s.doAuth(ctx, http.MethodGet, "/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var u User
	if err := decodeJSON(resp, &u, http.StatusOK); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Session) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	resp, err := s.doAuth(ctx, http.MethodPost, "/tasks", req)
	if err != nil {
		return nil, err
	}

	var t Task
	if err := decodeJSON(resp, &t, http.StatusCreated); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Session) ListTasks(ctx context.Context, opts ListTasksOptions) (*TaskListResponse, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}

	path := "/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.doAuth(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out TaskListResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetTask(ctx context.Context, id string) (*Task, error) {
	resp, err := s.doAuth(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var t Task
	if err := decodeJSON(resp, &t, http.StatusOK); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Session) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) error {
	resp, err := s.doAuth(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}

func (s *Session) DeleteTask(ctx context.Context, id string) error {
	resp, err := s.doAuth(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusNoContent)
}

// ToggleTask advances the task status and returns the new one.
func (s *Session) ToggleTask(ctx context.Context, id string) (string, error) {
	resp, err := s.doAuth(ctx, http.MethodPost, "/tasks/"+url.PathEscape(id)+"/toggle", nil)
	if err != nil {
		return "", err
	}

	var out ToggleResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return "", err
	}
	return out.Status, nil
}

func (s *Session) withRefreshCookie(token string) func(*http.Request) {
	return func(r *http.Request) {
		if token != "" {
			r.AddCookie(&http.Cookie{Name: s.client.cookieName(), Value: token})
		}
	}
}

// validToken returns the access token, refreshing it first when it is
// missing or about to expire.
func (s *Session) validToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	token, exp := s.accessToken, s.expiresAt
	s.mu.Unlock()

	if token != "" && (exp.IsZero() || time.Until(exp) > refreshSkew) {
		return token, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return "", err
	}
	return s.AccessToken(), nil
}

func (s *Session) doAuth(ctx context.Context, method, path string, body any) (*http.Response, error) {
	token, err := s.validToken(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.doJSON(ctx, method, path, body, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
}
