package tasksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultRefreshCookie is the name of the refresh token cookie.
const DefaultRefreshCookie = "jid"

// Client talks to the unauthenticated endpoints and opens Sessions.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// RefreshCookie is the cookie name carrying the refresh token.
	RefreshCookie string
}

// NewClient returns a Client with a 10 second timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		RefreshCookie: DefaultRefreshCookie,
	}
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	return c.authenticate(ctx, "/auth/register", req, http.StatusCreated)
}

// Login opens a new session for an existing account.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/auth/login", LoginRequest{Email: email, Password: password}, http.StatusOK)
}

// ResumeSession builds a session from a refresh token kept from an
// earlier login. The access token is fetched on first use.
func (c *Client) ResumeSession(refreshToken string) *Session {
	return &Session{client: c, refreshToken: refreshToken}
}

func (c *Client) authenticate(ctx context.Context, path string, body any, want int) (*Session, error) {
	resp, err := c.doJSON(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return nil, err
	}

	refresh := c.refreshCookie(resp)

	var out AuthResponse
	if err := decodeJSON(resp, &out, want); err != nil {
		return nil, err
	}

	s := &Session{client: c, user: out.User, refreshToken: refresh}
	s.setAccessToken(out.AccessToken)
	return s, nil
}

// GetLiveness calls GET /livez.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness calls GET /readyz.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

// refreshCookie returns the refresh token set by resp, if any. A cleared
// cookie yields "".
func (c *Client) refreshCookie(resp *http.Response) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName() && ck.MaxAge >= 0 {
			return ck.Value
		}
	}
	return ""
}

func (c *Client) cookieName() string {
	if c.RefreshCookie == "" {
		return DefaultRefreshCookie
	}
	return c.RefreshCookie
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, mutate func(*http.Request)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, v any, mutate func(*http.Request)) (*http.Response, error) {
	var body io.Reader
	if v != nil {
		buf, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	return c.do(ctx, method, path, body, mutate)
}

// decodeJSON checks the status and decodes the body into target, which
// may be nil when the body is not needed.
func decodeJSON(resp *http.Response, target any, want int) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != want {
		return parseErrorResponse(resp, body)
	}
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
