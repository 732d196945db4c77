// Package httpapi implements the identity provider and carousel mirror
// interfaces against a remote REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	adminkit "github.com/ottovalles/go-adminkit"
)

// Config configures the REST client. BaseURL is required; everything else
// has workable defaults.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     adminkit.Logger
}

// Client talks to the remote admin API. It implements
// adminkit.IdentityProvider.
type Client struct {
	baseURL string
	http    *http.Client
	logger  adminkit.Logger
}

var _ adminkit.IdentityProvider = (*Client)(nil)

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, goerrors.New("httpapi: base URL is required", goerrors.CategoryBadInput)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	ExpiresIn    int64     `json:"expires_in"`
	SessionID    string    `json:"session_id"`
	User         struct {
		ID          string   `json:"id"`
		Email       string   `json:"email"`
		Role        string   `json:"role"`
		Permissions []string `json:"permissions"`
	} `json:"user"`
}

func (r sessionResponse) toSession() *adminkit.Session {
	expiresAt := r.ExpiresAt
	if expiresAt.IsZero() && r.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}

	return &adminkit.Session{
		UserID:       r.User.ID,
		Email:        r.User.Email,
		Role:         adminkit.UserRole(r.User.Role),
		Permissions:  r.User.Permissions,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		SessionID:    r.SessionID,
	}
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*adminkit.Session, error) {
	var out sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", loginRequest{
		Email:    email,
		Password: password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*adminkit.Session, error) {
	var out sessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/refresh", "", refreshRequest{
		RefreshToken: refreshToken,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

// Logout revokes the session on the provider side.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*adminkit.Profile, error) {
	var out adminkit.Profile
	if err := c.do(ctx, http.MethodGet, "/users/me", accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Mirror pushes carousel state to the remote media API. It implements
// adminkit.CarouselMirror. TokenSource supplies the bearer token per call so
// refreshed tokens are picked up automatically.
type Mirror struct {
	client      *Client
	tokenSource func() string
}

var _ adminkit.CarouselMirror = (*Mirror)(nil)

func NewMirror(client *Client, tokenSource func() string) *Mirror {
	if tokenSource == nil {
		tokenSource = func() string { return "" }
	}
	return &Mirror{client: client, tokenSource: tokenSource}
}

func (m *Mirror) SaveItem(ctx context.Context, item adminkit.CarouselItem) error {
	return m.client.do(ctx, http.MethodPost, "/carousel_images", m.tokenSource(), item, nil)
}

func (m *Mirror) DeleteItem(ctx context.Context, id string) error {
	return m.client.do(ctx, http.MethodDelete, "/carousel_images/"+id, m.tokenSource(), nil, nil)
}

type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// do runs one JSON request/response cycle. Non-2xx statuses become
// structured errors carrying the HTTP status and any provider message.
func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "httpapi: failed to encode request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "httpapi: failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "httpapi: request failed").
			WithMetadata(map[string]any{"method": method, "path": path})
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return c.statusError(res, method, path)
	}

	if out == nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "httpapi: failed to decode response").
			WithMetadata(map[string]any{"method": method, "path": path})
	}

	return nil
}

func (c *Client) statusError(res *http.Response, method, path string) error {
	var apiErr apiError
	msg := ""
	if raw, err := io.ReadAll(io.LimitReader(res.Body, 4096)); err == nil {
		if json.Unmarshal(raw, &apiErr) == nil {
			if apiErr.Message != "" {
				msg = apiErr.Message
			} else if apiErr.Error != "" {
				msg = apiErr.Error
			}
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("httpapi: %s %s returned %d", method, path, res.StatusCode)
	}

	category := goerrors.CategoryOperation
	switch {
	case res.StatusCode == http.StatusUnauthorized:
		category = goerrors.CategoryAuth
	case res.StatusCode == http.StatusForbidden:
		category = goerrors.CategoryAuthz
	case res.StatusCode == http.StatusNotFound:
		category = goerrors.CategoryNotFound
	case res.StatusCode == http.StatusConflict:
		category = goerrors.CategoryConflict
	case res.StatusCode == http.StatusTooManyRequests:
		category = goerrors.CategoryRateLimit
	case res.StatusCode >= 500:
		category = goerrors.CategoryInternal
	case res.StatusCode >= 400:
		category = goerrors.CategoryBadInput
	}

	err := goerrors.New(msg, category).
		WithCode(res.StatusCode).
		WithMetadata(map[string]any{"method": method, "path": path})
	if apiErr.Code != "" {
		err = err.WithTextCode(apiErr.Code)
	}

	c.logger.Warn("httpapi: %s %s -> %d: %s", method, path, res.StatusCode, msg)

	return err
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
