// Package authclient is an HTTP client for the vodhub API that keeps a session alive.
//
// Client.Do attaches the current access token to each request. When the server answers 401
// the client refreshes the session once, however many requests failed at the same time, and
// retries the request with the new access token.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshPath    = "/api/refresh"
	DefaultLoginPath      = "/api/login"
	DefaultLogoutPath     = "/api/logout"
	DefaultRefreshTimeout = 10 * time.Second
)

var (
	// ErrNoRefreshToken is returned when a refresh is needed but no refresh token is held.
	ErrNoRefreshToken = errors.New("authclient: no refresh token")
	// ErrUnexpectedStatus wraps non-200 answers from the session endpoints.
	ErrUnexpectedStatus = errors.New("authclient: unexpected status")
)

// Tokens is the client's session state. ExpiresAt is the access token expiry.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Client performs authorized requests against a vodhub server.
type Client struct {
	base           *url.URL
	http           *http.Client
	logger         *zap.Logger
	refreshPath    string
	refreshTimeout time.Duration
	onTokens       func(Tokens)

	mu     sync.RWMutex
	tokens Tokens

	flights singleflight.Group
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRefreshTimeout bounds each refresh call.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

// WithRefreshPath overrides the refresh endpoint path.
func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// OnTokens registers a callback invoked whenever the stored tokens change, including when
// they are cleared.
func OnTokens(fn func(Tokens)) Option {
	return func(c *Client) { c.onTokens = fn }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{
		base:           base,
		http:           http.DefaultClient,
		logger:         zap.NewNop(),
		refreshPath:    DefaultRefreshPath,
		refreshTimeout: DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewRequest builds a request for path relative to the base URL. Bodies built from
// bytes.Buffer, bytes.Reader or strings.Reader can be replayed after a refresh.
func (c *Client) NewRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
}

// Do sends req with the current access token. On 401 it refreshes the session and retries
// once, returning the retry's response whatever its status. Requests whose body cannot be
// replayed get the original 401 after the refresh. When the refresh fails the original 401
// is returned and the tokens are cleared unless the server answered 5xx.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.isRefreshRequest(req) {
		return c.http.Do(req)
	}

	access := c.Tokens().AccessToken
	resp, err := c.send(req, req.Body, access)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	fresh, err := c.awaitRefresh(req.Context(), access)
	if err != nil {
		return resp, nil
	}

	// The body was consumed by the first attempt and cannot be rebuilt.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	var body io.ReadCloser
	if req.GetBody != nil {
		body, err = req.GetBody()
		if err != nil {
			return resp, nil
		}
	}

	drain(resp)
	return c.send(req, body, fresh)
}

// Login starts a session. username is ignored by servers in local mode.
func (c *Client) Login(ctx context.Context, username, password string) (Tokens, error) {
	payload := map[string]string{"password": password}
	if username != "" {
		payload["username"] = username
	}

	out, status, err := c.postJSON(ctx, DefaultLoginPath, payload)
	if err != nil {
		return Tokens{}, err
	}
	if status != http.StatusOK {
		return Tokens{}, fmt.Errorf("%w: login returned %d", ErrUnexpectedStatus, status)
	}

	tokens := Tokens{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    time.Unix(out.ExpiresIn, 0),
	}
	c.SetTokens(tokens)
	return tokens, nil
}

// Logout revokes the refresh token on the server and clears local tokens. Local tokens are
// cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	refresh := c.Tokens().RefreshToken
	c.SetTokens(Tokens{})

	_, _, err := c.postJSON(ctx, DefaultLogoutPath, map[string]string{"refreshToken": refresh})
	return err
}

// Tokens returns the current session state.
func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// SetTokens replaces the session state, e.g. with tokens restored from disk.
func (c *Client) SetTokens(tokens Tokens) {
	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()
	c.notify(tokens)
}

func (c *Client) awaitRefresh(ctx context.Context, stale string) (string, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(stale, func() (interface{}, error) {
		return c.refresh(detached, stale)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh exchanges the refresh token for a new access token, unless another flight already
// replaced the stale one.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	current := c.Tokens()
	if current.AccessToken != "" && current.AccessToken != stale {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	out, status, err := c.postJSON(ctx, c.refreshPath, map[string]string{"refreshToken": current.RefreshToken})
	if err == nil && status >= http.StatusInternalServerError {
		err = fmt.Errorf("%w: refresh returned %d", ErrUnexpectedStatus, status)
		c.logger.Warn("session refresh failed; keeping tokens", zap.Error(err))
		return "", err
	}
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("%w: refresh returned %d", ErrUnexpectedStatus, status)
	}
	if err == nil && out.AccessToken == "" {
		err = fmt.Errorf("%w: refresh response without access token", ErrUnexpectedStatus)
	}
	if err != nil {
		c.logger.Warn("session refresh failed", zap.Error(err))
		c.clearIfCurrent(current.RefreshToken)
		return "", err
	}

	c.mu.Lock()
	c.tokens.AccessToken = out.AccessToken
	c.tokens.ExpiresAt = time.Unix(out.ExpiresIn, 0)
	if out.RefreshToken != "" {
		c.tokens.RefreshToken = out.RefreshToken
	}
	updated := c.tokens
	c.mu.Unlock()

	c.logger.Debug("session refreshed", zap.Bool("rotated", out.RefreshToken != ""))
	c.notify(updated)
	return updated.AccessToken, nil
}

// clearIfCurrent drops the session unless a login replaced it while the refresh ran.
func (c *Client) clearIfCurrent(refreshToken string) {
	c.mu.Lock()
	if c.tokens.RefreshToken != refreshToken {
		c.mu.Unlock()
		return
	}
	c.tokens = Tokens{}
	c.mu.Unlock()
	c.notify(Tokens{})
}

func (c *Client) notify(tokens Tokens) {
	if c.onTokens != nil {
		c.onTokens(tokens)
	}
}

func (c *Client) send(req *http.Request, body io.ReadCloser, access string) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Body = body
	if access != "" {
		out.Header.Set("Authorization", "Bearer "+access)
	}
	return c.http.Do(out)
}

type sessionResponse struct {
	OK           bool   `json:"ok"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) (sessionResponse, int, error) {
	var out sessionResponse

	raw, err := json.Marshal(payload)
	if err != nil {
		return out, 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := c.NewRequest(ctx, http.MethodPost, path, bytes.NewReader(raw))
	if err != nil {
		return out, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, 0, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return out, resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return out, resp.StatusCode, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return u.String()
}

func (c *Client) isRefreshRequest(req *http.Request) bool {
	return req.URL != nil && strings.HasSuffix(strings.TrimSuffix(req.URL.Path, "/"), c.refreshPath)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
