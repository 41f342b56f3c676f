// Package retailer talks to the grocery retailer's identity provider and
// catalog API.
//
// A Client owns one authenticated session. It logs in with a two-step
// implicit-grant flow, refreshes the bearer token shortly before it
// expires, spaces every outbound call through a single rate gate, and
// retries a request once after re-authenticating when the API answers 401.
//
// A Client is not safe for concurrent use.
package retailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/Veraticus/grocer/internal/common"
)

// Defaults for the production retailer endpoints.
const (
	DefaultIdentityBaseURL = "https://albertsons.okta.com"
	DefaultCatalogBaseURL  = "https://nimbus.safeway.com"
	DefaultClientID        = "ausp6soxrIyPrm8rS2p6"
	DefaultRedirectURI     = "https://www.safeway.com"
	DefaultScope           = "openid profile email"
	DefaultState           = "grocer"
	DefaultMinInterval     = 500 * time.Millisecond
	DefaultTimeout         = 30 * time.Second
)

const maxErrorBody = 512

// Config holds the settings for a retailer session.
type Config struct {
	HTTPClient      *http.Client
	Logger          *slog.Logger
	Now             func() time.Time
	Username        string
	Password        string
	StoreID         string
	IdentityBaseURL string
	CatalogBaseURL  string
	ClientID        string
	RedirectURI     string
	Scope           string
	State           string
	// MinInterval spaces outbound calls; a negative value disables spacing.
	MinInterval     time.Duration
	Timeout         time.Duration
	ChromeTLS       bool
}

// Validate checks that the required credentials are present.
func (c Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("%w: retailer username is required", common.ErrMissingConfig)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: retailer password is required", common.ErrMissingConfig)
	}
	if c.StoreID == "" {
		return fmt.Errorf("%w: retailer store ID is required", common.ErrMissingConfig)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.IdentityBaseURL == "" {
		c.IdentityBaseURL = DefaultIdentityBaseURL
	}
	if c.CatalogBaseURL == "" {
		c.CatalogBaseURL = DefaultCatalogBaseURL
	}
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.RedirectURI == "" {
		c.RedirectURI = DefaultRedirectURI
	}
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.State == "" {
		c.State = DefaultState
	}
	if c.MinInterval == 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	c.IdentityBaseURL = strings.TrimRight(c.IdentityBaseURL, "/")
	c.CatalogBaseURL = strings.TrimRight(c.CatalogBaseURL, "/")
	return c
}

// Client is an authenticated session against the retailer.
type Client struct {
	httpClient *http.Client
	authClient *http.Client
	token      *oauth2.Token
	gate       *Gate
	logger     *slog.Logger
	cfg        Config
	ownsClient bool
}

// NewClient creates a client. No network traffic happens until the first
// call.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	httpClient := cfg.HTTPClient
	ownsClient := httpClient == nil
	if ownsClient {
		httpClient = &http.Client{Timeout: cfg.Timeout}
		if cfg.ChromeTLS {
			httpClient.Transport = NewChromeTransport(cfg.Timeout)
		}
	}

	// The authorize step must see the redirect itself.
	authClient := *httpClient
	authClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		httpClient: httpClient,
		authClient: &authClient,
		gate:       NewGate(cfg.MinInterval),
		logger:     common.ComponentLogger(cfg.Logger, "retailer"),
		cfg:        cfg,
		ownsClient: ownsClient,
	}, nil
}

// StoreID returns the store the session queries.
func (c *Client) StoreID() string {
	return c.cfg.StoreID
}

// IsAuthenticated reports whether the session holds a usable token.
func (c *Client) IsAuthenticated() bool {
	return !tokenExpired(c.token, c.cfg.Now())
}

// Close releases idle connections when the client created its own transport.
func (c *Client) Close() {
	if c.ownsClient {
		c.httpClient.CloseIdleConnections()
	}
}

// Authenticate runs the full login flow and replaces the session token.
func (c *Client) Authenticate(ctx context.Context) error {
	sessionToken, err := c.sessionToken(ctx)
	if err != nil {
		return err
	}

	token, err := c.exchangeSessionToken(ctx, sessionToken)
	if err != nil {
		return err
	}

	c.token = token
	c.logger.Info("Authenticated with retailer", "expires", token.Expiry.Format(time.RFC3339))
	return nil
}

type authnRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authnResponse struct {
	SessionToken string `json:"sessionToken"`
	Status       string `json:"status"`
}

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(authnRequest{Username: c.cfg.Username, Password: c.cfg.Password})
	if err != nil {
		return "", &AuthError{Step: "authn", Err: err}
	}

	if err := c.gate.Acquire(ctx); err != nil {
		return "", &AuthError{Step: "authn", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IdentityBaseURL+"/api/v1/authn", bytes.NewReader(body))
	if err != nil {
		return "", &AuthError{Step: "authn", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &AuthError{Step: "authn", Reason: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{Step: "authn", Reason: fmt.Sprintf("credentials rejected with status %d", resp.StatusCode)}
	}

	var result authnResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &AuthError{Step: "authn", Reason: "unreadable response", Err: err}
	}
	if result.SessionToken == "" {
		status := result.Status
		if status == "" {
			status = "unknown"
		}
		return "", &AuthError{Step: "authn", Reason: fmt.Sprintf("no session token in response (status=%s)", status)}
	}

	return result.SessionToken, nil
}

func (c *Client) exchangeSessionToken(ctx context.Context, sessionToken string) (*oauth2.Token, error) {
	params := url.Values{
		"client_id":     {c.cfg.ClientID},
		"redirect_uri":  {c.cfg.RedirectURI},
		"response_type": {"token"},
		"scope":         {c.cfg.Scope},
		"sessionToken":  {sessionToken},
		"state":         {c.cfg.State},
	}
	endpoint := fmt.Sprintf("%s/oauth2/%s/v1/authorize?%s", c.cfg.IdentityBaseURL, c.cfg.ClientID, params.Encode())

	if err := c.gate.Acquire(ctx); err != nil {
		return nil, &AuthError{Step: "authorize", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &AuthError{Step: "authorize", Err: err}
	}

	resp, err := c.authClient.Do(req)
	if err != nil {
		return nil, &AuthError{Step: "authorize", Reason: "request failed", Err: err}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	return tokenFromRedirect(resp.Header.Get("Location"), c.cfg.Now())
}

func (c *Client) ensureAuthenticated(ctx context.Context) error {
	if c.IsAuthenticated() {
		return nil
	}
	return c.Authenticate(ctx)
}

// Get issues an authenticated GET against the catalog API and decodes the
// JSON response into out, which may be nil.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.request(ctx, http.MethodGet, path, params, nil, out)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.request(ctx, http.MethodPost, path, nil, body, out)
}

// errUnauthorized signals a 401 that may be retried after re-authenticating.
var errUnauthorized = errors.New("unauthorized")

func (c *Client) request(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return err
	}

	err := c.send(ctx, method, path, params, body, out)
	if !errors.Is(err, errUnauthorized) {
		return err
	}

	c.logger.Debug("Token rejected, re-authenticating", "method", method, "path", path)
	if err := c.Authenticate(ctx); err != nil {
		return err
	}

	err = c.send(ctx, method, path, params, body, out)
	if errors.Is(err, errUnauthorized) {
		return &APIError{Method: method, Path: path, StatusCode: http.StatusUnauthorized, Err: errors.New("still unauthorized after re-authentication")}
	}
	return err
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, body, out any) error {
	endpoint := c.cfg.CatalogBaseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Method: method, Path: path, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	if err := c.gate.Acquire(ctx); err != nil {
		return &APIError{Method: method, Path: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &APIError{Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.token.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return errUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Method: method, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
