package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default endpoints of the hosted backend.
const (
	DefaultAuthURL  = "https://identitytoolkit.googleapis.com/v1"
	DefaultTokenURL = "https://securetoken.googleapis.com/v1"
	DefaultDBURL    = "https://firestore.googleapis.com/v1"
)

// TokenSource returns the ID token that authorizes document requests.
type TokenSource func(ctx context.Context) (string, error)

// Client talks to the hosted backend's accounts, token and document REST APIs.
type Client struct {
	apiKey    string
	projectID string
	authURL   string
	tokenURL  string
	dbURL     string
	timeout   time.Duration
	token     TokenSource

	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints overrides the accounts, token and document base URLs.
// Empty values keep the defaults.
func WithEndpoints(authURL, tokenURL, dbURL string) Option {
	return func(c *Client) {
		if authURL != "" {
			c.authURL = strings.TrimRight(authURL, "/")
		}
		if tokenURL != "" {
			c.tokenURL = strings.TrimRight(tokenURL, "/")
		}
		if dbURL != "" {
			c.dbURL = strings.TrimRight(dbURL, "/")
		}
	}
}

// WithTimeout bounds every request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTokenSource sets where document requests get their bearer token.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the given project.
func New(apiKey, projectID string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		projectID:  projectID,
		authURL:    DefaultAuthURL,
		tokenURL:   DefaultTokenURL,
		dbURL:      DefaultDBURL,
		timeout:    15 * time.Second,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// request is one call to the backend. Exactly one of json or form is set
// when the call has a body.
type request struct {
	method string
	url    string
	json   any
	form   url.Values
	// bearer attaches the token source's ID token.
	bearer bool
}

func (c *Client) keyed(base, path string) string {
	return base + path + "?key=" + url.QueryEscape(c.apiKey)
}

func (c *Client) doRequest(ctx context.Context, r request, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var (
		reqBody     io.Reader
		contentType string
	)
	switch {
	case r.json != nil:
		data, err := json.Marshal(r.json)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
		contentType = "application/json"
	case r.form != nil:
		reqBody = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.bearer && c.token != nil {
		tok, err := c.token(ctx)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		return parseError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
