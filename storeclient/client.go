// Package storeclient provides an HTTP client for a remote Profile Store
// service. It implements identity.ProfileStore so a session can run against
// either an in-process store or a remote one without knowing the difference.
package storeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	identity "github.com/artisania/go-identity"
	"github.com/goliatone/go-errors"
)

const (
	mePath       = "/auth/me"
	registerPath = "/auth/register"
	profilePath  = "/auth/profile"
	usersPath    = "/admin/users"
)

// Client talks to a remote Profile Store over HTTP. Every request carries a
// fresh bearer token from the configured TokenSource; tokens are never cached
// between calls.
type Client struct {
	baseURL    string
	tokens     identity.TokenSource
	httpClient *http.Client
	logger     identity.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger identity.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Profile Store client for the given base URL.
func New(baseURL string, tokens identity.TokenSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("store base URL is required", errors.CategoryBadInput)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid store base URL")
	}
	if tokens == nil {
		return nil, errors.New("token source is required", errors.CategoryBadInput)
	}

	client := &Client{
		baseURL:    trimTrailingSlash(baseURL),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     identity.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Me implements identity.ProfileStore.
func (c *Client) Me(ctx context.Context) (*identity.Profile, error) {
	var profile identity.Profile
	if err := c.do(ctx, http.MethodGet, mePath, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile implements identity.ProfileStore.
func (c *Client) CreateProfile(ctx context.Context, in identity.CreateProfileInput) (*identity.Profile, error) {
	var profile identity.Profile
	if err := c.do(ctx, http.MethodPost, registerPath, in, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile implements identity.ProfileStore.
func (c *Client) UpdateProfile(ctx context.Context, patch identity.ProfilePatch) (*identity.Profile, error) {
	var profile identity.Profile
	if err := c.do(ctx, http.MethodPut, profilePath, patch, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProfiles implements identity.ProfileStore.
func (c *Client) ListProfiles(ctx context.Context) ([]*identity.Profile, error) {
	var profiles []*identity.Profile
	if err := c.do(ctx, http.MethodGet, usersPath, nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// Transition implements identity.ProfileStore.
func (c *Client) Transition(ctx context.Context, id string, action identity.ApprovalAction, reason string) error {
	if !action.IsValid() {
		return identity.ErrInvalidTransition
	}

	path := fmt.Sprintf("%s/%s/%s", usersPath, url.PathEscape(id), url.PathEscape(string(action)))
	payload := map[string]string{"reason": reason}

	return c.do(ctx, http.MethodPut, path, payload, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryAuth, "failed to obtain store token").
			WithCode(errors.CodeUnauthorized)
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to encode request body")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build store request")
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "store request failed").
			WithTextCode("STORE_UNREACHABLE")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to read store response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return c.apiError(method, path, resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to decode store response")
	}

	return nil
}

// apiError converts a non-2xx store response back into a rich error. The
// store renders errors as {"error": message, "text_code": code}.
func (c *Client) apiError(method, path string, status int, raw []byte) error {
	var envelope struct {
		Error    string `json:"error"`
		TextCode string `json:"text_code"`
	}
	_ = json.Unmarshal(raw, &envelope)

	message := envelope.Error
	if message == "" {
		message = fmt.Sprintf("store request failed with status %d", status)
	}

	c.logger.Debug("store error %s %s: status=%d text_code=%s", method, path, status, envelope.TextCode)

	err := errors.New(message, categoryFromStatus(status)).WithCode(status)
	if envelope.TextCode != "" {
		err = err.WithTextCode(envelope.TextCode)
	}

	return err.WithMetadata(map[string]any{
		"method": method,
		"path":   path,
	})
}

func categoryFromStatus(status int) errors.Category {
	switch status {
	case http.StatusBadRequest:
		return errors.CategoryBadInput
	case http.StatusUnauthorized:
		return errors.CategoryAuth
	case http.StatusForbidden:
		return errors.CategoryAuthz
	case http.StatusNotFound:
		return errors.CategoryNotFound
	case http.StatusConflict:
		return errors.CategoryConflict
	case http.StatusUnprocessableEntity:
		return errors.CategoryValidation
	default:
		return errors.CategoryOperation
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
