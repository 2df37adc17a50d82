package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	apperrors "github.com/HCMUS-Qrenso/qrenso-admin/internal/errors"
	"github.com/HCMUS-Qrenso/qrenso-admin/tenants"
	"github.com/HCMUS-Qrenso/qrenso-admin/users"
	"github.com/pkg/errors"
)

// LoginRequest is the credential payload for POST /auth/login. Remember asks
// the backend for a long-lived refresh cookie.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

// LoginResult is the response shape shared by the login and refresh
// endpoints.
type LoginResult struct {
	AccessToken string      `json:"accessToken"`
	User        *users.User `json:"user"`
}

// Client is the typed client for the restaurant backend's auth and tenant
// endpoints.
//
// Two underlying http clients share one cookie jar. The authorized client is
// expected to carry the token and tenant transports and is used for profile
// and tenant calls. Auth-protocol calls (login, refresh, logout) go through a
// bare client instead: they are driven by the httpOnly refresh cookie alone,
// and routing the refresh call through the 401-retrying transport would
// recurse into itself.
type Client struct {
	baseURL    string
	authorized *http.Client
	bare       *http.Client
}

// NewClient builds a Client for the given base URL. authorized carries the
// intercepting transports; when its Jar is nil a fresh in-memory cookie jar
// is installed so the refresh cookie is retained across calls.
func NewClient(baseURL string, authorized *http.Client) (*Client, error) {
	if authorized == nil {
		return nil, errors.New("[api.NewClient] authorized http client is required")
	}
	if authorized.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, errors.Wrap(err, "[api.NewClient] cookie jar")
		}
		authorized.Jar = jar
	}

	bare := &http.Client{
		Jar:     authorized.Jar,
		Timeout: authorized.Timeout,
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authorized: authorized,
		bare:       bare,
	}, nil
}

// Login exchanges credentials for an access token and a refresh cookie.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, c.bare, http.MethodPost, "/auth/login", req, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	return &out, nil
}

// Refresh exchanges the refresh cookie for a fresh access token. A non-2xx
// response means the server-side session is not renewable.
func (c *Client) Refresh(ctx context.Context) (*LoginResult, error) {
	var out LoginResult
	if err := c.do(ctx, c.bare, http.MethodPost, "/auth/refresh", nil, &out); err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			return nil, errors.Wrap(apperrors.ErrSessionNotRenewable, "[Client.Refresh]")
		}
		return nil, errors.Wrap(err, "[Client.Refresh]")
	}
	return &out, nil
}

// Logout invalidates the server-side session backing the refresh cookie.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, c.bare, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	return nil
}

// Me fetches the current operator profile.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var out struct {
		User *users.User `json:"user"`
	}
	if err := c.do(ctx, c.authorized, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.Me]")
	}
	return out.User, nil
}

// ListTenants fetches the restaurants owned by the caller. The call is
// intentionally tenant-agnostic: scoping it would filter the list down to
// the already selected restaurant.
func (c *Client) ListTenants(ctx context.Context) ([]tenants.Summary, error) {
	var out struct {
		Tenants []tenants.Summary `json:"tenants"`
	}
	if err := c.do(tenants.WithoutScope(ctx), c.authorized, http.MethodGet, "/tenants", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.ListTenants]")
	}
	return out.Tenants, nil
}

// CurrentTenant fetches the detail of the currently scoped restaurant.
func (c *Client) CurrentTenant(ctx context.Context) (*tenants.Tenant, error) {
	var out struct {
		Tenant *tenants.Tenant `json:"tenant"`
	}
	if err := c.do(ctx, c.authorized, http.MethodGet, "/tenants/current", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[Client.CurrentTenant]")
	}
	return out.Tenant, nil
}

func (c *Client) do(ctx context.Context, client *http.Client, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return errors.Wrap(apperrors.ErrBackendUnavailable, err.Error())
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case res.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case res.StatusCode < 200 || res.StatusCode > 299:
		return errors.Wrap(apperrors.ErrUnexpectedStatus, fmt.Sprintf("%s %s returned %d", method, path, res.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}
