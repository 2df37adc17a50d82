package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/HCMUS-Qrenso/qrenso-admin/api"
	"github.com/HCMUS-Qrenso/qrenso-admin/broadcast"
	"github.com/HCMUS-Qrenso/qrenso-admin/internal/config"
	"github.com/HCMUS-Qrenso/qrenso-admin/server"
	"github.com/HCMUS-Qrenso/qrenso-admin/session"
	"github.com/HCMUS-Qrenso/qrenso-admin/tenants"
	"github.com/HCMUS-Qrenso/qrenso-admin/token"
	"github.com/HCMUS-Qrenso/qrenso-admin/users"
	"github.com/stretchr/testify/require"
)

const (
	testPassword  = "secret-password-1"
	refreshCookie = "refreshToken"
)

// backendStub plays the restaurant REST backend for gateway tests.
type backendStub struct {
	server *httptest.Server

	mu             sync.Mutex
	user           *users.User
	validToken     string
	tokenSeq       int
	refreshOK      bool
	meUnauthorized bool
	refreshCalls   int
	logoutCalls    int
	tenantsScope   *string // header value seen on GET /tenants
	currentScope   *string // header value seen on GET /tenants/current
	meScope        *string // header value seen on GET /auth/me
}

func newBackendStub(t *testing.T, user *users.User) *backendStub {
	t.Helper()
	b := &backendStub{user: user, refreshOK: true}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != testPassword {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.mu.Lock()
		tok := b.mintToken()
		u := b.user
		b.mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: refreshCookie, Value: "rt-1", HttpOnly: true, Path: "/"})
		_ = json.NewEncoder(w).Encode(api.LoginResult{AccessToken: tok, User: u})
	})
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		cookie, cookieErr := r.Cookie(refreshCookie)
		b.mu.Lock()
		b.refreshCalls++
		ok := b.refreshOK && cookieErr == nil && cookie.Value != ""
		var tok string
		var u *users.User
		if ok {
			tok = b.mintToken()
			u = b.user
		}
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(api.LoginResult{AccessToken: tok, User: u})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b.mu.Lock()
		b.logoutCalls++
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b.mu.Lock()
		scope := r.Header.Get(tenants.HeaderName)
		b.meScope = &scope
		unauthorized := b.meUnauthorized || r.Header.Get("Authorization") != "Bearer "+b.validToken
		u := b.user
		b.mu.Unlock()
		if unauthorized {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"user": u})
	})
	mux.HandleFunc("/tenants", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b.mu.Lock()
		scope := r.Header.Get(tenants.HeaderName)
		b.tenantsScope = &scope
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"tenants": []tenants.Summary{
			{ID: "t1", Name: "Pho 24"},
			{ID: "t2", Name: "Banh Mi House"},
		}})
	})
	mux.HandleFunc("/tenants/current", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b.mu.Lock()
		scope := r.Header.Get(tenants.HeaderName)
		b.currentScope = &scope
		b.mu.Unlock()
		if scope == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"tenant": &tenants.Tenant{ID: scope, Name: "Scoped"}})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

// mintToken must be called with b.mu held.
func (b *backendStub) mintToken() string {
	b.tokenSeq++
	b.validToken = fmt.Sprintf("tok-%d", b.tokenSeq)
	return b.validToken
}

func (b *backendStub) refreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

type testConfig struct {
	config.EnvVars
	backendURL string
}

func (c testConfig) GetBackendBaseURL() string { return c.backendURL }

type gatewayFixture struct {
	backend *backendStub
	store   *session.Store
	gateway *httptest.Server
	client  *http.Client
	jar     http.CookieJar
}

// newGatewayFixture wires the whole stack the way cmd/admind does: token
// manager, tenant context, transport chain, API client, session store,
// gateway server.
func newGatewayFixture(t *testing.T, user *users.User) *gatewayFixture {
	t.Helper()

	backend := newBackendStub(t, user)
	cfg := testConfig{backendURL: backend.server.URL}

	tokenManager := token.NewManager(nil)
	tenantContext := tenants.NewContext()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpClient := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		Transport: &tenants.Transport{
			Context: tenantContext,
			Base:    &token.Transport{Manager: tokenManager},
		},
	}

	apiClient, err := api.NewClient(cfg.GetBackendBaseURL(), httpClient)
	require.NoError(t, err)
	tokenManager.SetRefreshFunc(func(ctx context.Context) (string, error) {
		res, err := apiClient.Refresh(ctx)
		if err != nil {
			return "", err
		}
		return res.AccessToken, nil
	})

	bus := broadcast.NewMemoryBroker().NewBus()
	store := session.NewStore(tokenManager, tenantContext, bus, apiClient)
	t.Cleanup(store.Close)

	srv := server.New(cfg, store, apiClient)
	gateway := httptest.NewServer(srv.Handler())
	t.Cleanup(gateway.Close)

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &gatewayFixture{backend: backend, store: store, gateway: gateway, client: client, jar: jar}
}

// seedRefreshCookie puts a refresh cookie into the gateway's jar, as a
// previous login would have, without settling the session state.
func (f *gatewayFixture) seedRefreshCookie(t *testing.T) {
	t.Helper()
	u, err := url.Parse(f.backend.server.URL)
	require.NoError(t, err)
	f.jar.SetCookies(u, []*http.Cookie{{Name: refreshCookie, Value: "rt-1", Path: "/"}})
}

func (f *gatewayFixture) get(t *testing.T, path string, withCookie bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.gateway.URL+path, nil)
	require.NoError(t, err)
	if withCookie {
		req.AddCookie(&http.Cookie{Name: refreshCookie, Value: "rt-1"})
	}
	res, err := f.client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func (f *gatewayFixture) postJSON(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := f.client.Post(f.gateway.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func (f *gatewayFixture) login(t *testing.T) {
	t.Helper()
	res := f.postJSON(t, server.RouteAPILogin, map[string]interface{}{
		"email":    "op@qrenso.vn",
		"password": testPassword,
		"remember": true,
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, session.StatusAuthenticated, f.store.Status())
}
