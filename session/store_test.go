package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/HCMUS-Qrenso/qrenso-admin/api"
	"github.com/HCMUS-Qrenso/qrenso-admin/broadcast"
	apperrors "github.com/HCMUS-Qrenso/qrenso-admin/internal/errors"
	"github.com/HCMUS-Qrenso/qrenso-admin/session"
	"github.com/HCMUS-Qrenso/qrenso-admin/tenants"
	"github.com/HCMUS-Qrenso/qrenso-admin/token"
	"github.com/HCMUS-Qrenso/qrenso-admin/users"
	"github.com/stretchr/testify/require"
)

// fakeBackend implements session.Backend and counts refresh round-trips.
type fakeBackend struct {
	mu    sync.Mutex
	calls int
	res   *api.LoginResult
	err   error
	gate  chan struct{}
}

func (f *fakeBackend) Refresh(ctx context.Context) (*api.LoginResult, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	res, err := f.res, f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return res, err
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type storeFixture struct {
	store     *session.Store
	tokens    *token.Manager
	tenantCtx *tenants.Context
	backend   *fakeBackend
}

func newStoreFixture(t *testing.T, backend *fakeBackend, bus broadcast.Bus) *storeFixture {
	t.Helper()

	tokens := token.NewManager(nil)
	tenantCtx := tenants.NewContext()
	store := session.NewStore(tokens, tenantCtx, bus, backend)
	t.Cleanup(store.Close)

	return &storeFixture{store: store, tokens: tokens, tenantCtx: tenantCtx, backend: backend}
}

func managerUser() *users.User {
	return &users.User{ID: "u1", Email: "mai@pho24.vn", FullName: "Mai Tran", Role: users.RoleManager, TenantID: "t1"}
}

func ownerUser() *users.User {
	return &users.User{ID: "u2", Email: "long@qrenso.vn", FullName: "Long Nguyen", Role: users.RoleOwner}
}

func TestBootstrapRestoresSession(t *testing.T) {
	backend := &fakeBackend{res: &api.LoginResult{AccessToken: "tok-1", User: managerUser()}}
	f := newStoreFixture(t, backend, nil)

	require.Equal(t, session.StatusUnknown, f.store.Status())
	require.NoError(t, f.store.Bootstrap(context.Background()))

	require.Equal(t, session.StatusAuthenticated, f.store.Status())
	require.Equal(t, "tok-1", f.tokens.Get())
	require.Equal(t, "t1", f.tenantCtx.HeaderValue(), "non-owner scope mirrors the user's tenant")
	require.Equal(t, 1, backend.callCount())
}

func TestBootstrapIsIdempotentUnderConcurrency(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		res:  &api.LoginResult{AccessToken: "tok-1", User: managerUser()},
		gate: gate,
	}
	f := newStoreFixture(t, backend, nil)

	const m = 6
	var wg sync.WaitGroup
	wg.Add(m)
	for i := 0; i < m; i++ {
		go func() {
			defer wg.Done()
			require.NoError(t, f.store.Bootstrap(context.Background()))
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, 1, backend.callCount(), "concurrent bootstraps must share one network call")
	require.Equal(t, session.StatusAuthenticated, f.store.Status())
}

func TestBootstrapOnlyRunsFromUnknown(t *testing.T) {
	backend := &fakeBackend{res: &api.LoginResult{AccessToken: "tok-1", User: managerUser()}}
	f := newStoreFixture(t, backend, nil)

	require.NoError(t, f.store.Bootstrap(context.Background()))
	require.NoError(t, f.store.Bootstrap(context.Background()))

	require.Equal(t, 1, backend.callCount(), "a settled session must not bootstrap again")
}

func TestBootstrapFailureCollapsesToUnauthenticated(t *testing.T) {
	backend := &fakeBackend{err: apperrors.ErrSessionNotRenewable}
	f := newStoreFixture(t, backend, nil)
	f.tokens.Set("leftover")

	require.NoError(t, f.store.Bootstrap(context.Background()), "an expired session is an outcome, not an error")

	require.Equal(t, session.StatusUnauthenticated, f.store.Status())
	require.Empty(t, f.tokens.Get())
	require.Empty(t, f.tenantCtx.HeaderValue())
	require.Nil(t, f.store.User())
}

func TestSetAuthDerivesScopeByRole(t *testing.T) {
	f := newStoreFixture(t, &fakeBackend{}, nil)

	f.store.SetAuth(&api.LoginResult{AccessToken: "tok-owner", User: ownerUser()}, false)
	require.Equal(t, session.StatusAuthenticated, f.store.Status())
	require.Empty(t, f.tenantCtx.HeaderValue(), "owner scope waits for an explicit selection")

	f.store.ClearAuth(context.Background())

	f.store.SetAuth(&api.LoginResult{AccessToken: "tok-mgr", User: managerUser()}, true)
	require.Equal(t, "t1", f.tenantCtx.HeaderValue())
	require.False(t, f.tenantCtx.Select("t2"), "non-owner scope is never client-selectable")
}

func TestSetUserNilDropsProfileButKeepsCredential(t *testing.T) {
	f := newStoreFixture(t, &fakeBackend{}, nil)
	f.store.SetAuth(&api.LoginResult{AccessToken: "tok-1", User: managerUser()}, false)

	f.store.SetUser(nil)

	require.Equal(t, session.StatusUnauthenticated, f.store.Status())
	require.Nil(t, f.store.User())
	require.Empty(t, f.tenantCtx.HeaderValue(), "stale profile cascades to tenant scope")
	require.Equal(t, "tok-1", f.tokens.Get(), "profile-only logout leaves the credential alone")
}

func TestSetUserUpdatesProfileAndScope(t *testing.T) {
	f := newStoreFixture(t, &fakeBackend{}, nil)
	f.store.SetAuth(&api.LoginResult{AccessToken: "tok-1", User: managerUser()}, false)

	moved := managerUser()
	moved.TenantID = "t7"
	f.store.SetUser(moved)

	require.Equal(t, "t7", f.tenantCtx.HeaderValue())
	require.Equal(t, "t7", f.store.User().TenantID)
}

func TestClearAuthIsIdempotent(t *testing.T) {
	f := newStoreFixture(t, &fakeBackend{}, nil)
	f.store.SetAuth(&api.LoginResult{AccessToken: "tok-1", User: managerUser()}, false)

	f.store.ClearAuth(context.Background())
	f.store.ClearAuth(context.Background())

	require.Equal(t, session.StatusUnauthenticated, f.store.Status())
	require.Empty(t, f.tokens.Get())
}

func TestLogoutPropagatesAcrossTabs(t *testing.T) {
	broker := broadcast.NewMemoryBroker()
	busA := broker.NewBus()
	busB := broker.NewBus()

	backendA := &fakeBackend{}
	backendB := &fakeBackend{}
	tabA := newStoreFixture(t, backendA, busA)
	tabB := newStoreFixture(t, backendB, busB)

	tabA.store.SetAuth(&api.LoginResult{AccessToken: "tok-a", User: managerUser()}, false)
	tabB.store.SetAuth(&api.LoginResult{AccessToken: "tok-b", User: managerUser()}, false)

	// Count what comes back to tab A; a re-publishing tab B would echo here.
	var echoes int
	busA.Subscribe(func(broadcast.Event) { echoes++ })

	tabA.store.ClearAuth(context.Background())

	require.Equal(t, session.StatusUnauthenticated, tabB.store.Status())
	require.Empty(t, tabB.tokens.Get())
	require.Empty(t, tabB.tenantCtx.HeaderValue())
	require.Zero(t, backendB.callCount(), "tab B logs out without any network call")
	require.Zero(t, echoes, "received broadcasts must not be re-published")
}

func TestSubscribeObservesTransitions(t *testing.T) {
	f := newStoreFixture(t, &fakeBackend{}, nil)

	var seen []session.Status
	remove := f.store.Subscribe(func(s session.Snapshot) { seen = append(seen, s.Status) })

	f.store.SetAuth(&api.LoginResult{AccessToken: "tok-1", User: managerUser()}, false)
	f.store.ClearAuth(context.Background())
	remove()
	f.store.SetAuth(&api.LoginResult{AccessToken: "tok-2", User: managerUser()}, false)

	require.Equal(t, []session.Status{session.StatusAuthenticated, session.StatusUnauthenticated}, seen)
}
