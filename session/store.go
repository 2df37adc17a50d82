package session

import (
	"context"
	"sync"

	"github.com/HCMUS-Qrenso/qrenso-admin/api"
	"github.com/HCMUS-Qrenso/qrenso-admin/broadcast"
	apperrors "github.com/HCMUS-Qrenso/qrenso-admin/internal/errors"
	"github.com/HCMUS-Qrenso/qrenso-admin/tenants"
	"github.com/HCMUS-Qrenso/qrenso-admin/token"
	"github.com/HCMUS-Qrenso/qrenso-admin/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Status is the session state. Unknown is the initial state; Bootstrap
// resolves it to authenticated or unauthenticated exactly once.
type Status string

const (
	StatusUnknown         Status = "unknown"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

// Snapshot is the observable session state handed to subscribers.
type Snapshot struct {
	Status Status
	User   *users.User
}

// Authenticated reports whether the snapshot represents a live session.
func (s Snapshot) Authenticated() bool {
	return s.Status == StatusAuthenticated
}

// Backend is the slice of the REST client the store needs.
type Backend interface {
	Refresh(ctx context.Context) (*api.LoginResult, error)
}

// Store is the authoritative session state machine. It owns the token
// manager and tenant context rather than leaving them as ambient globals:
// one Store is constructed per application instance and passed by reference
// to everything that needs session state.
//
// All mutations go through the operations below; concurrent reads are safe.
type Store struct {
	tokens    *token.Manager
	tenantCtx *tenants.Context
	bus       broadcast.Bus
	backend   Backend

	mu     sync.RWMutex
	status Status
	user   *users.User

	group singleflight.Group

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	unsubscribe func()
}

// NewStore wires the session state machine. The bus is optional; without one
// logout is local to this instance. A received logout broadcast applies the
// same effects as ClearAuth but never re-publishes, so two instances cannot
// ping-pong the event between each other.
func NewStore(tokens *token.Manager, tenantCtx *tenants.Context, bus broadcast.Bus, backend Backend) *Store {
	s := &Store{
		tokens:    tokens,
		tenantCtx: tenantCtx,
		bus:       bus,
		backend:   backend,
		status:    StatusUnknown,
		subs:      make(map[int]func(Snapshot)),
	}

	if bus != nil {
		s.unsubscribe = bus.Subscribe(func(e broadcast.Event) {
			if e.Kind != broadcast.KindLogout {
				return
			}
			s.applyLogout(context.Background(), false)
		})
	}

	return s
}

// Close detaches the store from the broadcast bus.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Status returns the current session status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// User returns the current operator profile, or nil.
func (s *Store) User() *users.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Snapshot returns the current observable state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Status: s.status, User: s.user}
}

// Tokens exposes the token manager for transport wiring.
func (s *Store) Tokens() *token.Manager { return s.tokens }

// Tenants exposes the tenant context for transport wiring and owner
// selection.
func (s *Store) Tenants() *tenants.Context { return s.tenantCtx }

// Subscribe registers an observer that is invoked on every state transition.
// The returned function removes it.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify() {
	snap := s.Snapshot()
	s.subMu.Lock()
	observers := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		observers = append(observers, fn)
	}
	s.subMu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// Bootstrap silently restores the session from the refresh cookie. It only
// acts while the status is unknown and is idempotent under concurrent
// invocation: however many components trigger it at startup, at most one
// refresh call reaches the backend.
func (s *Store) Bootstrap(ctx context.Context) error {
	if s.Status() != StatusUnknown {
		return nil
	}

	ch := s.group.DoChan("bootstrap", func() (interface{}, error) {
		if s.Status() != StatusUnknown {
			return nil, nil
		}

		res, err := s.backend.Refresh(context.WithoutCancel(ctx))
		if err != nil {
			s.applyLogout(context.Background(), false)
			if apperrors.Is(err, apperrors.ErrSessionNotRenewable) || apperrors.Is(err, apperrors.ErrUnauthorized) {
				// Not an error, just not logged in.
				return nil, nil
			}
			return nil, errors.Wrap(err, "[Store.Bootstrap] refresh")
		}

		s.tokens.Set(res.AccessToken)
		s.applyLogin(res.User)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetAuth commits a credential obtained from an explicit login call.
// Remember only influences the lifetime of the server-set refresh cookie and
// is recorded for logging; no credential is ever persisted client-side.
func (s *Store) SetAuth(res *api.LoginResult, remember bool) {
	s.tokens.Set(res.AccessToken)
	s.applyLogin(res.User)
	log.Debug().Bool("remember", remember).Str("role", string(res.User.Role)).Msg("session established")
}

// SetUser updates the profile portion of the session without touching the
// credential. A nil user means a profile fetch found the session stale: the
// profile is dropped and the tenant scope cleared, but no logout broadcast
// is published.
func (s *Store) SetUser(u *users.User) {
	if u == nil {
		s.mu.Lock()
		s.user = nil
		s.status = StatusUnauthenticated
		s.mu.Unlock()
		s.tenantCtx.Reset()
		s.notify()
		return
	}

	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	s.deriveTenantScope(u)
	s.notify()
}

// ClearAuth logs the session out locally and broadcasts the logout to every
// other console instance. Safe to call any number of times.
func (s *Store) ClearAuth(ctx context.Context) {
	s.applyLogout(ctx, true)
}

func (s *Store) applyLogin(u *users.User) {
	s.mu.Lock()
	s.user = u
	s.status = StatusAuthenticated
	s.mu.Unlock()

	s.deriveTenantScope(u)
	s.notify()
}

func (s *Store) deriveTenantScope(u *users.User) {
	if u == nil || u.IsOwner() {
		// Owners pick a restaurant explicitly; until then requests go out
		// unscoped.
		s.tenantCtx.Reset()
		return
	}
	s.tenantCtx.Bind(u.TenantID)
}

func (s *Store) applyLogout(ctx context.Context, publish bool) {
	s.tokens.Clear()
	s.tenantCtx.Reset()

	s.mu.Lock()
	s.user = nil
	s.status = StatusUnauthenticated
	s.mu.Unlock()

	if publish && s.bus != nil {
		if err := s.bus.Publish(ctx, broadcast.KindLogout); err != nil {
			log.Warn().Err(err).Msg("failed to broadcast logout")
		}
	}

	s.notify()
}
