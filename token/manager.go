package token

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/HCMUS-Qrenso/qrenso-admin/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// RefreshFunc exchanges the long-lived refresh cookie for a fresh access
// token. It must not go through a transport that retries on 401.
type RefreshFunc func(ctx context.Context) (string, error)

// Manager holds the short-lived access token in process memory. The token is
// never written to disk or any other durable store; losing the process loses
// the token, and the session is restored from the refresh cookie instead.
//
// Refresh is single-flight: concurrent callers share one outstanding network
// call and observe the same settled result.
type Manager struct {
	mu      sync.RWMutex
	token   string
	refresh RefreshFunc

	group singleflight.Group
}

// NewManager creates a Manager. The refresh function may be supplied later
// via SetRefreshFunc when construction order requires it (the API client's
// transport references the manager, and the refresh function references the
// API client).
func NewManager(refresh RefreshFunc) *Manager {
	return &Manager{refresh: refresh}
}

// SetRefreshFunc wires the refresh call. Intended for composition-root use
// only, before the manager serves traffic.
func (m *Manager) SetRefreshFunc(fn RefreshFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh = fn
}

// Set replaces the in-memory access token. Side effect only, no I/O.
func (m *Manager) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
}

// Get returns the currently held access token, or "" when none is held.
func (m *Manager) Get() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// Clear drops the in-memory access token.
func (m *Manager) Clear() {
	m.Set("")
}

// Refresh obtains a new access token. If a refresh call is already
// outstanding, the caller joins it instead of starting a second one; every
// waiter observes the same new token or the same failure. On success the held
// token is replaced before any waiter returns. On failure the held token is
// cleared and the error is propagated.
//
// The underlying network call is detached from the initiating caller's
// context so that one caller cancelling does not fail the waiters; each
// caller still honors its own context while waiting.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.group.DoChan("refresh", func() (interface{}, error) {
		refreshAttempts.Inc()

		m.mu.RLock()
		fn := m.refresh
		m.mu.RUnlock()
		if fn == nil {
			return nil, errors.Wrap(apperrors.ErrRefreshFailed, "[Manager.Refresh] no refresh function wired")
		}

		tok, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			refreshFailures.Inc()
			m.Clear()
			return nil, errors.Wrap(err, "[Manager.Refresh] refresh call failed")
		}

		m.Set(tok)
		return tok, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			refreshCoalesced.Inc()
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ExpiresAt decodes the held token as a JWT without verifying it and returns
// the exp claim. The token is otherwise treated as opaque; this exists so
// callers can observe imminent expiry, not to trust any claim.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	raw := m.Get()
	if raw == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
