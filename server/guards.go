package server

import (
	"net/http"

	"github.com/HCMUS-Qrenso/qrenso-admin/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// RequireAuth gates console pages on the authoritative session state. While
// the status is unknown the guard runs bootstrap itself, so the first hit
// after a restart silently restores the session from the refresh cookie
// before deciding anything.
func (s *Server) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := s.resolveSession(c); err != nil {
				log.Warn().Err(err).Msg("session bootstrap failed")
			}

			if s.store.Status() != session.StatusAuthenticated {
				if s.hasRefreshCookie(c) {
					// The cookie did not restore a session, so it is dead
					// weight; expire it so the browser stops presenting it.
					s.expireRefreshCookie(c)
				}
				return c.Redirect(http.StatusFound, s.loginRedirectURL(c.Request().URL.Path))
			}
			return next(c)
		}
	}
}

// expireRefreshCookie tells the browser to drop a refresh cookie that no
// longer backs a server-side session.
func (s *Server) expireRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.config.GetRefreshCookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// RequireGuest is the mirror image: an authenticated operator has no
// business on the login page and is sent to the dashboard.
func (s *Server) RequireGuest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := s.resolveSession(c); err != nil {
				log.Warn().Err(err).Msg("session bootstrap failed")
			}

			if s.store.Status() == session.StatusAuthenticated {
				return c.Redirect(http.StatusFound, s.config.GetDashboardRoute())
			}
			return next(c)
		}
	}
}

// RequireAuthAPI guards gateway API routes. APIs answer 401 instead of
// redirecting; the console decides what to do with it.
func (s *Server) RequireAuthAPI() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := s.resolveSession(c); err != nil {
				log.Warn().Err(err).Msg("session bootstrap failed")
			}

			if s.store.Status() != session.StatusAuthenticated {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			return next(c)
		}
	}
}

// resolveSession settles an unknown session status before a guard decides.
func (s *Server) resolveSession(c echo.Context) error {
	if s.store.Status() != session.StatusUnknown {
		return nil
	}
	return s.store.Bootstrap(c.Request().Context())
}
