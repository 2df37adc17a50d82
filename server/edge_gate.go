package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/HCMUS-Qrenso/qrenso-admin/session"
	"github.com/labstack/echo/v4"
)

type pathClass int

const (
	pathPublic pathClass = iota
	pathProtected
	pathGuestOnly
)

// EdgeGate is the coarse request-time gate that runs before any page
// renders. It classifies the requested path by prefix and inspects only the
// presence of the httpOnly refresh cookie — never its content, which the
// gateway cannot validate. A protected path without the cookie cannot
// possibly be logged in and is bounced to login immediately, preserving the
// original path; a guest-only path with the cookie is bounced to the
// dashboard.
//
// The authoritative decision is always made by the session store after
// bootstrap; this gate only saves the obviously-wrong round trips.
func (s *Server) EdgeGate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			switch classifyPath(path) {
			case pathProtected:
				if !s.hasRefreshCookie(c) {
					return c.Redirect(http.StatusFound, s.loginRedirectURL(path))
				}
			case pathGuestOnly:
				// A cookie alone is not proof of a session: once the store
				// knows the session is unauthenticated the cookie is stale,
				// and bouncing the operator off the login page would trap
				// them between here and RequireAuth forever.
				if s.hasRefreshCookie(c) && s.store.Status() != session.StatusUnauthenticated {
					return c.Redirect(http.StatusFound, s.config.GetDashboardRoute())
				}
			}

			return next(c)
		}
	}
}

func classifyPath(path string) pathClass {
	for _, prefix := range protectedPrefixes {
		if hasPathPrefix(path, prefix) {
			return pathProtected
		}
	}
	for _, prefix := range guestPrefixes {
		if hasPathPrefix(path, prefix) {
			return pathGuestOnly
		}
	}
	return pathPublic
}

// hasPathPrefix matches whole path segments, so /menu-specials is public
// while /menu and /menu/items are protected.
func hasPathPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+"/")
}

func (s *Server) hasRefreshCookie(c echo.Context) bool {
	cookie, err := c.Cookie(s.config.GetRefreshCookieName())
	return err == nil && cookie.Value != ""
}

func (s *Server) loginRedirectURL(originalPath string) string {
	return s.config.GetLoginRoute() + "?" + redirectParam + "=" + url.QueryEscape(originalPath)
}
