package server

import (
	"fmt"
	"net/http"

	"github.com/HCMUS-Qrenso/qrenso-admin/api"
	apperrors "github.com/HCMUS-Qrenso/qrenso-admin/internal/errors"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

// LoginPageHandler serves the login shell. The page posts credentials to the
// gateway API, which commits the session.
func (s *Server) LoginPageHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.HTML(http.StatusOK, loginPageHTML)
	}
}

// ConsolePageHandler serves the authenticated console shell.
func (s *Server) ConsolePageHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		user := s.store.User()
		name := ""
		if user != nil {
			name = user.FullName
		}
		return c.HTML(http.StatusOK, fmt.Sprintf(consolePageHTML, name, c.Request().URL.Path))
	}
}

// LoginHandler exchanges credentials for a session. On success the access
// token lives in the token manager only; the refresh cookie is retained by
// the API client's jar.
func (s *Server) LoginHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var req api.LoginRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		}
		if req.Email == "" || req.Password == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		}

		res, err := s.backend.Login(c.Request().Context(), req)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrUnauthorized) {
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			}
			log.Error().Err(err).Msg("login call failed")
			return c.JSON(http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
		}

		s.store.SetAuth(res, req.Remember)
		return c.JSON(http.StatusOK, map[string]interface{}{"user": res.User})
	}
}

// LogoutHandler invalidates the server-side session, then collapses the
// local one and broadcasts the logout. The local teardown happens even when
// the backend call fails; a dead backend must not keep an operator logged in.
func (s *Server) LogoutHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.backend.Logout(c.Request().Context()); err != nil {
			log.Warn().Err(err).Msg("backend logout failed")
		}
		s.store.ClearAuth(c.Request().Context())
		s.expireRefreshCookie(c)
		return c.NoContent(http.StatusNoContent)
	}
}

// SessionHandler reports the observable session state, resolving an unknown
// status first.
func (s *Server) SessionHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := s.resolveSession(c); err != nil {
			log.Warn().Err(err).Msg("session bootstrap failed")
		}
		snap := s.store.Snapshot()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": snap.Status,
			"user":   snap.User,
		})
	}
}

// ProfileHandler re-fetches the operator profile. A 401 from the profile
// endpoint that survives the transport's refresh-and-retry means the session
// is stale; the profile is dropped without broadcasting a logout.
func (s *Server) ProfileHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := s.backend.Me(c.Request().Context())
		if err != nil {
			if apperrors.Is(err, apperrors.ErrUnauthorized) {
				s.store.SetUser(nil)
				return c.JSON(http.StatusUnauthorized, errorResponse{Error: "session expired"})
			}
			log.Error().Err(err).Msg("profile fetch failed")
			return c.JSON(http.StatusBadGateway, errorResponse{Error: "backend unavailable"})
		}

		s.store.SetUser(user)
		return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
	}
}

const loginPageHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Sign in | Qrenso Admin</title></head>
<body>
<main id="login" data-endpoint="/api/auth/login">
  <h1>Qrenso Admin</h1>
  <form method="post" action="/api/auth/login">
    <input name="email" type="email" placeholder="Email" autocomplete="username">
    <input name="password" type="password" placeholder="Password" autocomplete="current-password">
    <label><input name="remember" type="checkbox"> Keep me signed in</label>
    <button type="submit">Sign in</button>
  </form>
</main>
</body>
</html>`

const consolePageHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Qrenso Admin</title></head>
<body>
<main id="console" data-operator="%s" data-route="%s"></main>
</body>
</html>`
