package server

import (
	"context"
	"net/http"

	"github.com/HCMUS-Qrenso/qrenso-admin/api"
	"github.com/HCMUS-Qrenso/qrenso-admin/internal/config"
	"github.com/HCMUS-Qrenso/qrenso-admin/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the operator-facing gateway: it serves the console shell, gates
// every route on session state, and forwards auth/tenant operations to the
// backend through the session core.
type Server struct {
	echo    *echo.Echo
	config  config.Config
	store   *session.Store
	backend *api.Client
}

func New(cfg config.Config, store *session.Store, backend *api.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		config:  cfg,
		store:   store,
		backend: backend,
	}
	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	e := s.echo
	e.Use(s.EdgeGate())

	// Guest-only pages
	e.GET(RouteLogin, s.LoginPageHandler(), s.RequireGuest())
	e.GET(RouteForgotPassword, s.LoginPageHandler(), s.RequireGuest())

	// Protected console pages
	for _, route := range protectedPrefixes {
		e.GET(route, s.ConsolePageHandler(), s.RequireAuth())
	}

	// Gateway API
	e.POST(RouteAPILogin, s.LoginHandler())
	e.POST(RouteAPILogout, s.LogoutHandler())
	e.GET(RouteAPISession, s.SessionHandler())
	e.GET(RouteAPIProfile, s.ProfileHandler(), s.RequireAuthAPI())
	e.GET(RouteAPITenants, s.TenantListHandler(), s.RequireAuthAPI())
	e.POST(RouteAPITenantSelect, s.TenantSelectHandler(), s.RequireAuthAPI())
	e.GET(RouteAPITenantCurrent, s.TenantCurrentHandler(), s.RequireAuthAPI())

	// Operational
	e.GET(RouteHealth, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET(RouteMetrics, echo.WrapHandler(promhttp.Handler()))
}

// Handler exposes the underlying handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks serving on the configured port.
func (s *Server) Start() error {
	return s.echo.Start(s.config.GetPort())
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
