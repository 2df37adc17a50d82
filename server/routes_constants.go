package server

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Guest-only routes
	RouteLogin          = "/login"
	RouteForgotPassword = "/forgot-password"

	// Protected console routes
	RouteDashboard        = "/dashboard"
	RouteMenu             = "/menu"
	RouteOrders           = "/orders"
	RouteTables           = "/tables"
	RouteZones            = "/zones"
	RouteStaff            = "/staff"
	RouteSettings         = "/settings"
	RouteSelectRestaurant = "/select-restaurant"

	// Gateway API routes
	RouteAPILogin         = "/api/auth/login"
	RouteAPILogout        = "/api/auth/logout"
	RouteAPISession       = "/api/auth/session"
	RouteAPIProfile       = "/api/auth/profile"
	RouteAPITenants       = "/api/tenants"
	RouteAPITenantSelect  = "/api/tenants/select"
	RouteAPITenantCurrent = "/api/tenants/current"

	// Operational routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// redirectParam carries the originally requested path through the login
// redirect so the operator lands back where they started.
const redirectParam = "redirect"

// protectedPrefixes are console paths that require an authenticated session.
var protectedPrefixes = []string{
	RouteDashboard,
	RouteMenu,
	RouteOrders,
	RouteTables,
	RouteZones,
	RouteStaff,
	RouteSettings,
	RouteSelectRestaurant,
}

// guestPrefixes are paths that only make sense while logged out.
var guestPrefixes = []string{
	RouteLogin,
	RouteForgotPassword,
}
