package config

type Config interface {
	EnvConfig
	BackendConfig
	SessionConfig
	RedisConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

// BackendConfig describes how to reach the restaurant REST backend.
type BackendConfig interface {
	GetBackendBaseURL() string
}

// SessionConfig covers the client-side session machinery: the name of the
// httpOnly refresh cookie (presence-tested only, never read) and the route
// the gateway redirects unauthenticated operators to.
type SessionConfig interface {
	GetRefreshCookieName() string
	GetLoginRoute() string
	GetDashboardRoute() string
}

// RedisConfig configures the logout broadcast fan-out between operator
// terminals. An empty address selects the in-process broker.
type RedisConfig interface {
	GetRedisAddr() string
	GetLogoutChannel() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
