package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	backendURLVar = "BACKEND_BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ BackendConfig = EnvVars{}
var _ SessionConfig = EnvVars{}
var _ RedisConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Qrenso Admin")
}

func (EnvVars) GetEnv() string {
	return GetEnv("ENV", "development")
}

func (EnvVars) GetBackendBaseURL() string {
	return GetEnv(backendURLVar, "http://localhost:5000/api/v1")
}

func (EnvVars) GetRefreshCookieName() string {
	return GetEnv("REFRESH_COOKIE_NAME", "refreshToken")
}

func (EnvVars) GetLoginRoute() string {
	return GetEnv("LOGIN_ROUTE", "/login")
}

func (EnvVars) GetDashboardRoute() string {
	return GetEnv("DASHBOARD_ROUTE", "/dashboard")
}

func (EnvVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (EnvVars) GetLogoutChannel() string {
	return GetEnv("LOGOUT_CHANNEL", "qrenso:admin:logout")
}

// GetEnv reads an environment variable, falling back to a default value
func GetEnv(name, defaultValue string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return defaultValue
}
