package errors

import (
	"errors"
	"fmt"
)

// Common error types for the admin session core
var (
	// Authentication errors
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSessionExpired      = errors.New("session expired")
	ErrSessionNotRenewable = errors.New("session not renewable")

	// Token errors
	ErrNoAccessToken = errors.New("no access token held")
	ErrRefreshFailed = errors.New("refresh failed")

	// Tenant errors
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantNotSelectable = errors.New("tenant scope is bound and not selectable")

	// Backend errors
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnexpectedStatus   = errors.New("unexpected response status")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
