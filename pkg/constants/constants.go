// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// JWT-related constants
const (
	// TokenExpiry is the default API token lifetime. The companion app
	// keeps users signed in, so the window is long; override with
	// JWT_TOKEN_TTL.
	TokenExpiry = 30 * 24 * time.Hour

	// SessionExpiry is the default session lifetime
	SessionExpiry = 30 * 24 * time.Hour
)

// Database connection constants
const (
	// MaxConnLifetime is the maximum lifetime of a database connection
	MaxConnLifetime = 1 * time.Hour

	// MaxConnIdleTime is the maximum idle time for a database connection
	MaxConnIdleTime = 30 * time.Minute
)
