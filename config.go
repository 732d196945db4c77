package adminkit

import "time"

const (
	// DefaultMaxLoginAttempts is the number of failed logins tolerated
	// before the lockout window kicks in.
	DefaultMaxLoginAttempts = 5
	// DefaultLockoutWindow is the sliding window measured from the last
	// failed attempt.
	DefaultLockoutWindow = 15 * time.Minute
	// DefaultRefreshLead is how long before token expiry we refresh.
	DefaultRefreshLead = 5 * time.Minute
	// DefaultIdleTimeout is the hard inactivity cutoff.
	DefaultIdleTimeout = 24 * time.Hour
	// DefaultIdleWarningThreshold is the soft warning threshold surfaced
	// through the OnIdleWarning hook. It is deliberately much shorter than
	// the hard timeout; both are configurable independently.
	DefaultIdleWarningThreshold = 30 * time.Minute
	// DefaultIdleCheckInterval bounds inactivity detection latency.
	DefaultIdleCheckInterval = time.Minute
	// DefaultTokenWatchInterval bounds cross-process logout detection when
	// the backing store cannot push change notifications.
	DefaultTokenWatchInterval = 30 * time.Second
)

// SessionConfig is a plain struct implementation of Config. Zero values fall
// back to the package defaults.
type SessionConfig struct {
	LoginRoute           string
	RejectedRouteKey     string
	MaxLoginAttempts     int
	LockoutWindow        time.Duration
	RefreshLead          time.Duration
	IdleTimeout          time.Duration
	IdleWarningThreshold time.Duration
	IdleCheckInterval    time.Duration
	TokenWatchInterval   time.Duration
}

var _ Config = SessionConfig{}

func (c SessionConfig) GetLoginRoute() string {
	if c.LoginRoute == "" {
		return "/login"
	}
	return c.LoginRoute
}

func (c SessionConfig) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return "admin_redirect"
	}
	return c.RejectedRouteKey
}

func (c SessionConfig) GetMaxLoginAttempts() int {
	if c.MaxLoginAttempts <= 0 {
		return DefaultMaxLoginAttempts
	}
	return c.MaxLoginAttempts
}

func (c SessionConfig) GetLockoutWindow() time.Duration {
	if c.LockoutWindow <= 0 {
		return DefaultLockoutWindow
	}
	return c.LockoutWindow
}

func (c SessionConfig) GetRefreshLead() time.Duration {
	if c.RefreshLead <= 0 {
		return DefaultRefreshLead
	}
	return c.RefreshLead
}

func (c SessionConfig) GetIdleTimeout() time.Duration {
	if c.IdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return c.IdleTimeout
}

func (c SessionConfig) GetIdleWarningThreshold() time.Duration {
	if c.IdleWarningThreshold <= 0 {
		return DefaultIdleWarningThreshold
	}
	return c.IdleWarningThreshold
}

func (c SessionConfig) GetIdleCheckInterval() time.Duration {
	if c.IdleCheckInterval <= 0 || c.IdleCheckInterval > DefaultIdleCheckInterval {
		return DefaultIdleCheckInterval
	}
	return c.IdleCheckInterval
}

func (c SessionConfig) GetTokenWatchInterval() time.Duration {
	if c.TokenWatchInterval <= 0 || c.TokenWatchInterval > DefaultTokenWatchInterval {
		return DefaultTokenWatchInterval
	}
	return c.TokenWatchInterval
}
