package adminkit

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Clock abstracts time.Now so timer math can be driven in tests.
type Clock func() time.Time

// IdentityProvider is the remote service doing the actual credential
// verification and session issuance. We only consume it over HTTP.
type IdentityProvider interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, accessToken string) error
	Profile(ctx context.Context, accessToken string) (*Profile, error)
}

// CarouselMirror pushes carousel mutations to the remote media API.
// Mirroring is best-effort: callers log failures and keep local state.
type CarouselMirror interface {
	SaveItem(ctx context.Context, item CarouselItem) error
	DeleteItem(ctx context.Context, id string) error
}

// TokenValidator validates access tokens issued by the identity provider.
type TokenValidator interface {
	Validate(token string) (*TokenClaims, error)
}

// Config holds session and guard options
type Config interface {
	GetLoginRoute() string
	GetRejectedRouteKey() string
	GetMaxLoginAttempts() int
	GetLockoutWindow() time.Duration
	GetRefreshLead() time.Duration
	GetIdleTimeout() time.Duration
	GetIdleWarningThreshold() time.Duration
	GetIdleCheckInterval() time.Duration
	GetTokenWatchInterval() time.Duration
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ADMINKIT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ADMINKIT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ADMINKIT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ADMINKIT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
