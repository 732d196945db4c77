package adminkit

import (
	"context"
	"time"
)

// LoginThrottle enforces the failed-login lockout: once the counter reaches
// the threshold, further attempts are rejected for a fixed window measured
// from the last failure. Blocked attempts never reach the provider, so only
// genuine failures refresh the window.
type LoginThrottle struct {
	sessions *SessionStore
	max      int
	window   time.Duration
	now      Clock
}

func NewLoginThrottle(sessions *SessionStore, cfg Config) *LoginThrottle {
	return &LoginThrottle{
		sessions: sessions,
		max:      cfg.GetMaxLoginAttempts(),
		window:   cfg.GetLockoutWindow(),
		now:      time.Now,
	}
}

func (t *LoginThrottle) WithClock(clock Clock) *LoginThrottle {
	if clock != nil {
		t.now = clock
	}
	return t
}

// Blocked reports whether logins are currently locked out.
func (t *LoginThrottle) Blocked(ctx context.Context) (bool, error) {
	counter, err := t.sessions.LoadAttempts(ctx)
	if err != nil {
		return false, err
	}

	if counter.Count < t.max {
		return false, nil
	}

	return t.now().Sub(counter.LastAttemptAt) < t.window, nil
}

// RecordFailure increments the counter and stamps the failure time. A failure
// arriving after the window has fully elapsed starts a fresh count.
func (t *LoginThrottle) RecordFailure(ctx context.Context) error {
	counter, err := t.sessions.LoadAttempts(ctx)
	if err != nil {
		return err
	}

	now := t.now()
	if !counter.LastAttemptAt.IsZero() && now.Sub(counter.LastAttemptAt) >= t.window {
		counter.Count = 0
	}

	counter.Count++
	counter.LastAttemptAt = now

	return t.sessions.SaveAttempts(ctx, counter)
}

// Reset zeroes the counter. Called on every successful login.
func (t *LoginThrottle) Reset(ctx context.Context) error {
	return t.sessions.ResetAttempts(ctx)
}
