package adminkit

import (
	"context"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"

	"github.com/ottovalles/go-adminkit/kv"
)

// Named timers owned by AuthSession. One of each exists at most; arming a
// timer again replaces the previous one.
const (
	timerRefresh    = "session.refresh"
	timerIdle       = "session.idle"
	timerTokenWatch = "session.token-watch"
)

// LogoutReason says why a session ended.
type LogoutReason string

const (
	LogoutUser        LogoutReason = "user"
	LogoutRefresh     LogoutReason = "refresh_failed"
	LogoutIdle        LogoutReason = "idle_timeout"
	LogoutTokenChange LogoutReason = "token_removed"
)

// LoginPayload carries user provided login credentials.
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will check the required fields are present
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// AuthSession owns the authenticated session lifecycle: login with lockout,
// scheduled token refresh, idle expiry, and detection of a logout performed
// by another process sharing the same store.
//
// All timers run on the injected Scheduler so tests can interrogate and
// callers can tear everything down with Stop.
type AuthSession struct {
	provider  IdentityProvider
	sessions  *SessionStore
	throttle  *LoginThrottle
	scheduler *Scheduler
	config    Config
	logger    Logger
	activity  ActivitySink
	now       Clock

	mu           sync.Mutex
	current      *Session
	started      bool
	idleWarned   bool
	lastRecorded time.Time
	watchCancel  func()

	onSignedIn  func(*Session)
	onSignedOut func(LogoutReason)
	onIdleWarn  func(remaining time.Duration)
	onRefreshed func(*Session)
}

func NewAuthSession(provider IdentityProvider, sessions *SessionStore, cfg Config) *AuthSession {
	if cfg == nil {
		cfg = SessionConfig{}
	}

	a := &AuthSession{
		provider:  provider,
		sessions:  sessions,
		scheduler: NewScheduler(),
		config:    cfg,
		logger:    defLogger{},
		activity:  noopActivitySink{},
		now:       time.Now,
	}
	a.throttle = NewLoginThrottle(sessions, cfg)

	return a
}

func (a *AuthSession) WithLogger(logger Logger) *AuthSession {
	if logger != nil {
		a.logger = logger
		a.scheduler.WithLogger(logger)
	}
	return a
}

func (a *AuthSession) WithClock(clock Clock) *AuthSession {
	if clock != nil {
		a.now = clock
		a.throttle.WithClock(clock)
	}
	return a
}

func (a *AuthSession) WithActivitySink(sink ActivitySink) *AuthSession {
	a.activity = normalizeActivitySink(sink)
	return a
}

func (a *AuthSession) WithScheduler(s *Scheduler) *AuthSession {
	if s != nil {
		a.scheduler = s
	}
	return a
}

// OnSignedIn registers a hook fired after a successful login or a session
// resumed by Start.
func (a *AuthSession) OnSignedIn(fn func(*Session)) *AuthSession {
	a.onSignedIn = fn
	return a
}

// OnSignedOut registers a hook fired whenever the session ends, whatever the
// reason.
func (a *AuthSession) OnSignedOut(fn func(LogoutReason)) *AuthSession {
	a.onSignedOut = fn
	return a
}

// OnIdleWarning registers a hook fired once when the session enters the
// warning window before idle expiry. Activity rearms it.
func (a *AuthSession) OnIdleWarning(fn func(remaining time.Duration)) *AuthSession {
	a.onIdleWarn = fn
	return a
}

// OnRefreshed registers a hook fired after every successful token refresh.
func (a *AuthSession) OnRefreshed(fn func(*Session)) *AuthSession {
	a.onRefreshed = fn
	return a
}

// Scheduler exposes the timer registry, mostly for tests.
func (a *AuthSession) Scheduler() *Scheduler {
	return a.scheduler
}

// Current returns the active session, nil when signed out.
func (a *AuthSession) Current() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Authenticated reports whether a live, unexpired session is held.
func (a *AuthSession) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil && !a.current.Expired(a.now())
}

// TokenSource returns a function yielding the current access token, empty
// when signed out. Handy for wiring HTTP clients without holding a reference
// to the whole session manager.
func (a *AuthSession) TokenSource() func() string {
	return func() string {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.current == nil {
			return ""
		}
		return a.current.AccessToken
	}
}

// Login authenticates against the identity provider. Failed attempts count
// toward lockout; once the limit is hit further attempts are rejected without
// reaching the provider until the lockout window lapses.
func (a *AuthSession) Login(ctx context.Context, payload LoginPayload) (*Session, error) {
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload").
			WithTextCode(TextCodeInvalidCreds)
	}

	blocked, err := a.throttle.Blocked(ctx)
	if err != nil {
		return nil, err
	}
	if blocked {
		a.record(ctx, ActivityEventLoginRateLimited, "", map[string]any{"email": payload.Email})
		return nil, ErrRateLimited
	}

	sess, err := a.provider.Login(ctx, payload.Email, payload.Password)
	if err != nil {
		if rerr := a.throttle.RecordFailure(ctx); rerr != nil {
			a.logger.Warn("failed to record login failure: %v", rerr)
		}
		a.record(ctx, ActivityEventLoginFailure, "", map[string]any{"email": payload.Email})
		return nil, goerrors.Wrap(err, ErrAuthenticationFailed.Category, ErrAuthenticationFailed.Message).
			WithTextCode(ErrAuthenticationFailed.TextCode).
			WithCode(ErrAuthenticationFailed.Code)
	}

	a.ensureExpiry(sess)

	if err := a.throttle.Reset(ctx); err != nil {
		a.logger.Warn("failed to reset login attempts: %v", err)
	}

	if err := a.sessions.SaveSession(ctx, sess); err != nil {
		return nil, err
	}

	if err := a.sessions.TouchActivity(ctx, a.now()); err != nil {
		a.logger.Warn("failed to stamp login activity: %v", err)
	}

	a.mu.Lock()
	a.current = sess
	a.idleWarned = false
	started := a.started
	a.mu.Unlock()

	a.scheduleRefresh(sess)
	if started {
		a.armBackgroundTimers()
	}

	a.record(ctx, ActivityEventLoginSuccess, sess.UserID, map[string]any{"email": sess.Email})

	if a.onSignedIn != nil {
		a.onSignedIn(sess)
	}

	return sess, nil
}

// Start resumes a persisted session if one exists, arms the refresh and idle
// timers, and begins watching the store for a logout performed elsewhere.
// Safe to call with no persisted session; the manager then idles until Login.
func (a *AuthSession) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	a.mu.Unlock()

	a.armBackgroundTimers()
	a.watchTokenKey()

	sess, err := a.sessions.LoadSession(ctx)
	if err != nil {
		if goerrors.Is(err, ErrUnableToFindSession) {
			return nil
		}
		return err
	}

	if sess.Expired(a.now()) {
		a.mu.Lock()
		a.current = sess
		a.mu.Unlock()
		// One refresh attempt settles it: either a fresh token or a clean
		// forced logout.
		return a.Refresh(ctx)
	}

	a.mu.Lock()
	a.current = sess
	a.idleWarned = false
	a.mu.Unlock()

	a.scheduleRefresh(sess)

	if a.onSignedIn != nil {
		a.onSignedIn(sess)
	}

	return nil
}

// Stop cancels every timer and watcher. The session, if any, stays persisted
// so a later Start can resume it.
func (a *AuthSession) Stop() {
	a.mu.Lock()
	a.started = false
	cancel := a.watchCancel
	a.watchCancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.scheduler.Stop()
}

// Refresh exchanges the refresh token for a new session. A single attempt is
// made; any failure ends the session (forced logout) rather than leaving the
// user on a token of unknown validity.
func (a *AuthSession) Refresh(ctx context.Context) error {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()

	if current == nil || current.RefreshToken == "" {
		a.forceLogout(ctx, LogoutRefresh)
		return ErrUnableToFindSession
	}

	sess, err := a.provider.Refresh(ctx, current.RefreshToken)
	if err != nil {
		a.logger.Error("session refresh failed, ending session: %v", err)
		a.forceLogout(ctx, LogoutRefresh)
		return goerrors.Wrap(err, ErrRefreshFailed.Category, ErrRefreshFailed.Message).
			WithTextCode(ErrRefreshFailed.TextCode).
			WithCode(ErrRefreshFailed.Code)
	}

	a.ensureExpiry(sess)

	// Providers may rotate only the access token; carry identity forward.
	if sess.UserID == "" {
		sess.UserID = current.UserID
	}
	if sess.Email == "" {
		sess.Email = current.Email
	}
	if sess.Role == "" {
		sess.Role = current.Role
	}
	if sess.RefreshToken == "" {
		sess.RefreshToken = current.RefreshToken
	}
	if sess.SessionID == "" {
		sess.SessionID = current.SessionID
	}

	if err := a.sessions.SaveSession(ctx, sess); err != nil {
		return err
	}

	a.mu.Lock()
	a.current = sess
	a.mu.Unlock()

	a.scheduleRefresh(sess)
	a.record(ctx, ActivityEventSessionRefreshed, sess.UserID, nil)

	if a.onRefreshed != nil {
		a.onRefreshed(sess)
	}

	return nil
}

// Logout ends the session on the user's request. The remote revocation is
// best effort: local state is cleared even when the provider call fails.
func (a *AuthSession) Logout(ctx context.Context) error {
	a.mu.Lock()
	current := a.current
	a.mu.Unlock()

	if current != nil && current.AccessToken != "" {
		if err := a.provider.Logout(ctx, current.AccessToken); err != nil {
			a.logger.Warn("remote logout failed, clearing local session anyway: %v", err)
		}
	}

	userID := ""
	if current != nil {
		userID = current.UserID
	}
	a.record(ctx, ActivityEventLogout, userID, nil)

	return a.endSession(ctx, LogoutUser)
}

// RecordActivity stamps user interaction for idle tracking. Call it freely;
// writes are throttled to at most one per second.
func (a *AuthSession) RecordActivity(ctx context.Context) {
	now := a.now()

	a.mu.Lock()
	if a.current == nil || now.Sub(a.lastRecorded) < time.Second {
		a.mu.Unlock()
		return
	}
	a.lastRecorded = now
	a.idleWarned = false
	a.mu.Unlock()

	if err := a.sessions.TouchActivity(ctx, now); err != nil {
		a.logger.Warn("failed to stamp activity: %v", err)
	}
}

// scheduleRefresh arms the refresh timer at expiry minus the configured lead.
// A token already inside the lead window refreshes immediately.
func (a *AuthSession) scheduleRefresh(sess *Session) {
	if sess == nil || sess.ExpiresAt.IsZero() {
		a.logger.Warn("session has no known expiry, refresh not scheduled")
		return
	}

	delay := refreshDelay(sess.ExpiresAt, a.config.GetRefreshLead(), a.now())
	a.logger.Debug("refresh scheduled in %s", delay)

	a.scheduler.Schedule(timerRefresh, delay, func() {
		if err := a.Refresh(context.Background()); err != nil {
			a.logger.Error("scheduled refresh failed: %v", err)
		}
	})
}

func refreshDelay(expiresAt time.Time, lead time.Duration, now time.Time) time.Duration {
	delay := expiresAt.Add(-lead).Sub(now)
	if delay < 0 {
		return 0
	}
	return delay
}

// ensureExpiry backfills ExpiresAt from the token's own expiry claim when the
// provider response did not carry one.
func (a *AuthSession) ensureExpiry(sess *Session) {
	if sess == nil || !sess.ExpiresAt.IsZero() || sess.AccessToken == "" {
		return
	}
	exp, err := DecodeExpiry(sess.AccessToken)
	if err != nil {
		a.logger.Warn("could not decode token expiry: %v", err)
		return
	}
	sess.ExpiresAt = exp
}

// armBackgroundTimers starts the recurring idle check and the token poll
// backstop. Both are cheap no-ops while signed out.
func (a *AuthSession) armBackgroundTimers() {
	a.scheduler.Every(timerIdle, a.config.GetIdleCheckInterval(), func() {
		a.checkIdle(context.Background())
	})
	a.scheduler.Every(timerTokenWatch, a.config.GetTokenWatchInterval(), func() {
		a.checkTokenPresent(context.Background())
	})
}

// watchTokenKey subscribes to store change notifications when the backing
// store supports them. The recurring poll remains as a backstop either way.
func (a *AuthSession) watchTokenKey() {
	notifier, ok := a.sessions.Store().(kv.Notifier)
	if !ok {
		return
	}

	changes, cancel := notifier.Watch(KeyToken)

	a.mu.Lock()
	a.watchCancel = cancel
	a.mu.Unlock()

	go func() {
		for change := range changes {
			if change.Deleted {
				a.logger.Info("access token removed from store, ending session")
				a.forceLogout(context.Background(), LogoutTokenChange)
			}
		}
	}()
}

// checkTokenPresent is the polling complement to watchTokenKey: if the token
// key has vanished while we think we are signed in, another process logged
// the user out.
func (a *AuthSession) checkTokenPresent(ctx context.Context) {
	a.mu.Lock()
	signedIn := a.current != nil
	a.mu.Unlock()

	if !signedIn {
		return
	}

	if _, err := a.sessions.Store().Get(ctx, KeyToken); kv.IsNotFound(err) {
		a.logger.Info("access token no longer present, ending session")
		a.forceLogout(ctx, LogoutTokenChange)
	}
}

// checkIdle enforces the inactivity timeout and fires the one-shot warning
// hook when expiry draws near.
func (a *AuthSession) checkIdle(ctx context.Context) {
	a.mu.Lock()
	signedIn := a.current != nil
	warned := a.idleWarned
	a.mu.Unlock()

	if !signedIn {
		return
	}

	last, err := a.sessions.LastActivity(ctx)
	if err != nil {
		a.logger.Warn("failed to read activity stamp: %v", err)
		return
	}
	if last.IsZero() {
		return
	}

	idle := a.now().Sub(last)
	timeout := a.config.GetIdleTimeout()

	if idle >= timeout {
		a.logger.Info("session idle for %s, ending session", idle.Round(time.Second))
		a.record(ctx, ActivityEventIdleTimeout, a.currentUserID(), map[string]any{"idle": idle.String()})
		a.forceLogout(ctx, LogoutIdle)
		return
	}

	remaining := timeout - idle
	if remaining <= a.config.GetIdleWarningThreshold() && !warned {
		a.mu.Lock()
		a.idleWarned = true
		a.mu.Unlock()
		if a.onIdleWarn != nil {
			a.onIdleWarn(remaining)
		}
	}
}

// forceLogout ends the session without a remote revocation call. Used for
// refresh failures, idle expiry, and externally removed tokens.
func (a *AuthSession) forceLogout(ctx context.Context, reason LogoutReason) {
	if reason != LogoutIdle {
		a.record(ctx, ActivityEventSessionExpired, a.currentUserID(), map[string]any{"reason": string(reason)})
	}
	if err := a.endSession(ctx, reason); err != nil {
		a.logger.Warn("failed to clear session state: %v", err)
	}
}

func (a *AuthSession) endSession(ctx context.Context, reason LogoutReason) error {
	a.scheduler.Cancel(timerRefresh)
	a.scheduler.Cancel(timerIdle)
	a.scheduler.Cancel(timerTokenWatch)

	a.mu.Lock()
	wasSignedIn := a.current != nil
	a.current = nil
	a.idleWarned = false
	a.mu.Unlock()

	err := a.sessions.ClearSession(ctx)

	if wasSignedIn && a.onSignedOut != nil {
		a.onSignedOut(reason)
	}

	return err
}

func (a *AuthSession) currentUserID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return ""
	}
	return a.current.UserID
}

func (a *AuthSession) record(ctx context.Context, typ ActivityEventType, userID string, meta map[string]any) {
	event := ActivityEvent{
		EventType:  typ,
		UserID:     userID,
		Metadata:   meta,
		OccurredAt: a.now(),
	}
	if err := a.activity.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink rejected event %s: %v", typ, err)
	}
}
