package adminkit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/ottovalles/go-adminkit/kv"
)

// Storage keys. These are the de-facto schema of the durable local store:
// string keys holding JSON values, no versioning.
const (
	KeyToken            = "token"
	KeyRefreshToken     = "refreshToken"
	KeyUserData         = "userData"
	KeySessionID        = "sessionId"
	KeyFailedAttempts   = "failedLoginAttempts"
	KeyLastActivity     = "lastActivityAt"
	KeyCarouselItems    = "carouselItems"
	KeyHomepageCarousel = "homepageCarouselData"
)

// Session holds the authenticated user's token and profile bundle. It is
// owned by AuthSession: mutated on login/refresh, destroyed on logout or a
// terminal refresh failure.
type Session struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Role         UserRole  `json:"role"`
	Permissions  []string  `json:"permissions,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id,omitempty"`
}

// Expired reports whether the access token is past its expiry at now.
// Sessions without a known expiry are treated as live; the scheduled refresh
// settles their fate.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !s.ExpiresAt.After(now)
}

// HasPermission checks the session's permission set.
func (s *Session) HasPermission(perm string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

func (s Session) String() string {
	return fmt.Sprintf("user=%s email=%s role=%s exp=%s",
		s.UserID, s.Email, s.Role, s.ExpiresAt.Format(time.RFC1123))
}

// Profile is the remote user profile as far as this toolkit cares about it.
// The provider's schema carries more; we decode only what we use.
type Profile struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username,omitempty"`
	Role     UserRole `json:"role,omitempty"`
}

// FailedAttemptCounter tracks failed logins for lockout computation.
type FailedAttemptCounter struct {
	Count         int       `json:"count"`
	LastAttemptAt time.Time `json:"last_attempt_at"`
}

// userData is the persisted profile slice of a Session. Tokens live under
// their own keys so a cross-process logout can delete them independently.
type userData struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        UserRole  `json:"role"`
	Permissions []string  `json:"permissions,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionStore persists the session bundle and security counters on a
// kv.Store under fixed keys.
type SessionStore struct {
	store  kv.Store
	logger Logger
}

func NewSessionStore(store kv.Store) *SessionStore {
	return &SessionStore{store: store, logger: defLogger{}}
}

func (s *SessionStore) WithLogger(logger Logger) *SessionStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Store exposes the underlying kv store for components that need to watch
// keys (cross-process logout detection).
func (s *SessionStore) Store() kv.Store {
	return s.store
}

// SaveSession writes the four auth keys.
func (s *SessionStore) SaveSession(ctx context.Context, sess *Session) error {
	if sess == nil {
		return goerrors.New("cannot persist nil session", goerrors.CategoryBadInput)
	}

	data, err := json.Marshal(userData{
		UserID:      sess.UserID,
		Email:       sess.Email,
		Role:        sess.Role,
		Permissions: sess.Permissions,
		ExpiresAt:   sess.ExpiresAt,
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize session profile")
	}

	if err := s.store.Set(ctx, KeyToken, sess.AccessToken); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist access token")
	}
	if err := s.store.Set(ctx, KeyRefreshToken, sess.RefreshToken); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
	}
	if err := s.store.Set(ctx, KeyUserData, string(data)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session profile")
	}
	if err := s.store.Set(ctx, KeySessionID, sess.SessionID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist session id")
	}

	return nil
}

// LoadSession rebuilds the session bundle from the store.
func (s *SessionStore) LoadSession(ctx context.Context) (*Session, error) {
	token, err := s.store.Get(ctx, KeyToken)
	if err != nil {
		if kv.IsNotFound(err) {
			return nil, ErrUnableToFindSession
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read access token")
	}

	sess := &Session{AccessToken: token}

	if refresh, err := s.store.Get(ctx, KeyRefreshToken); err == nil {
		sess.RefreshToken = refresh
	}

	if id, err := s.store.Get(ctx, KeySessionID); err == nil {
		sess.SessionID = id
	}

	raw, err := s.store.Get(ctx, KeyUserData)
	if err != nil {
		if kv.IsNotFound(err) {
			return sess, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read session profile")
	}

	var data userData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode session profile")
	}

	sess.UserID = data.UserID
	sess.Email = data.Email
	sess.Role = data.Role
	sess.Permissions = data.Permissions
	sess.ExpiresAt = data.ExpiresAt

	return sess, nil
}

// ClearSession deletes the four auth keys. Deletion is idempotent.
func (s *SessionStore) ClearSession(ctx context.Context) error {
	var firstErr error
	for _, key := range []string{KeyToken, KeyRefreshToken, KeyUserData, KeySessionID} {
		if err := s.store.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session key")
		}
	}
	return firstErr
}

// LoadAttempts returns the failed-login counter, zero-valued when absent.
func (s *SessionStore) LoadAttempts(ctx context.Context) (FailedAttemptCounter, error) {
	raw, err := s.store.Get(ctx, KeyFailedAttempts)
	if err != nil {
		if kv.IsNotFound(err) {
			return FailedAttemptCounter{}, nil
		}
		return FailedAttemptCounter{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read login attempts")
	}

	var counter FailedAttemptCounter
	if err := json.Unmarshal([]byte(raw), &counter); err != nil {
		// A corrupt counter must never lock the user out forever.
		s.logger.Warn("resetting unreadable login attempt counter: %v", err)
		return FailedAttemptCounter{}, nil
	}

	return counter, nil
}

// SaveAttempts persists the failed-login counter.
func (s *SessionStore) SaveAttempts(ctx context.Context, counter FailedAttemptCounter) error {
	raw, err := json.Marshal(counter)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to serialize login attempts")
	}
	if err := s.store.Set(ctx, KeyFailedAttempts, string(raw)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist login attempts")
	}
	return nil
}

// ResetAttempts zeroes the counter.
func (s *SessionStore) ResetAttempts(ctx context.Context) error {
	return s.store.Delete(ctx, KeyFailedAttempts)
}

// TouchActivity stamps the last-interaction time.
func (s *SessionStore) TouchActivity(ctx context.Context, t time.Time) error {
	return s.store.Set(ctx, KeyLastActivity, t.UTC().Format(time.RFC3339Nano))
}

// LastActivity returns the last-interaction time, zero when never stamped.
func (s *SessionStore) LastActivity(ctx context.Context) (time.Time, error) {
	raw, err := s.store.Get(ctx, KeyLastActivity)
	if err != nil {
		if kv.IsNotFound(err) {
			return time.Time{}, nil
		}
		return time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read activity stamp")
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse activity stamp")
	}
	return t, nil
}
