package adminkit_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	adminkit "github.com/ottovalles/go-adminkit"
	"github.com/ottovalles/go-adminkit/kv"
)

// MockIdentityProvider implements adminkit.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Login(ctx context.Context, email, password string) (*adminkit.Session, error) {
	args := m.Called(ctx, email, password)
	sess, _ := args.Get(0).(*adminkit.Session)
	return sess, args.Error(1)
}

func (m *MockIdentityProvider) Refresh(ctx context.Context, refreshToken string) (*adminkit.Session, error) {
	args := m.Called(ctx, refreshToken)
	sess, _ := args.Get(0).(*adminkit.Session)
	return sess, args.Error(1)
}

func (m *MockIdentityProvider) Logout(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

func (m *MockIdentityProvider) Profile(ctx context.Context, accessToken string) (*adminkit.Profile, error) {
	args := m.Called(ctx, accessToken)
	profile, _ := args.Get(0).(*adminkit.Profile)
	return profile, args.Error(1)
}

// MockCarouselMirror implements adminkit.CarouselMirror
type MockCarouselMirror struct {
	mock.Mock
}

func (m *MockCarouselMirror) SaveItem(ctx context.Context, item adminkit.CarouselItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockCarouselMirror) DeleteItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// testClock provides a controllable clock for timer math.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []adminkit.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event adminkit.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []adminkit.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]adminkit.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.EventType)
	}
	return types
}

func containsEvent(types []adminkit.ActivityEventType, want adminkit.ActivityEventType) bool {
	for _, typ := range types {
		if typ == want {
			return true
		}
	}
	return false
}

func newTestSessions() *adminkit.SessionStore {
	return adminkit.NewSessionStore(kv.NewMemoryStore())
}

func testSession(exp time.Time) *adminkit.Session {
	return &adminkit.Session{
		UserID:       "user-1",
		Email:        "admin@example.com",
		Role:         adminkit.RoleAdmin,
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    exp,
		SessionID:    "session-1",
	}
}
