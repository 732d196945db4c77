package adminkit

import (
	"sync"
	"time"
)

// Scheduler owns every timer in the toolkit: cancellable, named, one-shot or
// repeating. Scheduling under an existing name replaces the pending timer,
// which keeps the refresh/idle/watch ticks from piling up.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
	logger Logger
}

// timerEntry identifies one armed timer. The pointer doubles as an identity
// token so a fired one-shot only clears its own registration, never a
// replacement armed under the same name.
type timerEntry struct {
	cancel func()
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		timers: make(map[string]*timerEntry),
		logger: defLogger{},
	}
}

func (s *Scheduler) WithLogger(logger Logger) *Scheduler {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Schedule arms a one-shot timer. A non-positive delay fires immediately.
func (s *Scheduler) Schedule(name string, d time.Duration, fn func()) {
	if fn == nil {
		return
	}
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(name)

	entry := &timerEntry{}
	timer := time.AfterFunc(d, func() {
		s.clear(name, entry)
		fn()
	})
	entry.cancel = func() { timer.Stop() }
	s.timers[name] = entry
}

// Every arms a repeating timer with period d.
func (s *Scheduler) Every(name string, d time.Duration, fn func()) {
	if fn == nil || d <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(name)

	ticker := time.NewTicker(d)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	s.timers[name] = &timerEntry{cancel: func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}}
}

// Cancel stops the named timer if pending. Unknown names are a no-op.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(name)
}

// Pending reports whether a timer is currently armed under name.
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

// Stop cancels every pending timer. The scheduler stays usable, so a later
// Schedule or Every arms fresh timers. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.timers {
		s.cancelLocked(name)
	}
}

func (s *Scheduler) cancelLocked(name string) {
	if entry, ok := s.timers[name]; ok {
		entry.cancel()
		delete(s.timers, name)
	}
}

// clear removes a fired one-shot's registration, but only if the entry is
// still its own: a same-name replacement scheduled while the timer was firing
// must stay registered.
func (s *Scheduler) clear(name string, entry *timerEntry) {
	s.mu.Lock()
	if s.timers[name] == entry {
		delete(s.timers, name)
	}
	s.mu.Unlock()
}
