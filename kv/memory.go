package kv

import (
	"context"
	"sync"
)

// MemoryStore is a mutex-guarded in-process store with change notification.
// Useful for tests and single-process deployments that do not need
// persistence across restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[string]map[int]chan Change
	nextID   int
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ Notifier = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]string),
		watchers: make(map[string]map[int]chan Change),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return value, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.notifyLocked(Change{Key: key, Value: value})
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.data[key]
	delete(s.data, key)
	if existed {
		s.notifyLocked(Change{Key: key, Deleted: true})
	}
	s.mu.Unlock()
	return nil
}

// Watch implements Notifier. The returned channel is buffered; changes that
// arrive while the buffer is full are dropped rather than blocking writers.
func (s *MemoryStore) Watch(key string) (<-chan Change, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	ch := make(chan Change, 8)
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[int]chan Change)
	}
	s.watchers[key][id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if set, ok := s.watchers[key]; ok {
			if c, ok := set[id]; ok {
				delete(set, id)
				close(c)
			}
			if len(set) == 0 {
				delete(s.watchers, key)
			}
		}
	}

	return ch, cancel
}

func (s *MemoryStore) notifyLocked(change Change) {
	for _, ch := range s.watchers[change.Key] {
		select {
		case ch <- change:
		default:
		}
	}
}
