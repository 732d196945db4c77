// Package kv provides the durable key-value stores backing adminkit: string
// keys holding JSON-serialized values, no schema versioning, last write wins.
package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get for absent keys.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store is the minimal persistent key-value contract. Concurrent writers to
// the same key race with last-write-wins semantics.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Change describes a mutation observed on a watched key.
type Change struct {
	Key     string
	Value   string
	Deleted bool
}

// Notifier is implemented by stores that can push change notifications.
// Consumers holding a bare Store fall back to polling.
type Notifier interface {
	// Watch returns a channel of changes for key and a cancel func. Slow
	// receivers may miss intermediate changes; only the fact that the key
	// changed is guaranteed to be observable.
	Watch(key string) (<-chan Change, func())
}

// IsNotFound reports whether err is the missing-key sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}
