package kv_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottovalles/go-adminkit/kv"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	_, err := store.Get(ctx, "missing")
	assert.True(t, kv.IsNotFound(err))

	require.NoError(t, store.Set(ctx, "k", "v1"))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v1", val)

	require.NoError(t, store.Set(ctx, "k", "v2"))
	val, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", val)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.True(t, kv.IsNotFound(err))

	// Deleting a missing key is a no-op.
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestMemoryStoreWatch(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()

	changes, cancel := store.Watch("token")
	defer cancel()

	require.NoError(t, store.Set(ctx, "token", "abc"))
	require.NoError(t, store.Set(ctx, "other", "ignored"))
	require.NoError(t, store.Delete(ctx, "token"))

	change := <-changes
	assert.Equal(t, "token", change.Key)
	assert.Equal(t, "abc", change.Value)
	assert.False(t, change.Deleted)

	change = <-changes
	assert.Equal(t, "token", change.Key)
	assert.True(t, change.Deleted)

	select {
	case c := <-changes:
		t.Fatalf("unexpected change for key %q", c.Key)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMemoryStoreWatchDeleteOfMissingKeyIsSilent(t *testing.T) {
	store := kv.NewMemoryStore()

	changes, cancel := store.Watch("token")
	defer cancel()

	require.NoError(t, store.Delete(context.Background(), "token"))

	select {
	case <-changes:
		t.Fatal("delete of a missing key must not notify")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestMemoryStoreWatchCancel(t *testing.T) {
	store := kv.NewMemoryStore()

	changes, cancel := store.Watch("token")
	cancel()

	_, open := <-changes
	assert.False(t, open, "cancel closes the channel")

	// Idempotent, and writes after cancel must not panic.
	cancel()
	assert.NoError(t, store.Set(context.Background(), "token", "abc"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, kv.IsNotFound(kv.ErrKeyNotFound))
	assert.False(t, kv.IsNotFound(nil))
	assert.False(t, kv.IsNotFound(errors.New("boom")))
}
