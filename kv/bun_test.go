package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ottovalles/go-adminkit/kv"
)

func newBunStore(t *testing.T) *kv.BunStore {
	t.Helper()

	db, err := kv.OpenSQLite("file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := kv.NewBunStore(db)
	require.NoError(t, store.Init(context.Background()))

	return store
}

func TestBunStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := newBunStore(t)

	_, err := store.Get(ctx, "missing")
	assert.True(t, kv.IsNotFound(err))

	require.NoError(t, store.Set(ctx, "token", "abc"))

	val, err := store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	// Upsert replaces the value in place.
	require.NoError(t, store.Set(ctx, "token", "def"))
	val, err = store.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "def", val)

	require.NoError(t, store.Delete(ctx, "token"))
	_, err = store.Get(ctx, "token")
	assert.True(t, kv.IsNotFound(err))

	assert.NoError(t, store.Delete(ctx, "token"))
}

func TestBunStoreInitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newBunStore(t)

	assert.NoError(t, store.Init(ctx))

	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Init(ctx))

	val, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestBunStoreIsolatedKeys(t *testing.T) {
	ctx := context.Background()
	store := newBunStore(t)

	require.NoError(t, store.Set(ctx, "a", "1"))
	require.NoError(t, store.Set(ctx, "b", "2"))

	require.NoError(t, store.Delete(ctx, "a"))

	val, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "2", val)
}
