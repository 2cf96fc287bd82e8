package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.Set(ctx, "apq:sig1", "query { hero }"))

	got, err := store.Get(ctx, "apq:sig1")
	require.NoError(t, err)
	assert.Equal(t, "query { hero }", got)
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.Get(context.Background(), "apq:absent")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSQLiteStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	require.NoError(t, store.Set(ctx, "k", "v1"))
	require.NoError(t, store.Set(ctx, "k", "v2"))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestSQLiteStoreDeleteAbsentIsNoop(t *testing.T) {
	store := newTestSQLiteStore(t)
	require.NoError(t, store.Delete(context.Background(), "apq:absent"))
}

func TestFactorySelectsBackend(t *testing.T) {
	// The NATS backend needs a live server; factory coverage stops at the
	// embeddable backends.
	t.Run("memory", func(t *testing.T) {
		store, err := New(configFor("memory", ""))
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*MemoryStore)
		assert.True(t, ok)
	})

	t.Run("sqlite", func(t *testing.T) {
		store, err := New(configFor("sqlite", ":memory:"))
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*SQLiteStore)
		assert.True(t, ok)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := New(configFor("redis", ""))
		require.Error(t, err)
	})
}
