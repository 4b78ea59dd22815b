package minidb_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sxwebdev/minidb"
)

func newTestStore(t *testing.T) minidb.Store {
	t.Helper()

	store, err := minidb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestBoltStore(t *testing.T) minidb.Store {
	t.Helper()

	store, err := minidb.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// Both backends must satisfy the same contract; run the whole suite against
// each.
func forEachBackend(t *testing.T, fn func(t *testing.T, store minidb.Store)) {
	t.Run("pebble", func(t *testing.T) {
		fn(t, newTestStore(t))
	})
	t.Run("bolt", func(t *testing.T) {
		fn(t, newTestBoltStore(t))
	})
}

func TestStore_BasicOperations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store minidb.Store) {
		err := store.Set("key", []byte("value"))
		require.NoError(t, err)

		got, err := store.Get("key")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)

		exists, err := store.Has("key")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.Has("missing")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Get("missing")
		require.ErrorIs(t, err, minidb.ErrKeyNotFound)

		err = store.Delete("key")
		require.NoError(t, err)

		_, err = store.Get("key")
		require.ErrorIs(t, err, minidb.ErrKeyNotFound)

		// Deleting an absent key is a no-op.
		require.NoError(t, store.Delete("key"))
	})
}

func TestStore_EmptyKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store minidb.Store) {
		require.ErrorIs(t, store.Set("", []byte("v")), minidb.ErrEmptyKey)
		_, err := store.Get("")
		require.ErrorIs(t, err, minidb.ErrEmptyKey)
		require.ErrorIs(t, store.Delete(""), minidb.ErrEmptyKey)
	})
}

func TestStore_BulkOperations(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store minidb.Store) {
		err := store.SetMany(map[string][]byte{
			"a": []byte("1"),
			"b": []byte("2"),
			"c": []byte("3"),
		})
		require.NoError(t, err)

		got, err := store.GetMany([]string{"a", "c", "missing"})
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{
			"a": []byte("1"),
			"c": []byte("3"),
		}, got)

		err = store.DeleteMany([]string{"a", "b", "missing"})
		require.NoError(t, err)

		keys, err := store.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, keys)
	})
}

func TestStore_Snapshots(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store minidb.Store) {
		require.NoError(t, store.Set("b", []byte("2")))
		require.NoError(t, store.Set("a", []byte("1")))

		keys, err := store.Keys()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keys)

		values, err := store.Values()
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("1"), []byte("2")}, values)

		items, err := store.Items()
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{
			"a": []byte("1"),
			"b": []byte("2"),
		}, items)
	})
}

func TestStore_Clear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store minidb.Store) {
		require.NoError(t, store.Set("a", []byte("1")))
		require.NoError(t, store.Set("b", []byte("2")))

		require.NoError(t, store.Clear())

		keys, err := store.Keys()
		require.NoError(t, err)
		assert.Empty(t, keys)

		// The store keeps working after a clear.
		require.NoError(t, store.Set("c", []byte("3")))
		got, err := store.Get("c")
		require.NoError(t, err)
		assert.Equal(t, []byte("3"), got)
	})
}

func TestStore_UseAfterClose(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store minidb.Store) {
		require.NoError(t, store.Close())
		// Double close is allowed.
		require.NoError(t, store.Close())

		require.ErrorIs(t, store.Set("k", []byte("v")), minidb.ErrStoreClosed)
		_, err := store.Get("k")
		require.ErrorIs(t, err, minidb.ErrStoreClosed)
		_, err = store.Keys()
		require.ErrorIs(t, err, minidb.ErrStoreClosed)
	})
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()

	store, err := minidb.Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("persist", []byte("me")))
	require.NoError(t, store.Close())

	store, err = minidb.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Get("persist")
	require.NoError(t, err)
	assert.Equal(t, []byte("me"), got)
}
