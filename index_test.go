package minidb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sxwebdev/minidb"
)

func TestIndex_AddFindRemove(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix, err := m.CreateIndex("users", "name")
	require.NoError(t, err)

	require.NoError(t, ix.AddEntry("r1", minidb.String("Alice")))
	require.NoError(t, ix.AddEntry("r2", minidb.String("Alice")))
	require.NoError(t, ix.AddEntry("r3", minidb.String("Bob")))

	assert.Equal(t, []string{"r1", "r2"}, ix.FindRows(minidb.String("Alice")))
	assert.Equal(t, []string{"r3"}, ix.FindRows(minidb.String("Bob")))
	assert.Empty(t, ix.FindRows(minidb.String("Carol")))

	require.NoError(t, ix.RemoveEntry("r1", minidb.String("Alice")))
	assert.Equal(t, []string{"r2"}, ix.FindRows(minidb.String("Alice")))

	// Removing an unindexed pair is a no-op.
	require.NoError(t, ix.RemoveEntry("r9", minidb.String("Nobody")))
}

func TestIndex_NullValuesNotIndexed(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix, err := m.CreateIndex("users", "nickname")
	require.NoError(t, err)

	require.NoError(t, ix.AddEntry("r1", minidb.Null))
	assert.Empty(t, ix.FindRows(minidb.Null))

	// No blob is written for a null-only add.
	_, err = store.Get("idx:users:nickname")
	require.ErrorIs(t, err, minidb.ErrKeyNotFound)
}

func TestIndex_UpdateEntry(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix, err := m.CreateIndex("users", "name")
	require.NoError(t, err)

	require.NoError(t, ix.AddEntry("r1", minidb.String("Alice")))
	require.NoError(t, ix.UpdateEntry("r1", minidb.String("Alice"), minidb.String("Alice Smith")))

	assert.Empty(t, ix.FindRows(minidb.String("Alice")))
	assert.Equal(t, []string{"r1"}, ix.FindRows(minidb.String("Alice Smith")))
}

func TestIndex_PersistsAcrossReload(t *testing.T) {
	store := newTestStore(t)

	m := minidb.NewIndexManager(store, nil)
	ix, err := m.CreateIndex("users", "age")
	require.NoError(t, err)
	require.NoError(t, ix.AddEntry("r1", minidb.Int(30)))
	require.NoError(t, ix.AddEntry("r2", minidb.Int(40)))

	// A fresh manager over the same store loads the persisted blob.
	m2 := minidb.NewIndexManager(store, nil)
	ix2, err := m2.CreateIndex("users", "age")
	require.NoError(t, err)

	assert.Equal(t, []string{"r1"}, ix2.FindRows(minidb.Int(30)))
	assert.Equal(t, []string{"r2"}, ix2.FindRows(minidb.Int(40)))
}

func TestIndex_EmptyBucketsPruned(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix, err := m.CreateIndex("users", "name")
	require.NoError(t, err)

	require.NoError(t, ix.AddEntry("r1", minidb.String("Alice")))
	require.NoError(t, ix.RemoveEntry("r1", minidb.String("Alice")))

	// The pruned bucket must not resurface after a reload.
	ix2, err := minidb.NewIndexManager(store, nil).CreateIndex("users", "name")
	require.NoError(t, err)
	assert.Empty(t, ix2.FindRows(minidb.String("Alice")))

	data, err := store.Get("idx:users:name")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(data))
}

func TestIndex_FindRange(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix, err := m.CreateIndex("words", "w")
	require.NoError(t, err)

	require.NoError(t, ix.AddEntry("r1", minidb.String("apple")))
	require.NoError(t, ix.AddEntry("r2", minidb.String("banana")))
	require.NoError(t, ix.AddEntry("r3", minidb.String("cherry")))

	got := ix.FindRange(minidb.String("apple"), minidb.String("banana"))
	assert.Equal(t, []string{"r1", "r2"}, got)
}

func TestIndex_FindRangeIsLexicographic(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix, err := m.CreateIndex("nums", "n")
	require.NoError(t, err)

	require.NoError(t, ix.AddEntry("r9", minidb.Int(9)))
	require.NoError(t, ix.AddEntry("r10", minidb.Int(10)))
	require.NoError(t, ix.AddEntry("r11", minidb.Int(11)))

	// "10" and "11" fall in ["1", "2"], "9" does not: string ordering, not
	// numeric.
	got := ix.FindRange(minidb.String("1"), minidb.String("2"))
	assert.Equal(t, []string{"r10", "r11"}, got)
}

func TestIndexManager_CreateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix1, err := m.CreateIndex("users", "name")
	require.NoError(t, err)
	ix2, err := m.CreateIndex("users", "name")
	require.NoError(t, err)

	assert.Same(t, ix1, ix2)
	assert.Same(t, ix1, m.Index("users", "name"))
	assert.Nil(t, m.Index("users", "email"))
}

func TestIndexManager_DropIndex(t *testing.T) {
	store := newTestStore(t)
	m := minidb.NewIndexManager(store, nil)

	ix, err := m.CreateIndex("users", "name")
	require.NoError(t, err)
	require.NoError(t, ix.AddEntry("r1", minidb.String("Alice")))

	require.NoError(t, m.DropIndex("users", "name"))
	assert.Nil(t, m.Index("users", "name"))

	_, err = store.Get("idx:users:name")
	require.ErrorIs(t, err, minidb.ErrKeyNotFound)

	// Dropping a never-created index is a no-op.
	require.NoError(t, m.DropIndex("users", "missing"))
}
