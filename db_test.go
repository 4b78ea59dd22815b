package minidb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sxwebdev/minidb"
)

func TestDB_Tables(t *testing.T) {
	db := minidb.NewDB(newTestStore(t))

	users, err := db.CreateTable("users")
	require.NoError(t, err)
	_, err = db.CreateTable("orders")
	require.NoError(t, err)

	// Creating the same table twice returns the existing instance.
	again, err := db.CreateTable("users")
	require.NoError(t, err)
	assert.Same(t, users, again)

	got, err := db.Table("users")
	require.NoError(t, err)
	assert.Same(t, users, got)

	_, err = db.Table("missing")
	require.ErrorIs(t, err, minidb.ErrTableNotFound)

	assert.Equal(t, []string{"orders", "users"}, db.ListTables())
}

func TestDB_TablesShareStore(t *testing.T) {
	db := minidb.NewDB(newTestStore(t))

	users, err := db.CreateTable("users")
	require.NoError(t, err)

	id, err := users.Insert(minidb.Row{"name": minidb.String("Alice")})
	require.NoError(t, err)

	data, err := db.Store().Get("users:" + id)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Alice")
}

func TestDB_OpenDB(t *testing.T) {
	db, err := minidb.OpenDB(t.TempDir())
	require.NoError(t, err)

	users, err := db.CreateTable("users")
	require.NoError(t, err)
	_, err = users.Insert(minidb.Row{"name": minidb.String("Alice")})
	require.NoError(t, err)

	require.NoError(t, db.Close())

	_, err = db.Store().Get("anything")
	require.ErrorIs(t, err, minidb.ErrStoreClosed)
}
