// Package minidb is a minimal embedded data store: a durable key-value
// substrate (Pebble or bbolt) overlaid with tables, secondary indexes,
// staged transactions and a bounded connection pool.
//
// # Overview
//
// The package is built leaf-first:
//
//   - Store: a durable string-keyed key-value mapping. Every mutation is
//     flushed to disk before the call returns.
//   - Index / IndexManager: inverted mappings from field value to row ids,
//     persisted through the Store.
//   - Table / Row: structured records encoded as JSON documents under the
//     key scheme "<table>:<row-id>", kept in sync with their indexes.
//   - Transaction / TransactionManager: staged set/delete batches applied
//     as a unit, one active transaction per context.
//   - ConnectionPool: bounded, leased access to Store handles.
//
// # Quick start
//
//	store, err := minidb.Open("./data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	users, err := minidb.NewTable("users", store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	id, err := users.Insert(minidb.Row{
//	    "name":  minidb.String("Alice"),
//	    "email": minidb.String("a@x.com"),
//	})
//
//	row, ok, err := users.Query(id)
//
// Alternatively OpenBolt gives the same Store contract on a single bbolt
// file.
//
// # Rows and values
//
// A Row maps field names to dynamically-typed scalars. Value is a tagged
// union over null, int64, float64, string, bool and time.Time:
//
//	row := minidb.Row{
//	    "name": minidb.String("Bob"),
//	    "age":  minidb.Int(42),
//	}
//
// Rows are stored as JSON documents; everything JSON can represent
// round-trips losslessly. Timestamps are serialized as RFC3339Nano strings and
// therefore decode as strings unless a schema coerces them back.
//
// # Schemas
//
// A table may carry a schema that validates and coerces every insert and
// update before anything touches storage:
//
//	schema := minidb.NewSchema().
//	    Field("name", minidb.FieldSpec{Kind: minidb.KindString}).
//	    Field("age", minidb.FieldSpec{Kind: minidb.KindInt, Optional: true})
//
//	users, err := minidb.NewTable("users", store, minidb.WithSchema(schema))
//
// A validation failure aborts the operation with no side effects.
//
// # Indexes
//
// Secondary indexes answer equality lookups without scanning:
//
//	users.CreateIndex("name")
//	rows, err := users.QueryByField("name", minidb.String("Alice"))
//
// Querying an unindexed field falls back to a full scan, logged as a
// warning. Index.FindRange unions buckets under lexicographic string
// ordering of the stringified values; numeric ranges spanning digit counts
// will not order numerically.
//
// # Transactions
//
// Transactions stage writes in memory and apply them on commit:
//
//	tm := minidb.NewTransactionManager(nil)
//	err := tm.Do(ctx, store, func(ctx context.Context, tx *minidb.Transaction) error {
//	    if err := tx.Set("k1", []byte("v1")); err != nil {
//	        return err
//	    }
//	    return tx.Delete("k2")
//	})
//
// Do commits on clean return and rolls back on error or panic. The active
// transaction travels in the context handed to the body, and starting a
// second transaction on that context fails with ErrTxInProgress. A commit
// that fails midway clears the staged buffer but does not undo writes
// already applied to the store.
//
// # Connection pooling
//
//	pool := minidb.NewConnectionPool(func() (minidb.Store, error) {
//	    return minidb.Open(nextDir())
//	}, minidb.WithMaxConnections(4))
//	defer pool.Close()
//
//	err := pool.WithConnection(func(conn *minidb.Connection) error {
//	    return conn.Store().Set("k", []byte("v"))
//	})
//
// The pool creates connections lazily up to its capacity and hands out
// exclusive leases; Acquire fails with ErrMaxConnections when the pool is
// exhausted for longer than the acquire timeout.
//
// # Key namespace
//
// Row keys are "<table>:<row-id>" and index blobs live under
// "idx:<table>:<field>". Table names therefore may not contain ':' or use
// the reserved "idx" prefix; NewTable enforces this.
//
// # Concurrency
//
// Stores and pools are safe for concurrent use. A Table serializes nothing
// beyond what its Store does: concurrent writers to the same index must
// coordinate. A Transaction is internally locked but is meant to be used
// from one goroutine; two goroutines can each run their own transaction
// concurrently.
package minidb
