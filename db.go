package minidb

import (
	"fmt"
	"sort"
	"sync"
)

// DB is the top-level façade: one Store shared by a set of named tables.
type DB struct {
	store Store
	log   Logger

	mu     sync.Mutex
	tables map[string]*Table
}

type DBOption func(*DB)

// WithDBLogger sets the logger used by the database and its tables.
func WithDBLogger(log Logger) DBOption {
	return func(db *DB) {
		if log != nil {
			db.log = log
		}
	}
}

// NewDB wraps an already opened store.
func NewDB(store Store, opts ...DBOption) *DB {
	db := &DB{
		store:  store,
		log:    defaultLogger(),
		tables: make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// OpenDB opens a pebble-backed store in dir and wraps it.
func OpenDB(dir string, opts ...Option) (*DB, error) {
	store, err := Open(dir, opts...)
	if err != nil {
		return nil, err
	}
	return NewDB(store), nil
}

// Store exposes the underlying store, e.g. for transactions.
func (db *DB) Store() Store { return db.store }

// CreateTable creates a table bound to the database store. Creating the
// same name twice returns the existing table; the options only apply on
// first creation.
func (db *DB) CreateTable(name string, opts ...TableOption) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if t, ok := db.tables[name]; ok {
		return t, nil
	}
	opts = append([]TableOption{WithTableLogger(db.log)}, opts...)
	t, err := NewTable(name, db.store, opts...)
	if err != nil {
		return nil, err
	}
	db.tables[name] = t
	return t, nil
}

// Table returns a previously created table, or ErrTableNotFound.
func (db *DB) Table(name string) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	return t, nil
}

// ListTables returns the sorted names of every created table.
func (db *DB) ListTables() []string {
	db.mu.Lock()
	defer db.mu.Unlock()

	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the underlying store.
func (db *DB) Close() error {
	return db.store.Close()
}
