package minidb

import "io"

// StoreReader wraps the read methods of a backing data store.
type StoreReader interface {
	// Has reports whether a key is present in the store.
	Has(key string) (bool, error)

	// Get retrieves the value stored under key. It returns ErrKeyNotFound
	// (matchable with errors.Is) when the key is absent.
	Get(key string) ([]byte, error)

	// GetMany retrieves the given keys. Absent keys are simply missing
	// from the returned map; they are not an error.
	GetMany(keys []string) (map[string][]byte, error)
}

// StoreWriter wraps the mutating methods of a backing data store. Every
// mutation is durably flushed before the call returns (unless the store
// was opened with WithNoSync).
type StoreWriter interface {
	// Set stores value under key, overwriting any previous value.
	Set(key string, value []byte) error

	// Delete removes key from the store. Deleting an absent key is a no-op.
	Delete(key string) error

	// SetMany stores every pair in items. The batch carries no atomicity
	// guarantee beyond the per-key semantics of Set.
	SetMany(items map[string][]byte) error

	// DeleteMany removes every key in keys, absent keys included.
	DeleteMany(keys []string) error

	// Clear erases every key in the store.
	Clear() error
}

// StoreSnapshotter wraps the whole-store enumeration methods.
type StoreSnapshotter interface {
	// Keys returns a sorted snapshot of every key in the store.
	Keys() ([]string, error)

	// KeysWithPrefix returns a sorted snapshot of every key starting with
	// the given prefix.
	KeysWithPrefix(prefix string) ([]string, error)

	// Values returns a snapshot of every value, in key order.
	Values() ([][]byte, error)

	// Items returns a snapshot of every key/value pair.
	Items() (map[string][]byte, error)
}

// StoreStater wraps the Stat method of a backing data store.
type StoreStater interface {
	// Stat returns backend statistics in a text format.
	Stat() (string, error)
}

// Store is a durable mapping from string keys to opaque values. All higher
// layers (Table, Index, Transaction) are built on it.
//
// A Store is not internally synchronized against concurrent mutation of the
// same key space through multiple handles; serializing such access is the
// caller's responsibility.
type Store interface {
	StoreReader
	StoreWriter
	StoreSnapshotter
	StoreStater
	io.Closer

	// Path returns the filesystem location backing the store.
	Path() string
}

// Open opens (creating if necessary) a pebble-backed store in the given
// directory.
func Open(dirname string, opts ...Option) (Store, error) {
	return newPebbleStore(dirname, opts...)
}
