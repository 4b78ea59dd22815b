package minidb

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Transaction stages a batch of set/delete operations against a Store and
// applies them as a unit on Commit. It is terminal once committed or rolled
// back; further mutation attempts fail with ErrTxDone.
//
// A transaction gives read-your-writes visibility for its own staged
// operations but does not isolate reads from concurrent external writes to
// the same store.
type Transaction struct {
	store Store

	mu         sync.Mutex
	changes    map[string][]byte
	order      []string // staged-set keys in first-staged order
	deletions  []string
	committed  bool
	rolledBack bool
}

// NewTransaction creates a transaction bound to the given store. Most
// callers should go through TransactionManager.Do instead.
func NewTransaction(store Store) *Transaction {
	return &Transaction{
		store:   store,
		changes: make(map[string][]byte),
	}
}

func (tx *Transaction) terminal() bool {
	return tx.committed || tx.rolledBack
}

// Committed reports whether the transaction has been committed.
func (tx *Transaction) Committed() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.committed
}

// RolledBack reports whether the transaction has been rolled back.
func (tx *Transaction) RolledBack() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.rolledBack
}

// Set stages a write of value under key.
func (tx *Transaction) Set(key string, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.terminal() {
		return ErrTxDone
	}
	if _, staged := tx.changes[key]; !staged {
		tx.order = append(tx.order, key)
	}
	tx.changes[key] = value
	return nil
}

// Delete stages a deletion of key. A later Delete wins over an earlier Set
// of the same key: the staged change is evicted.
func (tx *Transaction) Delete(key string) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.terminal() {
		return ErrTxDone
	}
	if _, staged := tx.changes[key]; staged {
		delete(tx.changes, key)
		tx.order = slices.DeleteFunc(tx.order, func(k string) bool { return k == key })
	}
	tx.deletions = append(tx.deletions, key)
	return nil
}

// Get resolves key against the staged state first: a staged change returns
// its value, a staged deletion returns ErrKeyNotFound, anything else falls
// through to the underlying store.
func (tx *Transaction) Get(key string) ([]byte, error) {
	tx.mu.Lock()
	if value, staged := tx.changes[key]; staged {
		tx.mu.Unlock()
		return value, nil
	}
	if slices.Contains(tx.deletions, key) {
		tx.mu.Unlock()
		return nil, ErrKeyNotFound
	}
	tx.mu.Unlock()
	return tx.store.Get(key)
}

// Commit applies every staged set (in first-staged order) and then every
// staged deletion against the store. On a failure mid-application the
// staged buffer is cleared and the transaction rolled back, but writes
// already applied to the store are NOT undone; the caller must treat the
// store as possibly partially updated.
func (tx *Transaction) Commit() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.terminal() {
		return ErrTxDone
	}

	for _, key := range tx.order {
		if err := tx.store.Set(key, tx.changes[key]); err != nil {
			tx.rollbackLocked()
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	for _, key := range tx.deletions {
		if err := tx.store.Delete(key); err != nil {
			tx.rollbackLocked()
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	tx.committed = true
	return nil
}

// Rollback discards the staged buffer. Rolling back twice is a no-op;
// rolling back after a commit fails with ErrTxCommitted.
func (tx *Transaction) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.committed {
		return ErrTxCommitted
	}
	tx.rollbackLocked()
	return nil
}

func (tx *Transaction) rollbackLocked() {
	tx.changes = make(map[string][]byte)
	tx.order = nil
	tx.deletions = nil
	tx.rolledBack = true
}

type txContextKey struct{}

// TransactionFrom returns the transaction carried by ctx, or nil.
func TransactionFrom(ctx context.Context) *Transaction {
	tx, _ := ctx.Value(txContextKey{}).(*Transaction)
	return tx
}

// TransactionManager provides scoped transaction acquisition. The "current
// transaction" travels in the context instead of thread-local state, which
// makes nested-transaction rejection a plain argument check and lets two
// goroutines run independent transactions concurrently.
type TransactionManager struct {
	log Logger
}

// NewTransactionManager creates a manager. A nil logger uses the default.
func NewTransactionManager(log Logger) *TransactionManager {
	if log == nil {
		log = defaultLogger()
	}
	return &TransactionManager{log: log}
}

// Do runs fn inside a new transaction bound to store. The transaction is
// carried in the context handed to fn (see TransactionFrom). If ctx already
// carries a transaction, Do fails with ErrTxInProgress.
//
// When fn returns nil and the transaction is not already terminal, it is
// committed. When fn returns an error or panics, the transaction is rolled
// back (unless already terminal) and the error or panic is propagated.
func (m *TransactionManager) Do(ctx context.Context, store Store, fn func(ctx context.Context, tx *Transaction) error) error {
	if TransactionFrom(ctx) != nil {
		return ErrTxInProgress
	}

	tx := NewTransaction(store)
	ctx = context.WithValue(ctx, txContextKey{}, tx)

	defer func() {
		if r := recover(); r != nil {
			if !tx.Committed() && !tx.RolledBack() {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if !tx.RolledBack() {
			if rbErr := tx.Rollback(); rbErr != nil {
				m.log.Warn("rollback after error failed", "error", rbErr)
			}
		}
		return err
	}

	if !tx.Committed() && !tx.RolledBack() {
		return tx.Commit()
	}
	return nil
}
