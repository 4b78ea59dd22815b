package minidb

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey is returned when an operation is attempted with an empty key.
	ErrEmptyKey = errors.New("empty key")

	// ErrKeyNotFound is returned by Store.Get when the key does not exist.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrTableNotFound is returned when accessing a table that was never created.
	ErrTableNotFound = errors.New("table not found")

	// ErrInvalidTableName is returned for table names that would break the
	// key namespace (empty, containing ':', or the reserved "idx").
	ErrInvalidTableName = errors.New("invalid table name")

	// ErrSchemaValidation is wrapped by every ValidationError.
	ErrSchemaValidation = errors.New("schema validation failed")

	// ErrTxDone is returned when mutating or committing a transaction that
	// has already been committed or rolled back.
	ErrTxDone = errors.New("transaction already completed")

	// ErrTxCommitted is returned when rolling back an already committed transaction.
	ErrTxCommitted = errors.New("transaction already committed")

	// ErrTxInProgress is returned when starting a transaction on a context
	// that already carries one.
	ErrTxInProgress = errors.New("transaction already in progress")

	// ErrPoolClosed is returned when acquiring a connection from a closed pool.
	ErrPoolClosed = errors.New("connection pool is closed")

	// ErrMaxConnections is returned when the pool is at capacity and no
	// connection is returned within the acquire timeout.
	ErrMaxConnections = errors.New("maximum connections reached")
)

// ValidationError describes a single schema violation. It wraps
// ErrSchemaValidation so callers can match the whole class with errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("schema validation failed: field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrSchemaValidation }

func validationErrf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
