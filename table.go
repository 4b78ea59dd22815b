package minidb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Table persists structured rows through a Store under the key scheme
// "<table>:<row-id>" and keeps secondary indexes in sync with row mutations.
type Table struct {
	name    string
	store   Store
	schema  Schema
	indexes *IndexManager
	log     Logger
}

type TableOption func(*Table)

// WithSchema attaches a validation schema; every insert and update is
// validated against it before anything is written.
func WithSchema(schema Schema) TableOption {
	return func(t *Table) {
		t.schema = schema
	}
}

// WithTableLogger sets the logger used by the table and its index manager.
func WithTableLogger(log Logger) TableOption {
	return func(t *Table) {
		if log != nil {
			t.log = log
		}
	}
}

// NewTable binds a table to a store. The name becomes the row-key prefix,
// so it may not be empty, contain ':', or equal the reserved "idx"
// namespace.
func NewTable(name string, store Store, opts ...TableOption) (*Table, error) {
	if name == "" || name == "idx" || strings.Contains(name, ":") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, name)
	}

	t := &Table{
		name:  name,
		store: store,
		log:   defaultLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.indexes = NewIndexManager(store, t.log)

	return t, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

func (t *Table) rowKey(id string) string {
	return t.name + ":" + id
}

func (t *Table) validate(row Row) (Row, error) {
	if t.schema == nil {
		return row.Clone(), nil
	}
	return t.schema.Validate(row)
}

// CreateIndex creates (idempotently) a secondary index on the given field.
// Rows already stored are not back-filled; create indexes before inserting.
func (t *Table) CreateIndex(field string) error {
	_, err := t.indexes.CreateIndex(t.name, field)
	return err
}

// DropIndex removes the index on the given field along with its persisted
// blob.
func (t *Table) DropIndex(field string) error {
	return t.indexes.DropIndex(t.name, field)
}

// Index returns the live index for a field, or nil when the field is not
// indexed. Useful for range lookups via Index.FindRange.
func (t *Table) Index(field string) *Index {
	return t.indexes.Index(t.name, field)
}

// Insert validates the row, assigns it a fresh id, stores it and fans the
// indexed fields out to their indexes. It returns the new row id.
//
// If an index update fails after the row write succeeded, the row stays
// stored and that index is left stale; see DESIGN.md for the rationale.
func (t *Table) Insert(row Row) (string, error) {
	validated, err := t.validate(row)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	data, err := encodeRow(validated)
	if err != nil {
		return "", err
	}
	if err := t.store.Set(t.rowKey(id), data); err != nil {
		return "", err
	}

	for field, value := range validated {
		ix := t.indexes.Index(t.name, field)
		if ix == nil {
			continue
		}
		if err := ix.AddEntry(id, value); err != nil {
			return "", fmt.Errorf("table %s: indexing field %q for row %s: %w", t.name, field, id, err)
		}
	}

	t.log.Debug("inserted row", "table", t.name, "id", id)
	return id, nil
}

// Query reads the row with the given id. An absent id is reported as
// (nil, false, nil), not as an error.
func (t *Table) Query(id string) (Row, bool, error) {
	data, err := t.store.Get(t.rowKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, err
	}
	row, err := decodeRow(data)
	if err != nil {
		return nil, false, fmt.Errorf("table %s: row %s: %w", t.name, id, err)
	}
	return row, true, nil
}

// QueryByField returns every row whose field equals value. With an index on
// the field this is a bucket lookup; without one it degrades to a full
// table scan, which is logged as a warning but is not an error.
func (t *Table) QueryByField(field string, value Value) ([]Row, error) {
	ix := t.indexes.Index(t.name, field)
	if ix == nil {
		t.log.Warn("no index found, performing full table scan", "table", t.name, "field", field)
		rows, err := t.ListRows()
		if err != nil {
			return nil, err
		}
		var out []Row
		for _, row := range rows {
			if row.Get(field).Equal(value) {
				out = append(out, row)
			}
		}
		return out, nil
	}

	ids := ix.FindRows(value)
	out := make([]Row, 0, len(ids))
	for _, id := range ids {
		row, ok, err := t.Query(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// Update merges the given field updates into the stored row, re-validates
// the result and persists it. Only the fields present in updates touch
// their indexes; fields the schema rewrites on its own (AutoNow) are
// persisted but not re-indexed, so AutoNow fields must not be indexed.
// Updating an absent id returns false and does nothing.
func (t *Table) Update(id string, updates Row) (bool, error) {
	current, ok, err := t.Query(id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	merged := current.Clone()
	for field, value := range updates {
		merged[field] = value
	}
	validated, err := t.validate(merged)
	if err != nil {
		return false, err
	}

	for field := range updates {
		ix := t.indexes.Index(t.name, field)
		if ix == nil {
			continue
		}
		if err := ix.UpdateEntry(id, current.Get(field), validated.Get(field)); err != nil {
			return false, fmt.Errorf("table %s: reindexing field %q for row %s: %w", t.name, field, id, err)
		}
	}

	data, err := encodeRow(validated)
	if err != nil {
		return false, err
	}
	if err := t.store.Set(t.rowKey(id), data); err != nil {
		return false, err
	}

	t.log.Debug("updated row", "table", t.name, "id", id)
	return true, nil
}

// Delete removes the row and every index entry for every field it carries.
// Deleting an absent id returns false and does nothing.
func (t *Table) Delete(id string) (bool, error) {
	row, ok, err := t.Query(id)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	for field, value := range row {
		ix := t.indexes.Index(t.name, field)
		if ix == nil {
			continue
		}
		if err := ix.RemoveEntry(id, value); err != nil {
			return false, fmt.Errorf("table %s: unindexing field %q for row %s: %w", t.name, field, id, err)
		}
	}

	if err := t.store.Delete(t.rowKey(id)); err != nil {
		return false, err
	}

	t.log.Debug("deleted row", "table", t.name, "id", id)
	return true, nil
}

// ListRows scans every key under the table prefix and decodes the rows.
// Keys that vanish between the key snapshot and the read are skipped.
func (t *Table) ListRows() ([]Row, error) {
	keys, err := t.store.KeysWithPrefix(t.name + ":")
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, key := range keys {
		data, err := t.store.Get(key)
		if errors.Is(err, ErrKeyNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		row, err := decodeRow(data)
		if err != nil {
			return nil, fmt.Errorf("table %s: key %s: %w", t.name, key, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CountRows returns the number of rows in the table.
func (t *Table) CountRows() (int, error) {
	rows, err := t.ListRows()
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
