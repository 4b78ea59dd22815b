package minidb

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// indexKeyPrefix namespaces persisted index blobs. Table names may not
// collide with it (see NewTable).
const indexKeyPrefix = "idx:"

// Index maintains an inverted mapping from stringified field value to the
// set of row ids carrying that value, for one (table, field) pair. The whole
// mapping is persisted as a single JSON blob under "idx:<table>:<field>" and
// rewritten on every mutation; this costs O(index size) per entry, which is
// fine at this scope.
//
// An Index is not synchronized; writers to the same (table, field) must
// serialize themselves.
type Index struct {
	table   string
	field   string
	store   Store
	key     string
	buckets map[string]map[string]struct{}
}

func newIndex(table, field string, store Store) (*Index, error) {
	ix := &Index{
		table:   table,
		field:   field,
		store:   store,
		key:     fmt.Sprintf("%s%s:%s", indexKeyPrefix, table, field),
		buckets: make(map[string]map[string]struct{}),
	}
	if err := ix.load(); err != nil {
		return nil, err
	}
	return ix, nil
}

// load reads the persisted blob, or initializes an empty index when none
// was ever saved.
func (ix *Index) load() error {
	data, err := ix.store.Get(ix.key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil
	} else if err != nil {
		return err
	}

	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("index %s: corrupt blob: %w", ix.key, err)
	}
	for value, ids := range raw {
		bucket := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			bucket[id] = struct{}{}
		}
		ix.buckets[value] = bucket
	}
	return nil
}

// save rewrites the full persisted blob. Id lists are sorted so the blob is
// deterministic for a given index state.
func (ix *Index) save() error {
	raw := make(map[string][]string, len(ix.buckets))
	for value, bucket := range ix.buckets {
		ids := make([]string, 0, len(bucket))
		for id := range bucket {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		raw[value] = ids
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return ix.store.Set(ix.key, data)
}

// AddEntry records that rowID carries value. Null values are not indexed.
func (ix *Index) AddEntry(rowID string, value Value) error {
	if value.IsNull() {
		return nil
	}
	key := value.String()
	bucket := ix.buckets[key]
	if bucket == nil {
		bucket = make(map[string]struct{})
		ix.buckets[key] = bucket
	}
	bucket[rowID] = struct{}{}
	return ix.save()
}

// RemoveEntry drops rowID from value's bucket, pruning the bucket when it
// becomes empty. Removing an unindexed pair is a no-op.
func (ix *Index) RemoveEntry(rowID string, value Value) error {
	if value.IsNull() {
		return nil
	}
	key := value.String()
	bucket, ok := ix.buckets[key]
	if !ok {
		return nil
	}
	delete(bucket, rowID)
	if len(bucket) == 0 {
		delete(ix.buckets, key)
	}
	return ix.save()
}

// UpdateEntry moves rowID from the old value's bucket to the new one. It is
// composed as remove-then-add, so it rewrites the blob twice.
func (ix *Index) UpdateEntry(rowID string, oldValue, newValue Value) error {
	if err := ix.RemoveEntry(rowID, oldValue); err != nil {
		return err
	}
	return ix.AddEntry(rowID, newValue)
}

// FindRows returns the sorted ids of every row carrying exactly the given
// value. An unindexed value yields an empty slice.
func (ix *Index) FindRows(value Value) []string {
	bucket := ix.buckets[value.String()]
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindRange returns the sorted ids of every row whose stringified value
// falls within [start, end] under lexicographic string ordering. Note that
// this is NOT numeric ordering: "9" sorts after "10", so numeric ranges
// spanning different digit counts return surprising results.
func (ix *Index) FindRange(start, end Value) []string {
	lo, hi := start.String(), end.String()
	seen := make(map[string]struct{})
	for value, bucket := range ix.buckets {
		if value >= lo && value <= hi {
			for id := range bucket {
				seen[id] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type indexID struct {
	table string
	field string
}

// IndexManager owns the live Index instances for one Store, keyed by
// (table, field).
type IndexManager struct {
	store Store
	log   Logger

	mu      sync.Mutex
	indexes map[indexID]*Index
}

// NewIndexManager creates an index manager over the given store.
func NewIndexManager(store Store, log Logger) *IndexManager {
	if log == nil {
		log = defaultLogger()
	}
	return &IndexManager{
		store:   store,
		log:     log,
		indexes: make(map[indexID]*Index),
	}
}

// CreateIndex creates the index for (table, field), loading any previously
// persisted blob. Creating the same index twice returns the existing
// instance.
func (m *IndexManager) CreateIndex(table, field string) (*Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := indexID{table: table, field: field}
	if ix, ok := m.indexes[id]; ok {
		return ix, nil
	}
	ix, err := newIndex(table, field, m.store)
	if err != nil {
		return nil, err
	}
	m.indexes[id] = ix
	m.log.Info("created index", "table", table, "field", field)
	return ix, nil
}

// Index returns the live index for (table, field), or nil when none was
// created.
func (m *IndexManager) Index(table, field string) *Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexes[indexID{table: table, field: field}]
}

// DropIndex forgets the index and deletes its persisted blob. Dropping an
// index that was never created is a no-op.
func (m *IndexManager) DropIndex(table, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := indexID{table: table, field: field}
	if _, ok := m.indexes[id]; !ok {
		return nil
	}
	if err := m.store.Delete(fmt.Sprintf("%s%s:%s", indexKeyPrefix, table, field)); err != nil {
		return err
	}
	delete(m.indexes, id)
	return nil
}
