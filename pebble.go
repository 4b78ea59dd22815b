package minidb

import (
	"bytes"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble/v2"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to pebble
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16
)

// pebbleStore is a persistent key-value store based on the pebble storage
// engine. Every mutating call is applied with sync write options so that the
// data is durable before the call returns.
type pebbleStore struct {
	fn  string     // directory name for reporting
	db  *pebble.DB // Underlying pebble storage engine
	log Logger

	quitLock sync.RWMutex // Mutex protecting the closed flag
	closed   bool         // keep track of whether we're Closed

	activeComp    int           // Current number of active compactions
	compStartTime time.Time     // The start time of the earliest currently-active compaction
	compTime      atomic.Int64  // Total time spent in compaction in ns
	level0Comp    atomic.Uint32 // Total number of level-zero compactions
	nonLevel0Comp atomic.Uint32 // Total number of non level-zero compactions

	writeStalled        atomic.Bool  // Flag whether the write is stalled
	writeDelayStartTime time.Time    // The start time of the latest write stall
	writeDelayReason    string       // The reason of the latest write stall
	writeDelayCount     atomic.Int64 // Total number of write stall counts
	writeDelayTime      atomic.Int64 // Total time spent in write stalls

	writeOptions *pebble.WriteOptions
}

func (d *pebbleStore) onCompactionBegin(info pebble.CompactionInfo) {
	if d.activeComp == 0 {
		d.compStartTime = time.Now()
	}
	l0 := info.Input[0]
	if l0.Level == 0 {
		d.level0Comp.Add(1)
	} else {
		d.nonLevel0Comp.Add(1)
	}
	d.activeComp++
}

func (d *pebbleStore) onCompactionEnd(info pebble.CompactionInfo) {
	switch d.activeComp {
	case 1:
		d.compTime.Add(int64(time.Since(d.compStartTime)))
	case 0:
		panic("should not happen")
	}
	d.activeComp--
}

func (d *pebbleStore) onWriteStallBegin(b pebble.WriteStallBeginInfo) {
	d.writeDelayStartTime = time.Now()
	d.writeDelayCount.Add(1)
	d.writeStalled.Store(true)

	// Take just the first word of the reason. These are two potential
	// reasons for the write stall:
	// - memtable count limit reached
	// - L0 file count limit exceeded
	reason := b.Reason
	if i := strings.IndexByte(reason, ' '); i != -1 {
		reason = reason[:i]
	}
	if reason == "L0" || reason == "memtable" {
		d.writeDelayReason = reason
	}
}

func (d *pebbleStore) onWriteStallEnd() {
	d.writeDelayTime.Add(int64(time.Since(d.writeDelayStartTime)))
	d.writeStalled.Store(false)

	if d.writeDelayReason != "" {
		d.writeDelayReason = ""
	}
	d.writeDelayStartTime = time.Time{}
}

// newPebbleStore returns a wrapped pebble DB object implementing Store.
func newPebbleStore(dirname string, opts ...Option) (*pebbleStore, error) {
	o := newOptions(opts...)

	// The max memtable size is limited by the uint32 offsets stored in
	// internal/arenaskl.node, DeferredBatchOp, and flushableBatchEntry.
	//
	// - MaxUint32 on 64-bit platforms;
	// - MaxInt on 32-bit platforms.
	maxMemTableSize := (1<<31)<<(^uint(0)>>63) - 1

	// Two memory tables is configured which is identical to leveldb,
	// including a frozen memory table and another live one.
	memTableLimit := 2
	memTableSize := o.cache * 1024 * 1024 / 2 / memTableLimit

	// The memory table size is currently capped at maxMemTableSize-1 due to
	// a known bug in pebble where maxMemTableSize is not recognized as a
	// valid size.
	if memTableSize >= maxMemTableSize {
		memTableSize = maxMemTableSize - 1
	}
	db := &pebbleStore{
		fn:  dirname,
		log: o.logger,
	}

	if o.noSync {
		db.writeOptions = pebble.NoSync
	} else {
		// Durability contract: every mutation is fsynced before returning.
		db.writeOptions = pebble.Sync
	}

	levels := o.pebbleLevels
	if levels == nil {
		levels = DefaultPebbleLevels
	}

	opt := &pebble.Options{
		// Pebble has a single combined cache area and the write
		// buffers are taken from this too. Assign all available
		// memory allowance for cache.
		Cache:        pebble.NewCache(int64(o.cache * 1024 * 1024)),
		MaxOpenFiles: o.handles,

		// The size of memory table(as well as the write buffer).
		// Note, there may have more than two memory tables in the system.
		MemTableSize: uint64(memTableSize),

		// MemTableStopWritesThreshold places a hard limit on the size
		// of the existent MemTables(including the frozen one).
		// Note, this must be the number of tables not the size of all memtables.
		MemTableStopWritesThreshold: memTableLimit,

		// Per-level options. Options for at least one level must be specified. The
		// options for the last level are used for all subsequent levels.
		Levels:   levels,
		ReadOnly: o.readonly,
		EventListener: &pebble.EventListener{
			CompactionBegin: db.onCompactionBegin,
			CompactionEnd:   db.onCompactionEnd,
			WriteStallBegin: db.onWriteStallBegin,
			WriteStallEnd:   db.onWriteStallEnd,
		},
	}
	// Disable seek compaction explicitly; read-triggered compaction brings
	// nothing for a store this small.
	opt.Experimental.ReadSamplingMultiplier = -1

	// Open the db and recover any potential corruptions
	innerDB, err := pebble.Open(dirname, opt)
	if err != nil {
		return nil, err
	}
	db.db = innerDB

	db.log.Info("opened store", "path", dirname)

	return db, nil
}

// Close flushes any pending data to disk and closes all io accesses to the
// underlying key-value store.
func (d *pebbleStore) Close() error {
	d.quitLock.Lock()
	defer d.quitLock.Unlock()
	// Allow double closing, simplifies things
	if d.closed {
		return nil
	}

	if err := d.db.Flush(); err != nil {
		return err
	}

	d.closed = true

	d.log.Info("closed store", "path", d.fn)

	return d.db.Close()
}

// Has reports whether a key is present in the store.
func (d *pebbleStore) Has(key string) (bool, error) {
	if len(key) == 0 {
		return false, ErrEmptyKey
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return false, ErrStoreClosed
	}
	_, closer, err := d.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if err = closer.Close(); err != nil {
		return false, err
	}
	return true, nil
}

// Get retrieves the value stored under key, or ErrKeyNotFound.
func (d *pebbleStore) Get(key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return nil, ErrStoreClosed
	}
	dat, closer, err := d.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return nil, ErrKeyNotFound
	} else if err != nil {
		return nil, err
	}
	ret := make([]byte, len(dat))
	copy(ret, dat)
	if err = closer.Close(); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetMany retrieves the given keys one by one; absent keys are left out of
// the result.
func (d *pebbleStore) GetMany(keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		val, err := d.Get(key)
		if err == ErrKeyNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

// Set stores the given value, fsyncing before returning.
func (d *pebbleStore) Set(key string, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return ErrStoreClosed
	}
	return d.db.Set([]byte(key), value, d.writeOptions)
}

// SetMany stores every pair in items, applied as one synced batch. The batch
// gives no atomicity promise at the Store contract level; it only saves
// per-key fsyncs.
func (d *pebbleStore) SetMany(items map[string][]byte) error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return ErrStoreClosed
	}

	b := d.db.NewBatch()
	defer b.Close()
	for key, value := range items {
		if len(key) == 0 {
			return ErrEmptyKey
		}
		if err := b.Set([]byte(key), value, nil); err != nil {
			return err
		}
	}
	return b.Commit(d.writeOptions)
}

// Delete removes the key from the store. Deleting an absent key is a no-op.
func (d *pebbleStore) Delete(key string) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return ErrStoreClosed
	}
	return d.db.Delete([]byte(key), d.writeOptions)
}

// DeleteMany removes every key in keys as one synced batch.
func (d *pebbleStore) DeleteMany(keys []string) error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return ErrStoreClosed
	}

	b := d.db.NewBatch()
	defer b.Close()
	for _, key := range keys {
		if len(key) == 0 {
			return ErrEmptyKey
		}
		if err := b.Delete([]byte(key), nil); err != nil {
			return err
		}
	}
	return b.Commit(d.writeOptions)
}

// KeysWithPrefix returns a sorted snapshot of every key starting with the
// given prefix, using iterator bounds instead of filtering the whole
// keyspace.
func (d *pebbleStore) KeysWithPrefix(prefix string) ([]string, error) {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return nil, ErrStoreClosed
	}

	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound([]byte(prefix)),
	})
	if err != nil {
		return nil, err
	}
	var keys []string
	for valid := iter.First(); valid; valid = iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return nil, err
	}
	return keys, iter.Close()
}

// Keys returns a sorted snapshot of every key in the store.
func (d *pebbleStore) Keys() ([]string, error) {
	var keys []string
	err := d.scan(func(key, _ []byte) {
		keys = append(keys, string(key))
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// Values returns a snapshot of every value, in key order.
func (d *pebbleStore) Values() ([][]byte, error) {
	var values [][]byte
	err := d.scan(func(_, value []byte) {
		values = append(values, bytes.Clone(value))
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// Items returns a snapshot of every key/value pair.
func (d *pebbleStore) Items() (map[string][]byte, error) {
	items := make(map[string][]byte)
	err := d.scan(func(key, value []byte) {
		items[string(key)] = bytes.Clone(value)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// scan iterates the whole keyspace in binary-alphabetical order.
func (d *pebbleStore) scan(fn func(key, value []byte)) error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return ErrStoreClosed
	}

	iter, err := d.db.NewIter(nil)
	if err != nil {
		return err
	}
	for valid := iter.First(); valid; valid = iter.Next() {
		fn(iter.Key(), iter.Value())
	}
	if err := iter.Error(); err != nil {
		iter.Close()
		return err
	}
	return iter.Close()
}

// Clear erases everything from the store with a single synced range delete.
func (d *pebbleStore) Clear() error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if d.closed {
		return ErrStoreClosed
	}

	// There is no special flag to represent the end of the key range in
	// pebble (nil in leveldb). Use a large key to represent it; any
	// realistic store key is smaller than 32 bytes of 0xff.
	limit := bytes.Repeat([]byte{0xff}, 32)
	return d.db.DeleteRange([]byte{}, limit, d.writeOptions)
}

// Stat returns the internal metrics of pebble in a text format. It's a
// developer method to read everything there is to read, independent of
// pebble version.
func (d *pebbleStore) Stat() (string, error) {
	return d.db.Metrics().String(), nil
}

// Path returns the path to the store directory.
func (d *pebbleStore) Path() string {
	return d.fn
}
