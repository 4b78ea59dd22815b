package minidb

import (
	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/bloom"
)

// DefaultPebbleLevels mirrors a conventional LSM level progression with
// bloom filters on every level.
var DefaultPebbleLevels = []pebble.LevelOptions{
	{TargetFileSize: 2 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	{TargetFileSize: 4 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	{TargetFileSize: 8 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	{TargetFileSize: 16 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	{TargetFileSize: 32 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	{TargetFileSize: 64 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
	{TargetFileSize: 128 * 1024 * 1024, FilterPolicy: bloom.FilterPolicy(10)},
}

type options struct {
	cache        int
	handles      int
	readonly     bool
	noSync       bool
	pebbleLevels []pebble.LevelOptions
	logger       Logger
}

type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		cache:   minCache,
		handles: minHandles,
		logger:  defaultLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.cache < minCache {
		o.cache = minCache
	}
	if o.handles < minHandles {
		o.handles = minHandles
	}
	return o
}

// WithCache sets the pebble cache size in megabytes (minimum 16 MB).
func WithCache(cache int) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// WithHandles sets the maximum number of open file handles (minimum 16).
func WithHandles(handles int) Option {
	return func(o *options) {
		o.handles = handles
	}
}

// WithReadonly opens the store in read-only mode.
func WithReadonly(readonly bool) Option {
	return func(o *options) {
		o.readonly = readonly
	}
}

// WithNoSync disables the per-mutation durability flush. Recent writes may
// be lost on a crash; only use this when the data is reproducible.
func WithNoSync(noSync bool) Option {
	return func(o *options) {
		o.noSync = noSync
	}
}

// WithPebbleLevels overrides the per-level LSM options.
func WithPebbleLevels(levels []pebble.LevelOptions) Option {
	return func(o *options) {
		o.pebbleLevels = levels
	}
}

// WithLogger sets the logger used by the store.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
