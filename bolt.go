package minidb

import (
	"bytes"
	"sync"

	"go.etcd.io/bbolt"
)

var boltBucketName = []byte("minidb")

// boltStore is a Store backed by a single-file bbolt database. All entries
// live in one bucket. bbolt fsyncs on every committed write transaction,
// which satisfies the per-mutation durability contract.
type boltStore struct {
	fn  string
	bdb *bbolt.DB
	log Logger

	quitLock sync.RWMutex
	closed   bool
}

// OpenBolt opens (creating if necessary) a bbolt-backed store at the given
// file path. The pebble options (cache, handles, levels) are ignored; the
// logger and read-only flag apply.
func OpenBolt(path string, opts ...Option) (Store, error) {
	o := newOptions(opts...)

	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{ReadOnly: o.readonly})
	if err != nil {
		return nil, err
	}
	if !o.readonly {
		err = bdb.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(boltBucketName)
			return err
		})
		if err != nil {
			bdb.Close()
			return nil, err
		}
	}

	o.logger.Info("opened store", "path", path)

	return &boltStore{fn: path, bdb: bdb, log: o.logger}, nil
}

func (s *boltStore) guard() (func(), error) {
	s.quitLock.RLock()
	if s.closed {
		s.quitLock.RUnlock()
		return nil, ErrStoreClosed
	}
	return s.quitLock.RUnlock, nil
}

func (s *boltStore) Has(key string) (bool, error) {
	if len(key) == 0 {
		return false, ErrEmptyKey
	}
	done, err := s.guard()
	if err != nil {
		return false, err
	}
	defer done()

	var found bool
	err = s.bdb.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(boltBucketName).Get([]byte(key)) != nil
		return nil
	})
	return found, err
}

func (s *boltStore) Get(key string) ([]byte, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	done, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	var val []byte
	err = s.bdb.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(boltBucketName).Get([]byte(key))
		if v == nil {
			return ErrKeyNotFound
		}
		val = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *boltStore) GetMany(keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		val, err := s.Get(key)
		if err == ErrKeyNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func (s *boltStore) Set(key string, value []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	done, err := s.guard()
	if err != nil {
		return err
	}
	defer done()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucketName).Put([]byte(key), value)
	})
}

func (s *boltStore) SetMany(items map[string][]byte) error {
	done, err := s.guard()
	if err != nil {
		return err
	}
	defer done()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucketName)
		for key, value := range items {
			if len(key) == 0 {
				return ErrEmptyKey
			}
			if err := b.Put([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStore) Delete(key string) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	done, err := s.guard()
	if err != nil {
		return err
	}
	defer done()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucketName).Delete([]byte(key))
	})
}

func (s *boltStore) DeleteMany(keys []string) error {
	done, err := s.guard()
	if err != nil {
		return err
	}
	defer done()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucketName)
		for _, key := range keys {
			if len(key) == 0 {
				return ErrEmptyKey
			}
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStore) KeysWithPrefix(prefix string) ([]string, error) {
	done, err := s.guard()
	if err != nil {
		return nil, err
	}
	defer done()

	var keys []string
	p := []byte(prefix)
	err = s.bdb.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(boltBucketName).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *boltStore) Keys() ([]string, error) {
	var keys []string
	err := s.scan(func(key, _ []byte) {
		keys = append(keys, string(key))
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *boltStore) Values() ([][]byte, error) {
	var values [][]byte
	err := s.scan(func(_, value []byte) {
		values = append(values, bytes.Clone(value))
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (s *boltStore) Items() (map[string][]byte, error) {
	items := make(map[string][]byte)
	err := s.scan(func(key, value []byte) {
		items[string(key)] = bytes.Clone(value)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *boltStore) scan(fn func(key, value []byte)) error {
	done, err := s.guard()
	if err != nil {
		return err
	}
	defer done()

	return s.bdb.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(boltBucketName).ForEach(func(k, v []byte) error {
			fn(k, v)
			return nil
		})
	})
}

func (s *boltStore) Clear() error {
	done, err := s.guard()
	if err != nil {
		return err
	}
	defer done()

	return s.bdb.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(boltBucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucket(boltBucketName)
		return err
	})
}

func (s *boltStore) Stat() (string, error) {
	done, err := s.guard()
	if err != nil {
		return "", err
	}
	defer done()

	return s.bdb.String(), nil
}

func (s *boltStore) Path() string {
	return s.fn
}

func (s *boltStore) Close() error {
	s.quitLock.Lock()
	defer s.quitLock.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.log.Info("closed store", "path", s.fn)

	return s.bdb.Close()
}
