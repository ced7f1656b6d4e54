package store

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

const sessionBucket = "sessions"

// BoltKV is a bbolt-backed KV: one bucket, opened once and held for the
// adapter's lifetime.
type BoltKV struct {
	db *bolt.DB
}

// NewBoltKV opens (creating if needed) a bbolt database at path and
// ensures the session bucket exists.
func NewBoltKV(path string) (*BoltKV, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("wcbridge: open session store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("wcbridge: init session store: %w", err)
	}
	return &BoltKV{db: db}, nil
}

// Close closes the underlying database handle.
func (b *BoltKV) Close() error {
	return b.db.Close()
}

func (b *BoltKV) Get(key string) ([]byte, bool, error) {
	var raw []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucket))
		v := bucket.Get([]byte(key))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return raw, raw != nil, nil
}

func (b *BoltKV) Set(key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucket))
		return bucket.Put([]byte(key), value)
	})
}

func (b *BoltKV) Remove(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucket))
		return bucket.Delete([]byte(key))
	})
}
