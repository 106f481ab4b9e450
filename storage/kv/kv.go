// Package kv provides a bbolt-backed ledger backend, suitable for
// embedded hosts that want a single-file store without SQL.
package kv

import (
	"encoding/json"

	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"

	"github.com/govm-net/sandbox/storage"
)

var entriesBucket = []byte("ledger")

// Backend is a bbolt ledger backend.
type Backend struct {
	bolt *bbolt.DB
}

// Open opens a ledger database at the given path, creating it if
// necessary.
func Open(path string) (*Backend, error) {
	db, err := bbolt.Open(path, 0666, &bbolt.Options{})
	if err != nil {
		return nil, xerrors.Errorf("failed to open db: %v", err)
	}
	err = db.Update(func(txn *bbolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to create bucket: %v", err)
	}
	return &Backend{bolt: db}, nil
}

// Get returns the entry for the key.
func (b *Backend) Get(k storage.Key) (storage.Entry, bool, error) {
	var e storage.Entry
	found := false
	err := b.bolt.View(func(txn *bbolt.Tx) error {
		raw := txn.Bucket(entriesBucket).Get([]byte(k.String()))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &e)
	})
	if err != nil {
		return storage.Entry{}, false, xerrors.Errorf("failed to read ledger entry: %v", err)
	}
	return e, found, nil
}

// Put stores an entry.
func (b *Backend) Put(k storage.Key, e storage.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return xerrors.Errorf("failed to encode ledger entry: %v", err)
	}
	err = b.bolt.Update(func(txn *bbolt.Tx) error {
		return txn.Bucket(entriesBucket).Put([]byte(k.String()), raw)
	})
	if err != nil {
		return xerrors.Errorf("failed to store ledger entry: %v", err)
	}
	return nil
}

// Close closes the database. Any call will result in an error after
// this function is called.
func (b *Backend) Close() error {
	return b.bolt.Close()
}
