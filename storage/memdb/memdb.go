// Package memdb provides an in-memory ledger backend, used by tests
// and by hosts that do not need persistence.
package memdb

import (
	"sync"

	"github.com/govm-net/sandbox/storage"
)

// Backend is a map-based ledger backend.
type Backend struct {
	mu      sync.Mutex
	entries map[storage.Key]storage.Entry
}

// New returns an empty backend.
func New() *Backend {
	return &Backend{entries: make(map[storage.Key]storage.Entry)}
}

// Get returns the entry for the key.
func (b *Backend) Get(k storage.Key) (storage.Entry, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[k]
	return e, ok, nil
}

// Put stores an entry.
func (b *Backend) Put(k storage.Key, e storage.Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[k] = e
	return nil
}

// Len reports the number of stored entries.
func (b *Backend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
