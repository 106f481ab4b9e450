package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/types"
)

func testHash(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestMapCloneIsIndependent(t *testing.T) {
	m := NewMap()
	key := InstanceKey(testHash(1))
	m.Put(key, Entry{Amount: 1})

	clone := m.Clone()
	m.Put(key, Entry{Amount: 2})
	m.Put(CodeKey(testHash(2)), Entry{Code: []byte{0x00}})

	got, ok := clone.Get(key)
	require.True(t, ok)
	assert.Equal(t, uint64(1), got.Amount)
	assert.Equal(t, 1, clone.Len())
}

func TestMapEqual(t *testing.T) {
	a := NewMap()
	b := NewMap()
	key := BalanceKey(testHash(1), types.Address{1})

	assert.True(t, a.Equal(b))

	a.Put(key, Entry{Amount: 5})
	assert.False(t, a.Equal(b))

	b.Put(key, Entry{Amount: 5})
	assert.True(t, a.Equal(b))

	b.Put(key, Entry{Amount: 6})
	assert.False(t, a.Equal(b))

	a.Put(InstanceKey(testHash(2)), Entry{Executable: &Executable{Kind: ExecToken}})
	b.Put(InstanceKey(testHash(2)), Entry{Executable: &Executable{Kind: ExecToken}})
	b.Put(key, Entry{Amount: 5})
	assert.True(t, a.Equal(b))
}

type stubBackend struct {
	entries map[Key]Entry
	reads   int
}

func newStubBackend() *stubBackend {
	return &stubBackend{entries: make(map[Key]Entry)}
}

func (s *stubBackend) Get(k Key) (Entry, bool, error) {
	s.reads++
	e, ok := s.entries[k]
	return e, ok, nil
}

func (s *stubBackend) Put(k Key, e Entry) error {
	s.entries[k] = e
	return nil
}

func TestGetReadsThroughAndCaches(t *testing.T) {
	backend := newStubBackend()
	key := CodeKey(testHash(1))
	backend.entries[key] = Entry{Code: []byte{1, 2, 3}}

	s := New(backend)
	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Code)

	// The second read is served from the map.
	_, err = s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.reads)
}

func TestGetMissing(t *testing.T) {
	s := New(newStubBackend())
	_, err := s.Get(InstanceKey(testHash(9)))
	require.Error(t, err)
	assert.True(t, core.IsError(err, core.ErrStorage, core.CodeMissingValue))
}

func TestGetWithNilBackend(t *testing.T) {
	s := New(nil)
	key := InstanceKey(testHash(1))

	_, err := s.Get(key)
	require.Error(t, err)
	assert.True(t, core.IsError(err, core.ErrStorage, core.CodeMissingValue))

	s.Put(key, Entry{Amount: 3})
	got, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Amount)
}

func TestHas(t *testing.T) {
	backend := newStubBackend()
	key := CodeKey(testHash(1))
	backend.entries[key] = Entry{Code: []byte{1}}

	s := New(backend)
	ok, err := s.Has(key)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Has(CodeKey(testHash(2)))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommitWritesBack(t *testing.T) {
	backend := newStubBackend()
	s := New(backend)

	key := BalanceKey(testHash(1), types.Address{7})
	s.Put(key, Entry{Amount: 11})
	require.NoError(t, s.Commit())

	got, ok := backend.entries[key]
	require.True(t, ok)
	assert.Equal(t, uint64(11), got.Amount)
}
