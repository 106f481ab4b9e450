package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/types"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestBackendRoundTrip(t *testing.T) {
	b := openTestBackend(t)

	key := storage.InstanceKey(types.Hash{1})
	_, found, err := b.Get(key)
	require.NoError(t, err)
	assert.False(t, found)

	want := storage.Entry{
		Executable: &storage.Executable{Kind: storage.ExecWasm, WasmHash: types.Hash{9}},
	}
	require.NoError(t, b.Put(key, want))

	got, found, err := b.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestBackendOverwrite(t *testing.T) {
	b := openTestBackend(t)

	key := storage.BalanceKey(types.Hash{1}, types.Address{5})
	require.NoError(t, b.Put(key, storage.Entry{Amount: 1}))
	require.NoError(t, b.Put(key, storage.Entry{Amount: 42}))

	got, found, err := b.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(42), got.Amount)
}
