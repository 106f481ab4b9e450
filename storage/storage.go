// Package storage implements the ledger view of the execution host: a
// copy-on-write map of ledger keys to ledger entries, fronting a
// pluggable persistent backend. The map is the unit of rollback: the
// host clones it when a frame is pushed and swaps the clone back in
// wholesale if the frame fails.
package storage

import (
	"bytes"
	"fmt"

	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/types"
)

// KeyKind discriminates ledger keys.
type KeyKind uint8

const (
	// KeyContractInstance maps a contract id to its executable
	// descriptor.
	KeyContractInstance KeyKind = iota + 1
	// KeyContractCode maps a code hash to uploaded contract code.
	KeyContractCode
	// KeyTokenBalance maps a (token contract, holder) pair to a
	// balance entry.
	KeyTokenBalance
)

// Key identifies one ledger entry.
type Key struct {
	Kind KeyKind
	Hash types.Hash
	// Addr is only set for balance keys.
	Addr types.Address
}

// InstanceKey returns the ledger key of a contract's executable
// descriptor.
func InstanceKey(contract types.Hash) Key {
	return Key{Kind: KeyContractInstance, Hash: contract}
}

// CodeKey returns the ledger key of uploaded contract code.
func CodeKey(codeHash types.Hash) Key {
	return Key{Kind: KeyContractCode, Hash: codeHash}
}

// BalanceKey returns the ledger key of a token balance.
func BalanceKey(contract types.Hash, holder types.Address) Key {
	return Key{Kind: KeyTokenBalance, Hash: contract, Addr: holder}
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%s:%s", k.Kind, k.Hash, k.Addr)
}

// ExecKind discriminates executable descriptors.
type ExecKind uint8

const (
	// ExecWasm marks a contract backed by uploaded WebAssembly code.
	ExecWasm ExecKind = iota + 1
	// ExecToken marks the built-in native token contract.
	ExecToken
)

// Executable describes how a contract id is executed: either a
// reference to uploaded code or a built-in marker.
type Executable struct {
	Kind     ExecKind   `json:"kind"`
	WasmHash types.Hash `json:"wasm_hash,omitempty"`
}

// Entry is one ledger entry. Entries are immutable once stored;
// updating a key always stores a fresh entry.
type Entry struct {
	Executable *Executable `json:"executable,omitempty"`
	Code       []byte      `json:"code,omitempty"`
	Amount     uint64      `json:"amount,omitempty"`
}

// Map is a copy-on-write ledger map. Clone shares entries with the
// original, which is safe because entries are never mutated in place.
type Map struct {
	entries map[Key]Entry
}

// NewMap returns an empty map.
func NewMap() Map {
	return Map{entries: make(map[Key]Entry)}
}

// Clone returns an independent copy of the map.
func (m Map) Clone() Map {
	cp := make(map[Key]Entry, len(m.entries))
	for k, v := range m.entries {
		cp[k] = v
	}
	return Map{entries: cp}
}

// Get looks up an entry.
func (m Map) Get(k Key) (Entry, bool) {
	e, ok := m.entries[k]
	return e, ok
}

// Put stores an entry.
func (m Map) Put(k Key, e Entry) {
	m.entries[k] = e
}

// Len reports the number of entries.
func (m Map) Len() int { return len(m.entries) }

// Equal reports deep equality with another map.
func (m Map) Equal(other Map) bool {
	if len(m.entries) != len(other.entries) {
		return false
	}
	for k, e := range m.entries {
		oe, ok := other.entries[k]
		if !ok {
			return false
		}
		if !entryEqual(e, oe) {
			return false
		}
	}
	return true
}

func entryEqual(a, b Entry) bool {
	if a.Amount != b.Amount {
		return false
	}
	if !bytes.Equal(a.Code, b.Code) {
		return false
	}
	if (a.Executable == nil) != (b.Executable == nil) {
		return false
	}
	if a.Executable != nil && *a.Executable != *b.Executable {
		return false
	}
	return true
}

// Backend is the persistent side of the ledger. The host only reads
// through it; writing back committed state is driven by the embedding
// application.
type Backend interface {
	// Get returns the entry for the key, reporting whether it exists.
	Get(k Key) (Entry, bool, error)

	// Put stores an entry.
	Put(k Key, e Entry) error
}

// Storage is the host's ledger view: the copy-on-write map plus the
// read-through backend.
type Storage struct {
	// Map is the mutable ledger state of the running invocation. The
	// host replaces it wholesale on rollback.
	Map Map

	backend Backend
}

// New creates a storage view over the given backend. A nil backend is
// allowed; all entries then live only in the map.
func New(backend Backend) *Storage {
	return &Storage{Map: NewMap(), backend: backend}
}

// Get resolves a ledger key, reading through to the backend on a map
// miss and caching the result. A missing entry is a structured
// missing-value error.
func (s *Storage) Get(k Key) (Entry, error) {
	if e, ok := s.Map.Get(k); ok {
		return e, nil
	}
	if s.backend != nil {
		e, ok, err := s.backend.Get(k)
		if err != nil {
			return Entry{}, core.Newf(core.ErrStorage, core.CodeInternalError,
				"backend read for %s failed: %v", k, err)
		}
		if ok {
			s.Map.Put(k, e)
			return e, nil
		}
	}
	return Entry{}, core.Newf(core.ErrStorage, core.CodeMissingValue,
		"no ledger entry for %s", k)
}

// Has reports whether a ledger key resolves, without treating absence
// as an error.
func (s *Storage) Has(k Key) (bool, error) {
	if _, ok := s.Map.Get(k); ok {
		return true, nil
	}
	if s.backend == nil {
		return false, nil
	}
	_, ok, err := s.backend.Get(k)
	if err != nil {
		return false, core.Newf(core.ErrStorage, core.CodeInternalError,
			"backend read for %s failed: %v", k, err)
	}
	return ok, nil
}

// Put stores an entry in the ledger map.
func (s *Storage) Put(k Key, e Entry) {
	s.Map.Put(k, e)
}

// Commit writes every entry of the map back to the backend. Called by
// the embedding application after a successful top-level invocation.
func (s *Storage) Commit() error {
	if s.backend == nil {
		return nil
	}
	for k, e := range s.Map.entries {
		if err := s.backend.Put(k, e); err != nil {
			return core.Newf(core.ErrStorage, core.CodeInternalError,
				"backend write for %s failed: %v", k, err)
		}
	}
	return nil
}
