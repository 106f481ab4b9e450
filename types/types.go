// Package types contains shared type definitions used by both the
// execution host and the virtual machine bridge.
package types

import (
	"encoding/hex"
	"strings"
)

// Hash identifies a contract or a blob of uploaded contract code.
type Hash [32]byte

// Address represents an account address.
type Address [20]byte

// Symbol is the name of a contract function.
type Symbol string

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zeroes.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// HashFromString parses a hex string, with an optional 0x prefix, into
// a Hash. An invalid string yields the zero hash.
func HashFromString(str string) Hash {
	str = strings.TrimPrefix(str, "0x")
	raw, err := hex.DecodeString(str)
	if err != nil {
		return Hash{}
	}
	var out Hash
	copy(out[:], raw)
	return out
}

// AddressFromString parses a hex string, with an optional 0x prefix,
// into an Address. An invalid string yields the zero address.
func AddressFromString(str string) Address {
	str = strings.TrimPrefix(str, "0x")
	raw, err := hex.DecodeString(str)
	if err != nil {
		return Address{}
	}
	var out Address
	copy(out[:], raw)
	return out
}

// Valid reports whether the symbol consists only of characters allowed
// in contract function names.
func (s Symbol) Valid() bool {
	if len(s) == 0 || len(s) > 32 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}
