package vm

import (
	"github.com/govm-net/sandbox/core"
)

// guestError is the encoded value reported to the guest for malformed
// host-function arguments (bad pointers, oversized vectors).
func guestError() uint64 {
	return core.New(core.ErrValue, core.CodeInvalidInput, "").Val().EncodeU64()
}

// errorToGuest converts a host error into the encoded error value the
// guest observes from a failed host function.
func errorToGuest(err error) uint64 {
	if he, ok := core.AsError(err); ok {
		return he.Val().EncodeU64()
	}
	return core.New(core.ErrContext, core.CodeUnknownError, "").Val().EncodeU64()
}
