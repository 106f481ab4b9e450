// Package core defines the structured error model shared by the
// execution host and its collaborators.
package core

import (
	"errors"
	"fmt"

	"github.com/govm-net/sandbox/types"
)

// ErrorType is the subsystem an error originates from.
type ErrorType uint32

const (
	// ErrContext covers policy violations inside the execution
	// context: reserved function calls, re-entrancy, missing frames.
	ErrContext ErrorType = iota + 1
	// ErrStorage covers ledger entry resolution failures.
	ErrStorage
	// ErrObject covers object store misuse.
	ErrObject
	// ErrWasmVM covers failures surfaced by the virtual machine.
	ErrWasmVM
	// ErrBudget covers resource exhaustion.
	ErrBudget
	// ErrAuth covers authorization failures.
	ErrAuth
	// ErrValue covers malformed values and conversions.
	ErrValue
)

// ErrorCode refines the error type.
type ErrorCode uint32

const (
	CodeInternalError ErrorCode = iota + 1
	CodeMissingValue
	CodeInvalidAction
	CodeInvalidInput
	CodeUnexpectedType
	CodeUnexpectedSize
	CodeExceededLimit
	CodeUnknownError
)

var errTypeNames = map[ErrorType]string{
	ErrContext: "context",
	ErrStorage: "storage",
	ErrObject:  "object",
	ErrWasmVM:  "wasm-vm",
	ErrBudget:  "budget",
	ErrAuth:    "auth",
	ErrValue:   "value",
}

var errCodeNames = map[ErrorCode]string{
	CodeInternalError:  "internal error",
	CodeMissingValue:   "missing value",
	CodeInvalidAction:  "invalid action",
	CodeInvalidInput:   "invalid input",
	CodeUnexpectedType: "unexpected type",
	CodeUnexpectedSize: "unexpected size",
	CodeExceededLimit:  "exceeded limit",
	CodeUnknownError:   "unknown error",
}

// Error is a structured host error. Every recoverable failure crossing
// the host boundary is one of these; internal invariant violations are
// panics instead.
type Error struct {
	Type ErrorType
	Code ErrorCode
	Msg  string
}

// New creates a structured error.
func New(t ErrorType, c ErrorCode, msg string) *Error {
	return &Error{Type: t, Code: c, Msg: msg}
}

// Newf creates a structured error with a formatted message.
func Newf(t ErrorType, c ErrorCode, format string, args ...any) *Error {
	return &Error{Type: t, Code: c, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	tn, ok := errTypeNames[e.Type]
	if !ok {
		tn = fmt.Sprintf("type(%d)", e.Type)
	}
	cn, ok := errCodeNames[e.Code]
	if !ok {
		cn = fmt.Sprintf("code(%d)", e.Code)
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s/%s", tn, cn)
	}
	return fmt.Sprintf("%s/%s: %s", tn, cn, e.Msg)
}

// Val returns the value-level encoding of the error, suitable for
// returning from a contract function.
func (e *Error) Val() types.Val {
	return types.ErrorVal(uint32(e.Type), uint32(e.Code))
}

// FromVal recovers a structured error from an error-carrying value.
func FromVal(v types.Val) (*Error, bool) {
	if !v.IsError() {
		return nil, false
	}
	t, c := v.ErrorParts()
	return &Error{Type: ErrorType(t), Code: ErrorCode(c)}, true
}

// IsError reports whether err wraps a structured error with the given
// type and code.
func IsError(err error, t ErrorType, c ErrorCode) bool {
	var he *Error
	if !errors.As(err, &he) {
		return false
	}
	return he.Type == t && he.Code == c
}

// AsError unwraps the structured error from err, if any.
func AsError(err error) (*Error, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// MustAsError unwraps the structured error from err, falling back to
// an unknown context error for foreign errors.
func MustAsError(err error) *Error {
	if he, ok := AsError(err); ok {
		return he
	}
	return New(ErrContext, CodeUnknownError, err.Error())
}
