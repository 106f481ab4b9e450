package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/govm-net/sandbox/types"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "storage/missing value: no entry",
		New(ErrStorage, CodeMissingValue, "no entry").Error())
	assert.Equal(t, "budget/exceeded limit",
		New(ErrBudget, CodeExceededLimit, "").Error())
}

func TestValRoundTrip(t *testing.T) {
	e := New(ErrAuth, CodeInvalidAction, "denied")
	v := e.Val()
	require.True(t, v.IsError())

	got, ok := FromVal(v)
	require.True(t, ok)
	assert.Equal(t, ErrAuth, got.Type)
	assert.Equal(t, CodeInvalidAction, got.Code)
}

func TestFromValNonError(t *testing.T) {
	_, ok := FromVal(types.U32(5))
	assert.False(t, ok)
}

func TestIsErrorThroughWrapping(t *testing.T) {
	base := New(ErrStorage, CodeMissingValue, "no entry")
	wrapped := xerrors.Errorf("failed to resolve contract: %w", base)

	assert.True(t, IsError(wrapped, ErrStorage, CodeMissingValue))
	assert.False(t, IsError(wrapped, ErrStorage, CodeInternalError))
	assert.False(t, IsError(xerrors.New("plain"), ErrStorage, CodeMissingValue))
}

func TestMustAsError(t *testing.T) {
	base := New(ErrObject, CodeUnexpectedType, "bad kind")
	assert.Equal(t, base, MustAsError(xerrors.Errorf("wrapped: %w", base)))

	foreign := MustAsError(xerrors.New("boom"))
	assert.Equal(t, ErrContext, foreign.Type)
	assert.Equal(t, CodeUnknownError, foreign.Code)
}
