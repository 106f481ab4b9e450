package host

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/types"
)

func TestBytesObjectImmutability(t *testing.T) {
	h := newTestHost(t)

	data := []byte{1, 2, 3, 4}
	v, err := h.BytesObject(data)
	require.NoError(t, err)

	// Mutating the source slice must not affect the stored object.
	data[0] = 0xFF
	got, err := h.ObjectBytes(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, got)

	// Mutating a read-back copy must not either.
	got[1] = 0xEE
	again, err := h.ObjectBytes(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, again)
}

func TestObjectKindChecked(t *testing.T) {
	h := newTestHost(t)

	v, err := h.U64Object(7)
	require.NoError(t, err)

	_, err = h.ObjectBytes(v)
	require.Error(t, err)
	assert.True(t, core.IsError(err, core.ErrObject, core.CodeUnexpectedType))

	_, err = h.ObjectU64(types.U32(7))
	require.Error(t, err)
	assert.True(t, core.IsError(err, core.ErrObject, core.CodeUnexpectedType))
}

func TestUnknownHandle(t *testing.T) {
	h := newTestHost(t)

	_, err := h.ObjectBytes(types.ObjectVal(types.Handle(12345)))
	require.Error(t, err)
	assert.True(t, core.IsError(err, core.ErrObject, core.CodeMissingValue))
}

func TestVecObjectCopies(t *testing.T) {
	h := newTestHost(t)

	elems := []types.Val{types.U32(1), types.U32(2)}
	v, err := h.VecObject(elems)
	require.NoError(t, err)

	elems[0] = types.U32(99)
	got, err := h.ObjectVec(v)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got[0].AsU32())
	assert.Equal(t, uint32(2), got[1].AsU32())
}

func TestMapObjectOrderedAndUnique(t *testing.T) {
	h := newTestHost(t)

	m, err := h.MapObject([]MapPair{
		{Key: types.U32(3), Value: types.U32(30)},
		{Key: types.U32(1), Value: types.U32(10)},
	})
	require.NoError(t, err)

	got, found, err := h.MapGet(m, types.U32(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint32(10), got.AsU32())

	_, found, err = h.MapGet(m, types.U32(2))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = h.MapObject([]MapPair{
		{Key: types.U32(1), Value: types.U32(10)},
		{Key: types.U32(1), Value: types.U32(11)},
	})
	require.Error(t, err)
	assert.True(t, core.IsError(err, core.ErrObject, core.CodeInvalidInput))
}

func TestWideIntegerObjects(t *testing.T) {
	h := newTestHost(t)

	big128 := new(big.Int).Lsh(big.NewInt(1), 100)
	v, err := h.U128Object(big128)
	require.NoError(t, err)
	got, err := h.ObjectBigInt(v)
	require.NoError(t, err)
	assert.Zero(t, big128.Cmp(got))

	_, err = h.U128Object(big.NewInt(-1))
	require.Error(t, err)

	tooWide := new(big.Int).Lsh(big.NewInt(1), 130)
	_, err = h.U128Object(tooWide)
	require.Error(t, err)
}

func TestI128Bounds(t *testing.T) {
	h := newTestHost(t)

	min := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))

	for _, in := range []*big.Int{min, max, big.NewInt(0), big.NewInt(-1)} {
		v, err := h.I128Object(in)
		require.NoError(t, err, in.String())
		got, err := h.ObjectBigInt(v)
		require.NoError(t, err)
		assert.Zero(t, in.Cmp(got), in.String())
	}

	belowMin := new(big.Int).Sub(min, big.NewInt(1))
	_, err := h.I128Object(belowMin)
	require.Error(t, err)

	aboveMax := new(big.Int).Add(max, big.NewInt(1))
	_, err = h.I128Object(aboveMax)
	require.Error(t, err)
}

func TestSymbolObjectValidation(t *testing.T) {
	h := newTestHost(t)

	v, err := h.SymbolObject("transfer")
	require.NoError(t, err)
	sym, err := h.ObjectSymbol(v)
	require.NoError(t, err)
	assert.Equal(t, types.Symbol("transfer"), sym)

	_, err = h.SymbolObject("not valid!")
	require.Error(t, err)
	assert.True(t, core.IsError(err, core.ErrValue, core.CodeInvalidInput))
}

func TestHandlesSurviveRollback(t *testing.T) {
	h := newTestHost(t)
	c1 := contractID(1)

	var v types.Val
	_, err := h.WithTestContractFrame(c1, "f", func() (types.Val, error) {
		var ferr error
		v, ferr = h.BytesObject([]byte("kept"))
		require.NoError(t, ferr)
		return types.Void(), core.New(core.ErrContext, core.CodeInvalidAction, "fail")
	})
	require.Error(t, err)

	// The object store is not part of the rollback protocol; issued
	// handles keep dereferencing to identical content.
	got, err := h.ObjectBytes(v)
	require.NoError(t, err)
	assert.Equal(t, []byte("kept"), got)
}
