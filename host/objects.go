package host

import (
	"math/big"
	"sort"

	"github.com/govm-net/sandbox/budget"
	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/types"
)

// ObjectKind is the closed set of object store entry kinds.
type ObjectKind uint8

const (
	KindVec ObjectKind = iota + 1
	KindMap
	KindU64
	KindI64
	KindU128
	KindI128
	KindBytes
	KindString
	KindSymbol
	KindExecutable
	KindAddress
	KindNonceKey
)

// MapPair is one key/value pair of an ordered map object.
type MapPair struct {
	Key   types.Val
	Value types.Val
}

// NonceKey identifies an address nonce.
type NonceKey struct {
	Address types.Address
	Nonce   uint64
}

// hostObject is one entry of the object store. Exactly the fields of
// its kind are meaningful. Objects are immutable once created;
// "mutation" always produces a new object under a new handle.
type hostObject struct {
	kind ObjectKind

	vec   []types.Val
	pairs []MapPair
	u64   uint64
	i64   int64
	big   *big.Int
	bytes []byte
	str   string
	sym   types.Symbol
	exec  storage.Executable
	addr  types.Address
	nonce NonceKey
}

// addObject appends an entry and returns its handle value. Handles are
// plain indexes into the append-only store, so a handle can never come
// to reference an entry of a different kind.
func (h *Host) addObject(o hostObject, sizeHint uint64) (types.Val, error) {
	if err := h.budget.Charge(budget.CostHostMemAlloc, sizeHint+1); err != nil {
		return types.Void(), err
	}
	h.objects = append(h.objects, o)
	return types.ObjectVal(types.Handle(len(h.objects) - 1)), nil
}

// object dereferences a handle.
func (h *Host) object(handle types.Handle) (*hostObject, error) {
	if err := h.budget.Charge(budget.CostVisitObject, 1); err != nil {
		return nil, err
	}
	if int(handle) >= len(h.objects) {
		return nil, h.err(core.ErrObject, core.CodeMissingValue, "unknown object handle")
	}
	return &h.objects[handle], nil
}

// objectOfKind dereferences a handle and checks its kind.
func (h *Host) objectOfKind(v types.Val, kind ObjectKind) (*hostObject, error) {
	handle, ok := v.Handle()
	if !ok {
		return nil, h.err(core.ErrObject, core.CodeUnexpectedType, "value is not an object")
	}
	obj, err := h.object(handle)
	if err != nil {
		return nil, err
	}
	if obj.kind != kind {
		return nil, h.err(core.ErrObject, core.CodeUnexpectedType, "object has unexpected kind")
	}
	return obj, nil
}

// VecObject creates a sequence object. The elements are copied.
func (h *Host) VecObject(elems []types.Val) (types.Val, error) {
	cp := make([]types.Val, len(elems))
	copy(cp, elems)
	return h.addObject(hostObject{kind: KindVec, vec: cp}, uint64(len(cp))*8)
}

// ObjectVec returns a copy of a sequence object's elements.
func (h *Host) ObjectVec(v types.Val) ([]types.Val, error) {
	obj, err := h.objectOfKind(v, KindVec)
	if err != nil {
		return nil, err
	}
	out := make([]types.Val, len(obj.vec))
	copy(out, obj.vec)
	return out, nil
}

// MapObject creates an ordered mapping object from pairs, sorted by
// key. Duplicate keys are rejected.
func (h *Host) MapObject(pairs []MapPair) (types.Val, error) {
	cp := make([]MapPair, len(pairs))
	copy(cp, pairs)
	if err := h.budget.Charge(budget.CostMapOp, uint64(len(cp))); err != nil {
		return types.Void(), err
	}
	sort.Slice(cp, func(i, j int) bool {
		return compareVals(cp[i].Key, cp[j].Key) < 0
	})
	for i := 1; i < len(cp); i++ {
		if compareVals(cp[i-1].Key, cp[i].Key) == 0 {
			return types.Void(), h.err(core.ErrObject, core.CodeInvalidInput,
				"duplicate key in map object")
		}
	}
	return h.addObject(hostObject{kind: KindMap, pairs: cp}, uint64(len(cp))*16)
}

// MapGet looks up a key in an ordered mapping object.
func (h *Host) MapGet(v, key types.Val) (types.Val, bool, error) {
	obj, err := h.objectOfKind(v, KindMap)
	if err != nil {
		return types.Void(), false, err
	}
	for _, p := range obj.pairs {
		if compareVals(p.Key, key) == 0 {
			return p.Value, true, nil
		}
	}
	return types.Void(), false, nil
}

// U64Object boxes an unsigned 64-bit integer.
func (h *Host) U64Object(v uint64) (types.Val, error) {
	return h.addObject(hostObject{kind: KindU64, u64: v}, 8)
}

// ObjectU64 unboxes an unsigned 64-bit integer object.
func (h *Host) ObjectU64(v types.Val) (uint64, error) {
	obj, err := h.objectOfKind(v, KindU64)
	if err != nil {
		return 0, err
	}
	return obj.u64, nil
}

// I64Object boxes a signed 64-bit integer.
func (h *Host) I64Object(v int64) (types.Val, error) {
	return h.addObject(hostObject{kind: KindI64, i64: v}, 8)
}

// ObjectI64 unboxes a signed 64-bit integer object.
func (h *Host) ObjectI64(v types.Val) (int64, error) {
	obj, err := h.objectOfKind(v, KindI64)
	if err != nil {
		return 0, err
	}
	return obj.i64, nil
}

// U128Object boxes an unsigned 128-bit integer.
func (h *Host) U128Object(v *big.Int) (types.Val, error) {
	if v.Sign() < 0 || v.BitLen() > 128 {
		return types.Void(), h.err(core.ErrValue, core.CodeInvalidInput, "value out of u128 range")
	}
	return h.addObject(hostObject{kind: KindU128, big: new(big.Int).Set(v)}, 16)
}

// i128 bounds: [-2^127, 2^127-1].
var (
	i128Min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	i128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
)

// I128Object boxes a signed 128-bit integer.
func (h *Host) I128Object(v *big.Int) (types.Val, error) {
	if v.Cmp(i128Min) < 0 || v.Cmp(i128Max) > 0 {
		return types.Void(), h.err(core.ErrValue, core.CodeInvalidInput, "value out of i128 range")
	}
	return h.addObject(hostObject{kind: KindI128, big: new(big.Int).Set(v)}, 16)
}

// ObjectBigInt unboxes a wide integer object of either signedness.
func (h *Host) ObjectBigInt(v types.Val) (*big.Int, error) {
	handle, ok := v.Handle()
	if !ok {
		return nil, h.err(core.ErrObject, core.CodeUnexpectedType, "value is not an object")
	}
	obj, err := h.object(handle)
	if err != nil {
		return nil, err
	}
	if obj.kind != KindU128 && obj.kind != KindI128 {
		return nil, h.err(core.ErrObject, core.CodeUnexpectedType, "object is not a wide integer")
	}
	return new(big.Int).Set(obj.big), nil
}

// BytesObject creates a byte-string object. The data is copied, so a
// handle always dereferences to byte-identical content for the
// lifetime of the host.
func (h *Host) BytesObject(data []byte) (types.Val, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	return h.addObject(hostObject{kind: KindBytes, bytes: cp}, uint64(len(cp)))
}

// ObjectBytes returns a copy of a byte-string object's content.
func (h *Host) ObjectBytes(v types.Val) ([]byte, error) {
	obj, err := h.objectOfKind(v, KindBytes)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(obj.bytes))
	copy(out, obj.bytes)
	return out, nil
}

// StringObject creates a text string object.
func (h *Host) StringObject(s string) (types.Val, error) {
	return h.addObject(hostObject{kind: KindString, str: s}, uint64(len(s)))
}

// ObjectString reads back a text string object.
func (h *Host) ObjectString(v types.Val) (string, error) {
	obj, err := h.objectOfKind(v, KindString)
	if err != nil {
		return "", err
	}
	return obj.str, nil
}

// SymbolObject creates a symbol object.
func (h *Host) SymbolObject(s types.Symbol) (types.Val, error) {
	if !s.Valid() {
		return types.Void(), h.err(core.ErrValue, core.CodeInvalidInput, "invalid symbol")
	}
	return h.addObject(hostObject{kind: KindSymbol, sym: s}, uint64(len(s)))
}

// ObjectSymbol reads back a symbol object.
func (h *Host) ObjectSymbol(v types.Val) (types.Symbol, error) {
	obj, err := h.objectOfKind(v, KindSymbol)
	if err != nil {
		return "", err
	}
	return obj.sym, nil
}

// ExecutableObject boxes a contract executable descriptor.
func (h *Host) ExecutableObject(e storage.Executable) (types.Val, error) {
	return h.addObject(hostObject{kind: KindExecutable, exec: e}, 33)
}

// AddressObject boxes an account address.
func (h *Host) AddressObject(a types.Address) (types.Val, error) {
	return h.addObject(hostObject{kind: KindAddress, addr: a}, 20)
}

// ObjectAddress reads back an address object.
func (h *Host) ObjectAddress(v types.Val) (types.Address, error) {
	obj, err := h.objectOfKind(v, KindAddress)
	if err != nil {
		return types.Address{}, err
	}
	return obj.addr, nil
}

// NonceKeyObject boxes an address nonce key.
func (h *Host) NonceKeyObject(k NonceKey) (types.Val, error) {
	return h.addObject(hostObject{kind: KindNonceKey, nonce: k}, 28)
}

// HashObject boxes a hash as a byte-string object.
func (h *Host) HashObject(hash types.Hash) (types.Val, error) {
	return h.BytesObject(hash[:])
}

// compareVals orders raw values first by tag, then by payload. Object
// handles order by handle, which is stable because the store is
// append-only.
func compareVals(a, b types.Val) int {
	if a.Tag() != b.Tag() {
		if a.Tag() < b.Tag() {
			return -1
		}
		return 1
	}
	ae, be := a.EncodeU64(), b.EncodeU64()
	switch {
	case ae < be:
		return -1
	case ae > be:
		return 1
	default:
		return 0
	}
}
