package types

import "fmt"

// Tag discriminates the payload of a Val.
type Tag uint8

const (
	// TagVoid is the unit value.
	TagVoid Tag = iota
	// TagBool holds 0 or 1 in the payload.
	TagBool
	// TagU32 holds an unsigned 32-bit integer in the payload.
	TagU32
	// TagI32 holds a signed 32-bit integer, stored as its bit pattern.
	TagI32
	// TagError holds a packed error type and code.
	TagError
	// TagObject holds an object store handle.
	TagObject
)

// Handle is an opaque reference into the host object store. A handle is
// a capability to read the referenced object, never ownership of it.
type Handle uint32

// Val is the raw value exchanged between the host, the virtual machine
// and contract functions. Small values are carried inline; everything
// else lives in the host object store and is referenced by handle.
type Val struct {
	tag Tag
	num uint64
}

// Void returns the unit value.
func Void() Val { return Val{tag: TagVoid} }

// Bool returns a boolean value.
func Bool(b bool) Val {
	var n uint64
	if b {
		n = 1
	}
	return Val{tag: TagBool, num: n}
}

// U32 returns an unsigned 32-bit value.
func U32(v uint32) Val { return Val{tag: TagU32, num: uint64(v)} }

// I32 returns a signed 32-bit value.
func I32(v int32) Val { return Val{tag: TagI32, num: uint64(uint32(v))} }

// ErrorVal packs an error type and code into a value. Contract
// functions may return such a value instead of trapping; the host
// escalates it to a real failure on frame exit. Both parts are 16 bits
// wide on the WebAssembly boundary, so they are truncated here and the
// value round-trips the boundary unchanged.
func ErrorVal(errType, code uint32) Val {
	return Val{tag: TagError, num: uint64(errType&0xffff)<<32 | uint64(code&0xffff)}
}

// ObjectVal wraps an object store handle.
func ObjectVal(h Handle) Val { return Val{tag: TagObject, num: uint64(h)} }

// Tag returns the value's discriminant.
func (v Val) Tag() Tag { return v.tag }

// IsVoid reports whether the value is the unit value.
func (v Val) IsVoid() bool { return v.tag == TagVoid }

// IsError reports whether the value carries an error code.
func (v Val) IsError() bool { return v.tag == TagError }

// ErrorParts returns the packed error type and code. Only meaningful
// when IsError reports true.
func (v Val) ErrorParts() (errType, code uint32) {
	return uint32(v.num >> 32), uint32(v.num)
}

// AsBool returns the boolean payload.
func (v Val) AsBool() bool { return v.tag == TagBool && v.num != 0 }

// AsU32 returns the unsigned 32-bit payload.
func (v Val) AsU32() uint32 { return uint32(v.num) }

// AsI32 returns the signed 32-bit payload.
func (v Val) AsI32() int32 { return int32(uint32(v.num)) }

// Handle returns the object handle payload and whether the value is an
// object reference at all.
func (v Val) Handle() (Handle, bool) {
	if v.tag != TagObject {
		return 0, false
	}
	return Handle(v.num), true
}

func (v Val) String() string {
	switch v.tag {
	case TagVoid:
		return "void"
	case TagBool:
		return fmt.Sprintf("bool(%v)", v.num != 0)
	case TagU32:
		return fmt.Sprintf("u32(%d)", uint32(v.num))
	case TagI32:
		return fmt.Sprintf("i32(%d)", int32(uint32(v.num)))
	case TagError:
		t, c := v.ErrorParts()
		return fmt.Sprintf("error(type=%d, code=%d)", t, c)
	case TagObject:
		return fmt.Sprintf("object(#%d)", uint32(v.num))
	default:
		return fmt.Sprintf("val(tag=%d)", v.tag)
	}
}

// EncodeU64 packs the value into a single 64-bit word for crossing the
// WebAssembly boundary: the tag lives in the low byte, the payload in
// the upper 56 bits. Error payloads are repacked to fit.
func (v Val) EncodeU64() uint64 {
	num := v.num
	if v.tag == TagError {
		t, c := v.ErrorParts()
		num = uint64(t)<<16 | uint64(c)
	}
	return num<<8 | uint64(v.tag)
}

// DecodeU64 is the inverse of EncodeU64.
func DecodeU64(raw uint64) Val {
	tag := Tag(raw & 0xff)
	num := raw >> 8
	if tag == TagError {
		return ErrorVal(uint32(num>>16), uint32(num&0xffff))
	}
	return Val{tag: tag, num: num}
}
