package vm

import (
	"context"
	"encoding/binary"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/govm-net/sandbox/types"
)

// maxCrossCallArgs bounds the argument vector a guest may pass to
// host_call.
const maxCrossCallArgs = 32

// instantiateEnv builds and instantiates the "env" host module that
// guest code imports. Every function returns an encoded Val; failures
// are reported to the guest as error values rather than traps, so a
// contract can observe and propagate them.
func instantiateEnv(ctx context.Context, runtime wazero.Runtime, env Env) error {
	builder := runtime.NewHostModuleBuilder("env")

	// host_call(idPtr, fnPtr, fnLen, argsPtr, argsLen) -> encoded Val.
	// id is 32 bytes, args are argsLen little-endian encoded Vals.
	builder.NewFunctionBuilder().
		WithParameterNames("idPtr", "fnPtr", "fnLen", "argsPtr", "argsLen").
		WithResultNames("result").
		WithFunc(func(_ context.Context, m api.Module, idPtr, fnPtr, fnLen, argsPtr, argsLen uint32) uint64 {
			mem := m.Memory()
			if mem == nil {
				return guestError()
			}
			idData, ok := mem.Read(idPtr, 32)
			if !ok {
				return guestError()
			}
			fnData, ok := mem.Read(fnPtr, fnLen)
			if !ok {
				return guestError()
			}
			if argsLen > maxCrossCallArgs {
				return guestError()
			}
			argData, ok := mem.Read(argsPtr, argsLen*8)
			if !ok {
				return guestError()
			}

			var id types.Hash
			copy(id[:], idData)
			args := make([]types.Val, argsLen)
			for i := range args {
				args[i] = types.DecodeU64(binary.LittleEndian.Uint64(argData[i*8:]))
			}

			res, err := env.CrossCall(id, types.Symbol(fnData), args)
			if err != nil {
				return errorToGuest(err)
			}
			return res.EncodeU64()
		}).
		Export("host_call")

	// host_log(msgPtr, msgLen): best-effort diagnostic message.
	builder.NewFunctionBuilder().
		WithParameterNames("msgPtr", "msgLen").
		WithFunc(func(_ context.Context, m api.Module, msgPtr, msgLen uint32) {
			mem := m.Memory()
			if mem == nil {
				return
			}
			msg, ok := mem.Read(msgPtr, msgLen)
			if !ok {
				return
			}
			env.DiagnosticLog(string(msg))
		}).
		Export("host_log")

	// host_bytes_new(ptr, len) -> encoded bytes-object Val.
	builder.NewFunctionBuilder().
		WithParameterNames("ptr", "len").
		WithResultNames("result").
		WithFunc(func(_ context.Context, m api.Module, ptr, length uint32) uint64 {
			mem := m.Memory()
			if mem == nil {
				return guestError()
			}
			data, ok := mem.Read(ptr, length)
			if !ok {
				return guestError()
			}
			v, err := env.BytesObject(data)
			if err != nil {
				return errorToGuest(err)
			}
			return v.EncodeU64()
		}).
		Export("host_bytes_new")

	// host_bytes_read(val, ptr, capacity) -> copied length, or -1 when
	// the handle is invalid or the buffer too small.
	builder.NewFunctionBuilder().
		WithParameterNames("val", "ptr", "capacity").
		WithResultNames("length").
		WithFunc(func(_ context.Context, m api.Module, val uint64, ptr, capacity uint32) int32 {
			mem := m.Memory()
			if mem == nil {
				return -1
			}
			data, err := env.ObjectBytes(types.DecodeU64(val))
			if err != nil || uint32(len(data)) > capacity {
				return -1
			}
			if !mem.Write(ptr, data) {
				return -1
			}
			return int32(len(data))
		}).
		Export("host_bytes_read")

	_, err := builder.Instantiate(ctx)
	return err
}
