package host

import (
	"fmt"

	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/types"
)

// NativeContract is an in-process contract implementation. Registering
// one lets plain Go code stand in for compiled contract code, which is
// primarily a testing capability: a misbehaving native contract must
// degrade exactly like a trapping wasm contract, so its dispatch edge
// converts panics into structured errors instead of letting them
// escape.
type NativeContract interface {
	// Call runs the named function. It reports ok=false when no
	// function with that name is registered.
	Call(fn types.Symbol, h *Host, args []types.Val) (types.Val, bool)
}

// NativeContractFunc adapts a function to the NativeContract
// interface.
type NativeContractFunc func(fn types.Symbol, h *Host, args []types.Val) (types.Val, bool)

// Call implements NativeContract.
func (f NativeContractFunc) Call(fn types.Symbol, h *Host, args []types.Val) (types.Val, bool) {
	return f(fn, h, args)
}

// RegisterNativeContract binds an in-process implementation to a
// contract id. Dispatch prefers it over ledger resolution.
func (h *Host) RegisterNativeContract(id types.Hash, c NativeContract) {
	h.natives[id] = c
}

// EscalateErrorToPanic parks a structured error in the current native
// frame's error cell and panics. Native contract code uses it to abort
// the way a wasm trap would; the dispatch edge fishes the error back
// out.
func (h *Host) EscalateErrorToPanic(e *core.Error) {
	if len(h.frames) > 0 {
		if nf, ok := h.frames[len(h.frames)-1].(*NativeFrame); ok {
			nf.errCell = e
		}
	}
	panic(e)
}

// callNative dispatches into a native contract inside a guarded frame
// scope that intercepts panics.
func (h *Host) callNative(native NativeContract, id types.Hash, fn types.Symbol, args []types.Val) (types.Val, error) {
	frame := &NativeFrame{ID: id, Func: fn, Args: args}
	return h.WithFrame(frame, func() (types.Val, error) {
		res, ok, panicked, payload := invokeNativeGuarded(native, fn, h, args)
		if panicked {
			return types.Void(), h.nativePanicError(frame, fn, payload)
		}
		if !ok {
			return types.Void(), h.err(core.ErrContext, core.CodeMissingValue,
				fmt.Sprintf("calling unknown contract function %q", fn))
		}
		h.fnReturnDiagnostics(id, fn, res)
		return res, nil
	})
}

// invokeNativeGuarded runs the native call under a recover boundary.
// This is the only place in the host where panics are caught; all
// other failures are ordinary propagated errors.
func invokeNativeGuarded(native NativeContract, fn types.Symbol, h *Host, args []types.Val) (res types.Val, ok, panicked bool, payload any) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			payload = r
		}
	}()
	res, ok = native.Call(fn, h, args)
	return res, ok, false, nil
}

// nativePanicError converts an intercepted panic into a structured
// error. A structured error previously parked in the frame's error
// cell wins; otherwise, with diagnostics on, a textual payload is
// preserved in a human-readable message under an unknown error code.
func (h *Host) nativePanicError(frame *NativeFrame, fn types.Symbol, payload any) error {
	if frame.errCell != nil {
		return frame.errCell
	}
	e := core.New(core.ErrContext, core.CodeUnknownError, "contract function panicked")
	if h.IsDebug() {
		if str, ok := textualPayload(payload); ok {
			e.Msg = fmt.Sprintf("caught panic '%s' from contract function '%s'", str, fn)
		}
		h.errDiagnostics(e, e.Msg, nil)
	}
	return e
}

func textualPayload(payload any) (string, bool) {
	switch p := payload.(type) {
	case string:
		return p, true
	case error:
		return p.Error(), true
	default:
		return "", false
	}
}
