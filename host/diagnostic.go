package host

import (
	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/types"
)

// DiagnosticLevel gates the diagnostic emitters. When off, every
// diagnostic operation is a no-op with zero resource cost.
type DiagnosticLevel int

const (
	// DiagnosticNone disables all diagnostic events.
	DiagnosticNone DiagnosticLevel = iota
	// DiagnosticDebug records function-call, function-return and
	// error trace events.
	DiagnosticDebug
)

// SetDiagnosticLevel toggles the diagnostic mode. Safe to call at any
// point in an invocation.
func (h *Host) SetDiagnosticLevel(l DiagnosticLevel) {
	h.diagLevel = l
}

// IsDebug reports whether diagnostics are enabled.
func (h *Host) IsDebug() bool {
	return h.diagLevel == DiagnosticDebug
}

// errDiagnostics records an error trace event: topics = ["error",
// error-code], data = [message, args...]. Best-effort: construction
// failures are swallowed, and nothing is metered.
func (h *Host) errDiagnostics(e *core.Error, msg string, args []types.Val) {
	if !h.IsDebug() || h.emittingErr {
		return
	}
	h.emittingErr = true
	defer func() { h.emittingErr = false }()
	_ = h.budget.WithFree(func() error {
		contractID := h.currentContractIDOpt()

		errSym, err := h.SymbolObject("error")
		if err != nil {
			return err
		}
		topics, err := h.VecObject([]types.Val{errSym, e.Val()})
		if err != nil {
			return err
		}
		msgObj, err := h.StringObject(msg)
		if err != nil {
			return err
		}
		data, err := h.VecObject(append([]types.Val{msgObj}, args...))
		if err != nil {
			return err
		}
		h.recordDebugEvent(contractID, topics, data)
		return nil
	})
}

// fnCallDiagnostics records a function-call trace event: topics =
// ["fn_call", called-contract-id, function], data = args. It must run
// before the new frame is pushed so the calling contract is inferred
// from the current top of stack.
func (h *Host) fnCallDiagnostics(called types.Hash, fn types.Symbol, args []types.Val) {
	if !h.IsDebug() {
		return
	}
	callingContract := h.currentContractIDOpt()

	_ = h.budget.WithFree(func() error {
		callSym, err := h.SymbolObject("fn_call")
		if err != nil {
			return err
		}
		calledObj, err := h.HashObject(called)
		if err != nil {
			return err
		}
		fnObj, err := h.SymbolObject(fn)
		if err != nil {
			return err
		}
		topics, err := h.VecObject([]types.Val{callSym, calledObj, fnObj})
		if err != nil {
			return err
		}
		data, err := h.VecObject(args)
		if err != nil {
			return err
		}
		h.recordDebugEvent(callingContract, topics, data)
		return nil
	})
}

// fnReturnDiagnostics records a function-return trace event: topics =
// ["fn_return", function], data = the single return value.
func (h *Host) fnReturnDiagnostics(contract types.Hash, fn types.Symbol, res types.Val) {
	if !h.IsDebug() {
		return
	}
	_ = h.budget.WithFree(func() error {
		retSym, err := h.SymbolObject("fn_return")
		if err != nil {
			return err
		}
		fnObj, err := h.SymbolObject(fn)
		if err != nil {
			return err
		}
		topics, err := h.VecObject([]types.Val{retSym, fnObj})
		if err != nil {
			return err
		}
		h.recordDebugEvent(&contract, topics, res)
		return nil
	})
}

// DiagnosticLog records a free-form guest debug message as a
// structured debug event. Part of the vm.Env surface.
func (h *Host) DiagnosticLog(msg string) {
	if !h.IsDebug() {
		return
	}
	_ = h.budget.WithFree(func() error {
		logSym, err := h.SymbolObject("log")
		if err != nil {
			return err
		}
		topics, err := h.VecObject([]types.Val{logSym})
		if err != nil {
			return err
		}
		data, err := h.StringObject(msg)
		if err != nil {
			return err
		}
		h.recordDebugEvent(h.currentContractIDOpt(), topics, data)
		return nil
	})
}
