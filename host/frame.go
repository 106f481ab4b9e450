package host

import (
	"github.com/govm-net/sandbox/auth"
	"github.com/govm-net/sandbox/budget"
	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/types"
	"github.com/govm-net/sandbox/vm"
)

// HostFunctionType discriminates top-level host-invoked operations.
type HostFunctionType int

const (
	// HostFnInvokeContract invokes a contract function.
	HostFnInvokeContract HostFunctionType = iota + 1
	// HostFnCreateContract registers a new contract id.
	HostFnCreateContract
	// HostFnUploadWasm uploads contract code.
	HostFnUploadWasm
)

// Frame holds contextual information about a single active invocation.
// Frames are arranged into a stack; each frame is also the unit of a
// sub-transaction, capturing host state when pushed and committing or
// rolling that state back when popped.
//
// The variant set is closed: a frame is a VM execution, a top-level
// host function, the built-in token contract, or an in-process native
// contract.
type Frame interface {
	// contractID returns the contract identity of the frame, when it
	// has one. Host-function frames do not.
	contractID() (types.Hash, bool)
}

// VMFrame executes compiled contract code inside a virtual machine
// instance. The instance is owned by the frame and closed when the
// frame's scope exits.
type VMFrame struct {
	VM   *vm.VM
	Func types.Symbol
	Args []types.Val
}

func (f *VMFrame) contractID() (types.Hash, bool) { return f.VM.ContractID, true }

// HostFunctionFrame is the outermost frame of a top-level host
// operation. It carries no contract identity.
type HostFunctionFrame struct {
	Type HostFunctionType
}

func (f *HostFunctionFrame) contractID() (types.Hash, bool) { return types.Hash{}, false }

// TokenFrame executes the built-in token contract, identified by id
// rather than code.
type TokenFrame struct {
	ID   types.Hash
	Func types.Symbol
	Args []types.Val
}

func (f *TokenFrame) contractID() (types.Hash, bool) { return f.ID, true }

// NativeFrame executes an in-process native contract implementation.
// The error cell is a single-slot mailbox: a native contract that
// escalates a structured error to a panic parks the error here so the
// dispatch edge can recover it.
type NativeFrame struct {
	ID   types.Hash
	Func types.Symbol
	Args []types.Val

	errCell *core.Error
}

func (f *NativeFrame) contractID() (types.Hash, bool) { return f.ID, true }

// rollbackPoint saves host state for rolling back a sub-transaction on
// failure. Created at push, consumed at most once at pop.
type rollbackPoint struct {
	storage storage.Map
	events  int
	auth    *auth.Snapshot
}

// pushFrame pushes a frame and returns the rollback point restoring
// the host to its pre-push state. The authorization manager is
// notified best-effort: if it is already in use the hook is skipped
// and the rollback point carries no auth snapshot.
func (h *Host) pushFrame(f Frame) (rollbackPoint, error) {
	var authSnap *auth.Snapshot
	if h.auth.TryAcquire() {
		err := h.auth.PushFrame(frameInvocation(f))
		if err != nil {
			h.auth.Release()
			return rollbackPoint{}, err
		}
		snap := h.auth.Snapshot()
		authSnap = &snap
		h.auth.Release()
	}

	h.frames = append(h.frames, f)
	return rollbackPoint{
		storage: h.storage.Map.Clone(),
		events:  h.events.len(),
		auth:    authSnap,
	}, nil
}

// popFrame pops the top frame, optionally rolling the host back to the
// provided rollback point. An unmatched pop is a host bug and panics.
func (h *Host) popFrame(rp *rollbackPoint) error {
	if len(h.frames) == 0 {
		panic("host: unmatched frame push/pop")
	}
	h.frames = h.frames[:len(h.frames)-1]

	if h.auth.TryAcquire() {
		h.auth.PopFrame()
		h.auth.Release()
	}

	if len(h.frames) == 0 {
		// With no frames left, emulate authentication for the
		// recording auth mode. A no-op in enforcing mode.
		if err := h.auth.MaybeEmulateAuthentication(); err != nil {
			return err
		}
	}

	if rp != nil {
		h.storage.Map = rp.storage
		if err := h.events.rollback(rp.events); err != nil {
			return err
		}
		if rp.auth != nil {
			h.auth.Rollback(*rp.auth)
		}
		rollbacksTotal.Inc()
	}
	return nil
}

// WithFrame pushes a frame, runs the body, then pops the frame:
// rolling back if the body failed, committing otherwise. A success
// whose returned value carries an error code is escalated to a failure
// before the commit decision. Stack depth is identical before and
// after; a mismatch is a host bug.
func (h *Host) WithFrame(f Frame, body func() (types.Val, error)) (types.Val, error) {
	if err := h.budget.Charge(budget.CostGuardFrame, 1); err != nil {
		return types.Void(), err
	}
	startDepth := len(h.frames)

	rp, err := h.pushFrame(f)
	if err != nil {
		return types.Void(), err
	}

	res, err := body()
	if err == nil {
		if fe, ok := core.FromVal(res); ok {
			// A success return carrying an error code is not reason
			// enough to commit.
			h.errDiagnostics(fe, "escalating error value on frame exit to failure", nil)
			err = fe
		}
	}

	if err != nil {
		if perr := h.popFrame(&rp); perr != nil {
			h.log.Warn().Err(perr).Msg("rollback pop failed")
		}
	} else {
		if perr := h.popFrame(nil); perr != nil {
			err = perr
		}
	}

	if len(h.frames) != startDepth {
		panic("host: frame stack depth changed across guarded scope")
	}
	if err != nil {
		return types.Void(), err
	}
	return res, nil
}

// WithTestContractFrame runs a body under a native contract frame.
// Used by tests to execute host operations as if a contract were
// running.
func (h *Host) WithTestContractFrame(id types.Hash, fn types.Symbol, body func() (types.Val, error)) (types.Val, error) {
	return h.WithFrame(&NativeFrame{ID: id, Func: fn}, body)
}

// frameInvocation derives the auth-manager view of a frame: nil for
// host-function frames, which carry no contract identity.
func frameInvocation(f Frame) *auth.Invocation {
	switch fr := f.(type) {
	case *VMFrame:
		return &auth.Invocation{Contract: fr.VM.ContractID, Function: fr.Func}
	case *TokenFrame:
		return &auth.Invocation{Contract: fr.ID, Function: fr.Func}
	case *NativeFrame:
		return &auth.Invocation{Contract: fr.ID, Function: fr.Func}
	default:
		return nil
	}
}
