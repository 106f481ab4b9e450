package host

import (
	"crypto/sha256"
	"strings"

	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/types"
	"github.com/govm-net/sandbox/vm"
)

// ReentryMode determines the re-entry policy for dispatching into a
// contract.
type ReentryMode int

const (
	// ReentryProhibited forbids the target contract anywhere else in
	// the current stack.
	ReentryProhibited ReentryMode = iota
	// ReentrySelfAllowed lets a contract call itself directly, but not
	// through an intermediary.
	ReentrySelfAllowed
	// ReentryAllowed places no restriction.
	ReentryAllowed
)

// Contract functions starting with a double underscore are reserved by
// the host and cannot be called by other contracts.
const reservedFnPrefix = "__"

// Call dispatches a contract function call under the given re-entry
// mode. This is the externally-originated entry; reserved functions
// are rejected.
func (h *Host) Call(id types.Hash, fn types.Symbol, args []types.Val, mode ReentryMode) (types.Val, error) {
	return h.callInternal(id, fn, args, mode, false)
}

// CrossCall dispatches a contract-to-contract call on behalf of guest
// code. Part of the vm.Env surface.
func (h *Host) CrossCall(contract types.Hash, fn types.Symbol, args []types.Val) (types.Val, error) {
	return h.callInternal(contract, fn, args, ReentryProhibited, false)
}

// callInternal is the dispatch protocol: reserved-name check, re-entry
// policy, call diagnostics, target resolution (native registry, then
// ledger executable), return diagnostics.
func (h *Host) callInternal(id types.Hash, fn types.Symbol, args []types.Val, mode ReentryMode, internal bool) (types.Val, error) {
	// Internal host calls may invoke reserved functions.
	if !internal && strings.HasPrefix(string(fn), reservedFnPrefix) {
		return types.Void(), h.err(core.ErrContext, core.CodeInvalidAction,
			"cannot invoke a reserved function directly")
	}

	if mode != ReentryAllowed {
		if err := h.checkReentry(id, mode); err != nil {
			return types.Void(), err
		}
	}

	// Attribution of the call event needs the caller, so this runs
	// before the new frame exists.
	h.fnCallDiagnostics(id, fn, args)

	if native, ok := h.natives[id]; ok {
		return h.callNative(native, id, fn, args)
	}

	res, err := h.callContractFn(id, fn, args)
	if err != nil {
		// Failure diagnostics are recorded where the error is built,
		// not re-recorded here.
		return types.Void(), err
	}
	h.fnReturnDiagnostics(id, fn, res)
	return res, nil
}

// checkReentry scans the stack from the top down, skipping frames with
// no contract identity, and fails the moment a disallowed occurrence
// of the target id is found.
func (h *Host) checkReentry(id types.Hash, mode ReentryMode) error {
	isLastNonHostFrame := true
	for i := len(h.frames) - 1; i >= 0; i-- {
		existID, ok := h.frames[i].contractID()
		if !ok {
			continue
		}
		if existID == id {
			if mode == ReentrySelfAllowed && isLastNonHostFrame {
				isLastNonHostFrame = false
				continue
			}
			return h.err(core.ErrContext, core.CodeInvalidAction,
				"contract re-entry is not allowed")
		}
		isLastNonHostFrame = false
	}
	return nil
}

// callContractFn resolves the target's executable descriptor from the
// ledger and dispatches either into a virtual machine instance or into
// the built-in token contract.
func (h *Host) callContractFn(id types.Hash, fn types.Symbol, args []types.Val) (types.Val, error) {
	entry, err := h.storage.Get(storage.InstanceKey(id))
	if err != nil {
		return types.Void(), err
	}
	if entry.Executable == nil {
		return types.Void(), h.err(core.ErrStorage, core.CodeUnexpectedType,
			"ledger entry is not a contract instance")
	}

	switch entry.Executable.Kind {
	case storage.ExecWasm:
		codeEntry, err := h.storage.Get(storage.CodeKey(entry.Executable.WasmHash))
		if err != nil {
			return types.Void(), err
		}
		machine, err := vm.New(h.base, h, id, codeEntry.Code)
		if err != nil {
			return types.Void(), err
		}
		defer func() {
			if cerr := machine.Close(h.base); cerr != nil {
				h.log.Warn().Err(cerr).Msg("failed to close vm instance")
			}
		}()
		return h.WithFrame(&VMFrame{VM: machine, Func: fn, Args: args}, func() (types.Val, error) {
			return machine.Invoke(h.base, h, fn, args)
		})

	case storage.ExecToken:
		return h.WithFrame(&TokenFrame{ID: id, Func: fn, Args: args}, func() (types.Val, error) {
			return tokenCall(h, id, fn, args)
		})

	default:
		return types.Void(), h.err(core.ErrStorage, core.CodeUnexpectedType,
			"unknown executable kind")
	}
}

// HostFunction is one top-level host-invoked operation.
type HostFunction struct {
	Type HostFunctionType

	// Invoke parameters.
	ContractID types.Hash
	Func       types.Symbol
	Args       []types.Val

	// Create parameters.
	Deployer   types.Address
	Salt       [32]byte
	Executable storage.Executable

	// Upload parameters.
	Code []byte
}

// InvokeHostFunction runs one top-level operation under a
// host-function frame. The host-function frame is always the bottom of
// the call stack, so invoke dispatch uses the prohibited re-entry
// mode.
func (h *Host) InvokeHostFunction(hf HostFunction) (types.Val, error) {
	invocationsTotal.Inc()
	switch hf.Type {
	case HostFnInvokeContract:
		return h.WithFrame(&HostFunctionFrame{Type: hf.Type}, func() (types.Val, error) {
			return h.callInternal(hf.ContractID, hf.Func, hf.Args, ReentryProhibited, false)
		})
	case HostFnCreateContract:
		return h.WithFrame(&HostFunctionFrame{Type: hf.Type}, func() (types.Val, error) {
			return h.createContract(hf.Deployer, hf.Salt, hf.Executable)
		})
	case HostFnUploadWasm:
		return h.WithFrame(&HostFunctionFrame{Type: hf.Type}, func() (types.Val, error) {
			return h.uploadWasm(hf.Code)
		})
	default:
		return types.Void(), h.err(core.ErrContext, core.CodeInvalidInput,
			"unknown host function type")
	}
}

// InvokeHostFunctions runs a batch of top-level operations in order,
// stopping at the first failure.
func (h *Host) InvokeHostFunctions(hfs []HostFunction) ([]types.Val, error) {
	out := make([]types.Val, 0, len(hfs))
	for _, hf := range hfs {
		v, err := h.InvokeHostFunction(hf)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// createContract derives a contract id from the deployer and salt and
// writes its instance entry. Creating over an existing instance is
// rejected.
func (h *Host) createContract(deployer types.Address, salt [32]byte, exec storage.Executable) (types.Val, error) {
	id := ContractIDFromDeployer(deployer, salt)
	key := storage.InstanceKey(id)
	exists, err := h.storage.Has(key)
	if err != nil {
		return types.Void(), err
	}
	if exists {
		return types.Void(), h.err(core.ErrStorage, core.CodeInvalidAction,
			"contract already exists")
	}
	if exec.Kind == storage.ExecWasm {
		// The referenced code must have been uploaded first.
		if _, err := h.storage.Get(storage.CodeKey(exec.WasmHash)); err != nil {
			return types.Void(), err
		}
	}
	execCopy := exec
	h.storage.Put(key, storage.Entry{Executable: &execCopy})
	h.log.Debug().Str("contract", id.String()).Msg("contract created")
	return h.HashObject(id)
}

// uploadWasm stores contract code under its hash and returns the hash
// as a bytes object. Uploading identical code twice is a no-op.
func (h *Host) uploadWasm(code []byte) (types.Val, error) {
	if len(code) == 0 {
		return types.Void(), h.err(core.ErrWasmVM, core.CodeInvalidInput,
			"contract code is empty")
	}
	hash := types.Hash(sha256.Sum256(code))
	cp := make([]byte, len(code))
	copy(cp, code)
	h.storage.Put(storage.CodeKey(hash), storage.Entry{Code: cp})
	h.log.Debug().Str("code_hash", hash.String()).Int("size", len(code)).Msg("wasm uploaded")
	return h.HashObject(hash)
}

// ContractIDFromDeployer derives a contract id from a deployer address
// and salt.
func ContractIDFromDeployer(deployer types.Address, salt [32]byte) types.Hash {
	buf := make([]byte, 0, len(deployer)+len(salt))
	buf = append(buf, deployer[:]...)
	buf = append(buf, salt[:]...)
	return sha256.Sum256(buf)
}
