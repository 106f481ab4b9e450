// Package vm runs compiled contract code inside a wazero WebAssembly
// runtime. Each VM instance is scoped to a single contract id and is
// constructed on demand when the host dispatches a call to a
// wasm-backed contract.
package vm

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/govm-net/sandbox/budget"
	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/types"
)

// Env is the slice of the execution host visible to guest code through
// the "env" import module.
type Env interface {
	// CrossCall dispatches a contract-to-contract call back into the
	// host, under the host's default re-entrancy policy.
	CrossCall(contract types.Hash, fn types.Symbol, args []types.Val) (types.Val, error)

	// DiagnosticLog records a guest debug message. Best-effort and
	// gated by the host's diagnostic mode.
	DiagnosticLog(msg string)

	// Charge charges the execution budget.
	Charge(t budget.CostType, iterations uint64) error

	// BytesObject creates a byte-string object from guest memory.
	BytesObject(data []byte) (types.Val, error)

	// ObjectBytes reads back a byte-string object for the guest.
	ObjectBytes(v types.Val) ([]byte, error)
}

// VM is one instantiated contract module.
type VM struct {
	// ContractID is the contract this instance executes.
	ContractID types.Hash

	runtime wazero.Runtime
	module  api.Module
}

// New compiles and instantiates contract code. The instance lifetime
// is scoped to the calling frame; the host closes it when the frame
// pops.
func New(ctx context.Context, env Env, contractID types.Hash, code []byte) (*VM, error) {
	if len(code) == 0 {
		return nil, core.New(core.ErrWasmVM, core.CodeInvalidInput, "contract code is empty")
	}
	if err := env.Charge(budget.CostVMInstantiation, uint64(len(code))); err != nil {
		return nil, err
	}

	runtime := wazero.NewRuntime(ctx)

	compiled, err := runtime.CompileModule(ctx, code)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, core.Newf(core.ErrWasmVM, core.CodeInvalidInput,
			"failed to compile WebAssembly module: %v", err)
	}

	if err := instantiateEnv(ctx, runtime, env); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	config := wazero.NewModuleConfig().
		WithName("contract").
		WithStartFunctions("_initialize")

	module, err := runtime.InstantiateModule(ctx, compiled, config)
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, core.Newf(core.ErrWasmVM, core.CodeInvalidAction,
			"failed to instantiate module: %v", err)
	}

	return &VM{ContractID: contractID, runtime: runtime, module: module}, nil
}

// Invoke calls an exported contract function with raw values and
// returns its single raw result. A missing export is a distinct
// missing-value error; a trap surfaces as a wasm-vm error.
func (vm *VM) Invoke(ctx context.Context, env Env, fn types.Symbol, args []types.Val) (types.Val, error) {
	f := vm.module.ExportedFunction(string(fn))
	if f == nil {
		return types.Void(), core.Newf(core.ErrWasmVM, core.CodeMissingValue,
			"unknown function %q", fn)
	}
	if err := env.Charge(budget.CostVMInvoke, 1); err != nil {
		return types.Void(), err
	}

	raw := make([]uint64, len(args))
	for i, a := range args {
		raw[i] = a.EncodeU64()
	}

	res, err := f.Call(ctx, raw...)
	if err != nil {
		return types.Void(), core.Newf(core.ErrWasmVM, core.CodeInvalidAction,
			"contract function %q trapped: %v", fn, err)
	}
	if len(res) == 0 {
		return types.Void(), nil
	}
	return types.DecodeU64(res[0]), nil
}

// Close tears down the runtime and every module instantiated in it.
func (vm *VM) Close(ctx context.Context) error {
	if err := vm.runtime.Close(ctx); err != nil {
		return fmt.Errorf("failed to close wazero runtime: %w", err)
	}
	return nil
}
