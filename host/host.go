// Package host implements the execution host for sandboxed smart
// contracts: the invocation frame stack, the snapshot/rollback
// protocol that gives each frame all-or-nothing semantics, the
// re-entrancy policy enforced at dispatch, and the handle-based object
// store the rollback protocol snapshots around.
package host

import (
	"context"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/govm-net/sandbox"
	"github.com/govm-net/sandbox/auth"
	"github.com/govm-net/sandbox/budget"
	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/storage"
	"github.com/govm-net/sandbox/types"
)

// Config configures a Host.
type Config struct {
	// Backend is the persistent ledger the host reads through. May be
	// nil for a purely in-memory host.
	Backend storage.Backend

	// BudgetLimit is the total execution budget.
	BudgetLimit uint64

	// AuthMode selects enforcing or recording authorization.
	AuthMode auth.Mode

	// Diagnostic sets the initial diagnostic level.
	Diagnostic DiagnosticLevel
}

// DefaultConfig returns a configuration suitable for tests and small
// embedded hosts.
func DefaultConfig() Config {
	return Config{
		BudgetLimit: 10_000_000,
		AuthMode:    auth.Enforcing,
		Diagnostic:  DiagnosticNone,
	}
}

// Host is a single execution context. It exclusively owns the frame
// stack, object store, event buffer, ledger map and authorization
// manager for its entire lifetime; frames borrow them for the duration
// of their scope. A host processes one top-level invocation at a time
// and is not safe for concurrent use.
type Host struct {
	log zerolog.Logger

	budget  *budget.Budget
	storage *storage.Storage
	auth    *auth.Manager

	frames    []Frame
	objects   []hostObject
	events    eventBuffer
	diagLevel DiagnosticLevel

	// emittingErr breaks the recursion between error construction and
	// the error-diagnostic emitter.
	emittingErr bool

	// natives holds in-process native contract implementations keyed
	// by contract id. Registering one is a test capability: it lets a
	// plain Go function stand in for compiled contract code.
	natives map[types.Hash]NativeContract

	// base is the context handed to the wazero runtime.
	base context.Context
}

// New creates an execution host.
func New(cfg Config) (*Host, error) {
	if cfg.BudgetLimit == 0 {
		return nil, core.New(core.ErrContext, core.CodeInvalidInput, "budget limit is zero")
	}
	h := &Host{
		log: sandbox.Logger.With().
			Str("component", "host").
			Str("id", xid.New().String()).
			Logger(),
		budget:    budget.New(cfg.BudgetLimit),
		storage:   storage.New(cfg.Backend),
		auth:      auth.NewManager(cfg.AuthMode),
		diagLevel: cfg.Diagnostic,
		natives:   make(map[types.Hash]NativeContract),
		base:      context.Background(),
	}
	return h, nil
}

// Budget returns the metering collaborator.
func (h *Host) Budget() *budget.Budget { return h.budget }

// Storage returns the ledger view.
func (h *Host) Storage() *storage.Storage { return h.storage }

// Auth returns the authorization manager.
func (h *Host) Auth() *auth.Manager { return h.auth }

// Charge charges the execution budget. Part of the vm.Env surface.
func (h *Host) Charge(t budget.CostType, iterations uint64) error {
	return h.budget.Charge(t, iterations)
}

// Depth reports the current frame stack depth.
func (h *Host) Depth() int { return len(h.frames) }

// CurrentContractID returns the contract id of the top frame. Reading
// it with an empty stack, or under a top-level host-function frame, is
// a context error, not a default.
func (h *Host) CurrentContractID() (types.Hash, error) {
	f, err := h.currentFrame()
	if err != nil {
		return types.Hash{}, err
	}
	id, ok := f.contractID()
	if !ok {
		return types.Hash{}, h.err(core.ErrContext, core.CodeMissingValue,
			"current context has no contract id")
	}
	return id, nil
}

// InvokingContract returns the contract id of the frame directly below
// the top of the stack, i.e. the caller of the currently running
// contract.
func (h *Host) InvokingContract() (types.Hash, error) {
	if len(h.frames) < 2 {
		return types.Hash{}, h.err(core.ErrContext, core.CodeMissingValue,
			"no frames to derive the invoker from")
	}
	below := h.frames[len(h.frames)-2]
	id, ok := below.contractID()
	if !ok {
		return types.Hash{}, h.err(core.ErrContext, core.CodeUnexpectedType,
			"invoker is not a contract")
	}
	return id, nil
}

// currentFrame returns the top frame, or a missing-value context error
// when the stack is empty.
func (h *Host) currentFrame() (Frame, error) {
	if len(h.frames) == 0 {
		return nil, h.err(core.ErrContext, core.CodeMissingValue, "no contract running")
	}
	return h.frames[len(h.frames)-1], nil
}

// currentContractIDOpt resolves the current contract without treating
// an empty stack or a host-function frame as an error. Used by the
// diagnostic emitters.
func (h *Host) currentContractIDOpt() *types.Hash {
	if len(h.frames) == 0 {
		return nil
	}
	id, ok := h.frames[len(h.frames)-1].contractID()
	if !ok {
		return nil
	}
	return &id
}

// err builds a structured error and, when diagnostics are on, records
// an error event for it. Diagnostic failures never mask the error
// being built.
func (h *Host) err(t core.ErrorType, c core.ErrorCode, msg string, args ...types.Val) *core.Error {
	e := core.New(t, c, msg)
	h.errDiagnostics(e, msg, args)
	return e
}
