// Package budget implements the resource-consumption accounting used
// by the execution host. Every host operation with a non-trivial cost
// charges a typed amount against a fixed budget; exhausting the budget
// fails the charging operation with a structured error.
package budget

import (
	"github.com/govm-net/sandbox/core"
)

// CostType identifies a charged host operation.
type CostType int

const (
	// CostGuardFrame is the fixed cost of protecting the frame stack
	// around a guarded invocation scope.
	CostGuardFrame CostType = iota
	// CostHostMemAlloc is charged per byte when creating host objects.
	CostHostMemAlloc
	// CostVisitObject is charged when dereferencing an object handle.
	CostVisitObject
	// CostRecordEvent is charged per recorded contract event.
	CostRecordEvent
	// CostVMInstantiation is charged per byte of compiled contract
	// code when constructing a virtual machine instance.
	CostVMInstantiation
	// CostVMInvoke is the fixed cost of entering an exported
	// WebAssembly function.
	CostVMInvoke
	// CostMapOp is charged per comparison in ordered map operations.
	CostMapOp
)

// Unit costs per cost type. Calibration of these against real
// execution traces is out of scope; the values only need to be
// non-zero so that exhaustion is reachable.
var unitCost = map[CostType]uint64{
	CostGuardFrame:      50,
	CostHostMemAlloc:    1,
	CostVisitObject:     5,
	CostRecordEvent:     25,
	CostVMInstantiation: 1,
	CostVMInvoke:        100,
	CostMapOp:           2,
}

// Budget tracks resource consumption for a single execution context.
// It is not safe for concurrent use; the host is single-threaded by
// construction.
type Budget struct {
	limit uint64
	used  uint64

	// freeDepth > 0 suspends all charging. Used by diagnostics, which
	// must never be the reason a contract runs out of budget.
	freeDepth int
}

// New creates a budget with the given limit.
func New(limit uint64) *Budget {
	return &Budget{limit: limit}
}

// Charge consumes iterations * unit-cost of the given cost type.
// It fails with a budget/exceeded-limit error once the limit is
// crossed; the budget is left saturated so later charges keep failing.
// Cost arithmetic saturates, so an iteration count large enough to
// wrap uint64 cannot slip under the limit.
func (b *Budget) Charge(t CostType, iterations uint64) error {
	if b.freeDepth > 0 {
		return nil
	}
	unit := unitCost[t]
	cost := unit * iterations
	overflowed := unit != 0 && iterations != 0 && cost/unit != iterations
	if overflowed || cost > b.limit-b.used {
		b.used = b.limit
		return core.Newf(core.ErrBudget, core.CodeExceededLimit,
			"operation exceeds the execution budget (limit %d)", b.limit)
	}
	b.used += cost
	return nil
}

// WithFree runs fn with charging suspended. Nested free scopes are
// allowed; charging resumes when the outermost one exits.
func (b *Budget) WithFree(fn func() error) error {
	b.freeDepth++
	defer func() { b.freeDepth-- }()
	return fn()
}

// Used reports the consumed amount.
func (b *Budget) Used() uint64 { return b.used }

// Remaining reports the unconsumed amount.
func (b *Budget) Remaining() uint64 { return b.limit - b.used }
