// Package auth tracks authorization state across the invocation stack
// of the execution host. The signature and nonce verification logic
// lives outside this module; what the host depends on is the frame
// push/pop hooks, the opaque snapshot/rollback pair, and the
// recording-mode authentication emulation that runs when the call
// stack empties.
package auth

import (
	"golang.org/x/xerrors"

	"github.com/govm-net/sandbox/types"
)

// Mode selects how the manager treats authorization checks.
type Mode int

const (
	// Enforcing verifies authorizations against provided entries.
	Enforcing Mode = iota
	// Recording collects the authorizations an invocation would need
	// instead of verifying them.
	Recording
)

// Invocation describes one authorized contract invocation, as seen by
// the manager's frame hooks.
type Invocation struct {
	Contract types.Hash
	Function types.Symbol
}

// entry is one recorded or granted authorization.
type entry struct {
	invocation    Invocation
	authenticated bool
	exhausted     bool
}

// Snapshot is an opaque copy of the manager's mutable state, captured
// when a frame is pushed and restored if that frame rolls back.
type Snapshot struct {
	entries []entry
	depth   int
}

// Manager tracks authorization state for a single execution context.
// It is owned by the host and accessed with run-to-completion borrows;
// the busy flag models a borrow already in progress, during which the
// host's frame hooks are silently skipped.
type Manager struct {
	mode    Mode
	stack   []Invocation
	entries []entry
	busy    bool
}

// NewManager creates a manager in the given mode.
func NewManager(mode Mode) *Manager {
	return &Manager{mode: mode}
}

// TryAcquire attempts to take the manager for exclusive use. It
// returns false when the manager is already in use, in which case the
// caller must skip whatever hook it intended to run rather than block.
func (m *Manager) TryAcquire() bool {
	if m.busy {
		return false
	}
	m.busy = true
	return true
}

// Release returns the manager after a successful TryAcquire.
func (m *Manager) Release() {
	if !m.busy {
		panic("auth: release without acquire")
	}
	m.busy = false
}

// IsRecording reports whether the manager runs in recording mode.
func (m *Manager) IsRecording() bool { return m.mode == Recording }

// PushFrame notifies the manager that a frame for the given invocation
// was pushed. Invocations without a contract identity (top-level host
// functions) pass a nil invocation and are tracked only for depth.
func (m *Manager) PushFrame(inv *Invocation) error {
	if inv == nil {
		m.stack = append(m.stack, Invocation{})
		return nil
	}
	if !inv.Function.Valid() {
		return xerrors.Errorf("invalid function symbol %q: %w", inv.Function, errInvalidInvocation)
	}
	m.stack = append(m.stack, *inv)
	if m.mode == Recording {
		m.entries = append(m.entries, entry{invocation: *inv})
	}
	return nil
}

// PopFrame undoes the matching PushFrame. Unbalanced pops are host
// bugs, not recoverable failures.
func (m *Manager) PopFrame() {
	if len(m.stack) == 0 {
		panic("auth: unmatched frame pop")
	}
	m.stack = m.stack[:len(m.stack)-1]
}

// Snapshot captures the manager's mutable state.
func (m *Manager) Snapshot() Snapshot {
	cp := make([]entry, len(m.entries))
	copy(cp, m.entries)
	return Snapshot{entries: cp, depth: len(m.stack)}
}

// Rollback restores a previously captured snapshot.
func (m *Manager) Rollback(s Snapshot) {
	m.entries = make([]entry, len(s.entries))
	copy(m.entries, s.entries)
}

// MaybeEmulateAuthentication marks every recorded authorization as
// authenticated. Called by the host when the frame stack empties; in
// enforcing mode this is a no-op.
func (m *Manager) MaybeEmulateAuthentication() error {
	if m.mode != Recording {
		return nil
	}
	for i := range m.entries {
		m.entries[i].authenticated = true
	}
	return nil
}

// Authorize marks the first unused authorization matching the
// invocation as consumed. In recording mode the authorization is
// granted and recorded instead.
func (m *Manager) Authorize(inv Invocation) error {
	if m.mode == Recording {
		m.entries = append(m.entries, entry{invocation: inv, exhausted: true})
		return nil
	}
	for i := range m.entries {
		e := &m.entries[i]
		if !e.exhausted && e.invocation == inv {
			e.exhausted = true
			return nil
		}
	}
	return xerrors.Errorf("no authorization for %s.%s: %w",
		inv.Contract, inv.Function, errNotAuthorized)
}

// SetEntries seeds the manager with pre-verified authorization entries
// before a top-level invocation. Only meaningful in enforcing mode.
func (m *Manager) SetEntries(invs []Invocation) {
	m.entries = m.entries[:0]
	for _, inv := range invs {
		m.entries = append(m.entries, entry{invocation: inv, authenticated: true})
	}
}

// Recorded returns the invocations collected in recording mode that
// have been authenticated.
func (m *Manager) Recorded() []Invocation {
	var out []Invocation
	for _, e := range m.entries {
		if e.authenticated {
			out = append(out, e.invocation)
		}
	}
	return out
}

// Reset clears all mutable state, keeping the mode.
func (m *Manager) Reset() {
	m.stack = m.stack[:0]
	m.entries = m.entries[:0]
	m.busy = false
}
