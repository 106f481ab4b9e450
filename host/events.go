package host

import (
	"github.com/govm-net/sandbox/budget"
	"github.com/govm-net/sandbox/core"
	"github.com/govm-net/sandbox/types"
)

// EventType tags a recorded event.
type EventType int

const (
	// EventSystem is a host-emitted system event.
	EventSystem EventType = iota + 1
	// EventDiagnostic is a contract-attributed diagnostic event.
	EventDiagnostic
	// EventStructuredDebug is a host-internal debug trace event.
	EventStructuredDebug
)

// maxEventTopics bounds the topics vector of an event.
const maxEventTopics = 4

// maxTopicBytesLen bounds byte strings appearing in topics.
const maxTopicBytesLen = 32

// Event is one recorded contract or diagnostic event. Events are
// immutable once recorded; rollback discards a contiguous suffix of
// the log by truncation.
type Event struct {
	Type       EventType
	ContractID *types.Hash
	Topics     types.Val
	Data       types.Val
}

// eventBuffer is the append-only, truncatable event log.
type eventBuffer struct {
	events []Event
}

func (b *eventBuffer) record(e Event) {
	b.events = append(b.events, e)
	eventsRecordedTotal.Inc()
}

func (b *eventBuffer) len() int { return len(b.events) }

// rollback truncates the log to a previously recorded length.
// Truncating to a length beyond the current one is a host bug.
func (b *eventBuffer) rollback(n int) error {
	if n > len(b.events) {
		return core.Newf(core.ErrContext, core.CodeInternalError,
			"event log rollback to %d beyond length %d", n, len(b.events))
	}
	b.events = b.events[:n]
	return nil
}

// Events returns a copy of the recorded event log.
func (h *Host) Events() []Event {
	out := make([]Event, len(h.events.events))
	copy(out, h.events.events)
	return out
}

// EventCount reports the current event log length.
func (h *Host) EventCount() int { return h.events.len() }

// RecordContractEvent validates and appends an event attributed to the
// current contract. Topics must be a vector of at most four elements
// that contains no nested vectors or maps and no byte string longer
// than 32 bytes.
func (h *Host) RecordContractEvent(typ EventType, topics, data types.Val) error {
	if err := h.validateTopics(topics); err != nil {
		return err
	}
	if err := h.budget.Charge(budget.CostRecordEvent, 1); err != nil {
		return err
	}
	h.events.record(Event{
		Type:       typ,
		ContractID: h.currentContractIDOpt(),
		Topics:     topics,
		Data:       data,
	})
	return nil
}

// SystemEvent records a host-emitted system event.
func (h *Host) SystemEvent(topics, data types.Val) error {
	return h.RecordContractEvent(EventSystem, topics, data)
}

// recordDebugEvent appends a structured debug event without topic
// validation or metering. Only the diagnostic emitters use it; they
// construct their own well-formed topics under a free budget scope.
func (h *Host) recordDebugEvent(contractID *types.Hash, topics, data types.Val) {
	h.events.record(Event{
		Type:       EventStructuredDebug,
		ContractID: contractID,
		Topics:     topics,
		Data:       data,
	})
}

func (h *Host) validateTopics(topics types.Val) error {
	elems, err := h.ObjectVec(topics)
	if err != nil {
		return err
	}
	if len(elems) > maxEventTopics {
		return h.err(core.ErrObject, core.CodeExceededLimit, "too many event topics")
	}
	for _, el := range elems {
		handle, ok := el.Handle()
		if !ok {
			continue
		}
		obj, err := h.object(handle)
		if err != nil {
			return err
		}
		switch obj.kind {
		case KindVec, KindMap:
			return h.err(core.ErrObject, core.CodeUnexpectedType,
				"event topic cannot be a container")
		case KindBytes:
			if len(obj.bytes) > maxTopicBytesLen {
				return h.err(core.ErrObject, core.CodeExceededLimit,
					"event topic byte string too long")
			}
		}
	}
	return nil
}
