package builder

// EventType names the semantic events the builder emits. The surrounding UI
// translates them into user-visible notifications; the builder itself renders
// nothing.
type EventType string

const (
	EventStepAdded          EventType = "step_added"
	EventSequenceUpdated    EventType = "sequence_updated"
	EventStepRemoved        EventType = "step_removed"
	EventReorderCommitted   EventType = "reorder_committed"
	EventConflictSuperseded EventType = "conflict_superseded"
	EventValidationFailed   EventType = "validation_failed"
	EventPersistFailed      EventType = "persist_failed"
	EventSequenceReplaced   EventType = "sequence_replaced"
)

// Event is one semantic builder event.
type Event struct {
	Type       EventType         `json:"type"`
	SequenceID uint              `json:"sequence_id"`
	StepID     string            `json:"step_id,omitempty"`
	EditSeq    uint64            `json:"edit_seq,omitempty"`
	Message    string            `json:"message,omitempty"`
	Errors     []ValidationError `json:"errors,omitempty"`
}

// EventSink receives builder events. Called synchronously from the session's
// event loop, so sinks must not block.
type EventSink func(Event)
