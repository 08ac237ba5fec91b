package chat

import "github.com/google/uuid"

// eventBufferSize is sized for a ~1.5s delta burst so a slow consumer does
// not immediately start losing events. Delivery is best-effort: when a
// subscriber's buffer is full, events are dropped and the subscriber is
// expected to resynchronize from Snapshot.
const eventBufferSize = 100

// EventKind discriminates conversation events.
type EventKind string

const (
	// EventDelta carries one streamed text increment for a message.
	EventDelta EventKind = "delta"

	// EventComplete signals that the trailing assistant message finalized.
	EventComplete EventKind = "complete"

	// EventFailed signals that generation errored; the target message is
	// marked failed with its partial content intact.
	EventFailed EventKind = "failed"

	// EventCancelled signals that an in-flight generation was stopped.
	EventCancelled EventKind = "cancelled"

	// EventMutated signals a structural change (submit, edit, reload,
	// delete, clear); subscribers should re-read the snapshot.
	EventMutated EventKind = "mutated"
)

// Event is a conversation state change notification.
type Event struct {
	Kind      EventKind `json:"kind"`
	MessageID uuid.UUID `json:"messageId,omitzero"`
	Text      string    `json:"text,omitempty"`
	Error     string    `json:"error,omitempty"`
}
