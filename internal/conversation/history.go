package conversation

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// History owns the ordered message sequence of one conversation.
//
// The zero value is NOT useful - use NewHistory() to create instances.
type History struct {
	mu       sync.RWMutex
	messages []Message
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{messages: make([]Message, 0)}
}

// Append adds msg to the end of the sequence after checking the
// conversation invariants. It returns ErrInvariant when the append would
// duplicate an ID, stack a second streaming message, orphan an assistant
// reply, or place two assistant messages back to back.
func (h *History) Append(msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.ID == uuid.Nil {
		return fmt.Errorf("%w: message has no ID", ErrInvariant)
	}
	for i := range h.messages {
		if h.messages[i].ID == msg.ID {
			return fmt.Errorf("%w: duplicate message ID %s", ErrInvariant, msg.ID)
		}
	}

	// Only assistant messages may stream, and a streaming message is always
	// the trailing one, so appending anything after it is invalid.
	if msg.Status == StatusStreaming && msg.Role != RoleAssistant {
		return fmt.Errorf("%w: %s message cannot stream", ErrInvariant, msg.Role)
	}
	if n := len(h.messages); n > 0 && h.messages[n-1].Status == StatusStreaming {
		return fmt.Errorf("%w: cannot append after a streaming message", ErrInvariant)
	}

	if msg.Role == RoleAssistant {
		if !h.hasUserLocked() {
			return fmt.Errorf("%w: assistant message without a preceding user message", ErrInvariant)
		}
		if n := len(h.messages); n > 0 && h.messages[n-1].Role == RoleAssistant {
			return fmt.Errorf("%w: consecutive assistant messages", ErrInvariant)
		}
	}

	h.messages = append(h.messages, msg)
	return nil
}

// hasUserLocked reports whether any user message exists. Caller holds h.mu.
func (h *History) hasUserLocked() bool {
	for i := range h.messages {
		if h.messages[i].Role == RoleUser {
			return true
		}
	}
	return false
}

// TruncateAfter keeps messages [0..index] inclusive and discards the rest.
// Negative index empties the history; an index at or past the end is a no-op.
func (h *History) TruncateAfter(index int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if index >= len(h.messages)-1 {
		return
	}
	if index < 0 {
		h.messages = h.messages[:0]
		return
	}
	h.messages = h.messages[:index+1]
}

// ReplaceContent replaces the content of an existing message in place.
// Provenance (ID, role, createdAt) is untouched. Returns ErrNotFound when
// id is absent.
func (h *History) ReplaceContent(id uuid.UUID, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.messages {
		if h.messages[i].ID == id {
			h.messages[i].Content = content
			return nil
		}
	}
	return fmt.Errorf("replace content %s: %w", id, ErrNotFound)
}

// AppendContent appends a streamed delta to the target message's content,
// preserving monotonic growth while the message streams.
func (h *History) AppendContent(id uuid.UUID, delta string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.messages {
		if h.messages[i].ID == id {
			h.messages[i].Content += delta
			return nil
		}
	}
	return fmt.Errorf("append content %s: %w", id, ErrNotFound)
}

// SetStatus transitions the status of an existing message.
func (h *History) SetStatus(id uuid.UUID, status Status) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.messages {
		if h.messages[i].ID == id {
			h.messages[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("set status %s: %w", id, ErrNotFound)
}

// FindIndex returns the position of id, or -1 when absent.
func (h *History) FindIndex(id uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := range h.messages {
		if h.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// IsLast reports whether id identifies the trailing message.
func (h *History) IsLast(id uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := len(h.messages)
	return n > 0 && h.messages[n-1].ID == id
}

// Message returns the message with the given id.
func (h *History) Message(id uuid.UUID) (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := range h.messages {
		if h.messages[i].ID == id {
			return h.messages[i], true
		}
	}
	return Message{}, false
}

// Last returns the trailing message.
func (h *History) Last() (Message, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.messages) == 0 {
		return Message{}, false
	}
	return h.messages[len(h.messages)-1], true
}

// Len returns the number of messages.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

// Snapshot returns a value copy of the sequence for rendering. Callers never
// hold a live reference into the history.
func (h *History) Snapshot() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Clear removes all messages.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = h.messages[:0]
}
