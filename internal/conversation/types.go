package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a message.
type Role string

// Valid message roles. System messages are opaque to the mutation API:
// they can be seeded at position 0 but never edited or regenerated.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Status describes the lifecycle of a message's content.
type Status string

const (
	// StatusComplete marks finalized content. User and system messages are
	// always complete.
	StatusComplete Status = "complete"

	// StatusStreaming marks an assistant message whose content is still
	// growing from an active generation session.
	StatusStreaming Status = "streaming"

	// StatusFailed marks an assistant message whose generation errored.
	// Partial content is preserved so the failure stays visible.
	StatusFailed Status = "failed"
)

// Message is a single conversation turn. Once its status is complete or
// failed the value is immutable except through an explicit edit; while
// streaming, Content grows append-only until the session settles.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserMessage builds a complete user message with a fresh identity.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.New(),
		Role:      RoleUser,
		Content:   content,
		Status:    StatusComplete,
		CreatedAt: time.Now(),
	}
}

// NewSystemMessage builds a complete system message with a fresh identity.
func NewSystemMessage(content string) Message {
	return Message{
		ID:        uuid.New(),
		Role:      RoleSystem,
		Content:   content,
		Status:    StatusComplete,
		CreatedAt: time.Now(),
	}
}

// NewPlaceholder builds the empty streaming assistant message appended
// before a generation session starts. Deltas fill it in arrival order.
func NewPlaceholder() Message {
	return Message{
		ID:        uuid.New(),
		Role:      RoleAssistant,
		Status:    StatusStreaming,
		CreatedAt: time.Now(),
	}
}
