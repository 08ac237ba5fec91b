package chat

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/brightpath/brainstorm/internal/conversation"
)

// Summary is a registry listing entry.
type Summary struct {
	ID           uuid.UUID `json:"id"`
	State        State     `json:"state"`
	MessageCount int       `json:"messageCount"`
}

// Registry holds the live conversations of one server process, keyed by
// conversation ID. Conversations are in-memory only; disposing one discards
// its history.
//
// Registry is safe for concurrent use.
type Registry struct {
	factory func() (*Chat, error)
	logger  *slog.Logger

	mu    sync.RWMutex
	chats map[uuid.UUID]*Chat
}

// NewRegistry creates a Registry. factory builds a fresh coordinator per
// conversation and is required; logger may be nil.
func NewRegistry(factory func() (*Chat, error), logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		factory: factory,
		logger:  logger,
		chats:   make(map[uuid.UUID]*Chat),
	}
}

// Create starts a new conversation and returns its ID.
func (r *Registry) Create() (uuid.UUID, *Chat, error) {
	c, err := r.factory()
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("creating conversation: %w", err)
	}

	id := uuid.New()
	r.mu.Lock()
	r.chats[id] = c
	r.mu.Unlock()

	r.logger.Debug("conversation created", "id", id)
	return id, c, nil
}

// Get returns the conversation with the given ID.
func (r *Registry) Get(id uuid.UUID) (*Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chats[id]
	return c, ok
}

// Delete closes and removes a conversation. It returns
// conversation.ErrNotFound when the ID is unknown.
func (r *Registry) Delete(id uuid.UUID) error {
	r.mu.Lock()
	c, ok := r.chats[id]
	if ok {
		delete(r.chats, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("conversation %s: %w", id, conversation.ErrNotFound)
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("closing conversation %s: %w", id, err)
	}
	r.logger.Debug("conversation deleted", "id", id)
	return nil
}

// List returns a summary of every live conversation.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.chats))
	for id, c := range r.chats {
		out = append(out, Summary{
			ID:           id,
			State:        c.State(),
			MessageCount: c.Len(),
		})
	}
	return out
}

// Close closes every conversation. Used on server shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	chats := r.chats
	r.chats = make(map[uuid.UUID]*Chat)
	r.mu.Unlock()

	for id, c := range chats {
		if err := c.Close(); err != nil {
			r.logger.Warn("closing conversation", "id", id, "error", err)
		}
	}
}
