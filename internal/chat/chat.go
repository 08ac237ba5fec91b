package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/brightpath/brainstorm/internal/conversation"
	"github.com/brightpath/brainstorm/internal/generation"
)

// State is the coordinator's generation state.
type State string

const (
	// StateIdle means no generation session is active.
	StateIdle State = "idle"

	// StateGenerating means a session is streaming into the trailing
	// assistant message.
	StateGenerating State = "generating"
)

// Sentinel errors for mutation operations, checked with errors.Is().
var (
	// ErrEmptyMessage indicates a submit or edit with blank content.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrBusy indicates a submit while a generation is in progress. The
	// request is rejected, not queued: at most one outstanding generation.
	ErrBusy = errors.New("generation already in progress")

	// ErrRateLimited indicates the submit rate limiter rejected the request.
	ErrRateLimited = errors.New("submission rate limit exceeded")

	// ErrClosed indicates the chat was closed.
	ErrClosed = errors.New("chat is closed")
)

// Config contains required parameters for a Chat.
type Config struct {
	// Endpoint is the generation service. Required.
	Endpoint generation.Endpoint

	// Logger for debugging (nil = slog.Default()).
	Logger *slog.Logger

	// SystemPrompt, when non-empty, seeds the conversation with a system
	// message that survives ClearAll.
	SystemPrompt string

	// Limiter throttles Submit calls (nil = unlimited). Edits and reloads
	// are user-paced corrections and are not throttled.
	Limiter *rate.Limiter

	// BackgroundCtx outlives individual mutation calls; generation streams
	// run under it so they are not tied to a request context. nil =
	// context.Background().
	BackgroundCtx context.Context //nolint:containedctx // App lifecycle context, not a request context
}

// SubmitLimiter builds the submit rate limiter from a per-minute rate and a
// burst size. A rate of 0 means no throttling and returns nil, which Config
// accepts as "unlimited". Burst is clamped to at least 1 so a positive rate
// never starves every submit.
func SubmitLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

// Chat is the mutation coordinator for one conversation. It is safe for
// concurrent use; all operations return quickly and streaming settles
// asynchronously.
type Chat struct {
	endpoint     generation.Endpoint
	logger       *slog.Logger
	limiter      *rate.Limiter
	systemPrompt string
	bgCtx        context.Context //nolint:containedctx // App lifecycle context, not a request context

	mu      sync.Mutex
	history *conversation.History
	token   uint64 // current generation token; callbacks with older tokens are stale
	active  *generation.Session
	lastErr error
	closed  bool

	subs    map[int]chan Event
	nextSub int
}

// New creates a Chat for one conversation.
func New(cfg Config) (*Chat, error) {
	if cfg.Endpoint == nil {
		return nil, errors.New("generation endpoint is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bgCtx := cfg.BackgroundCtx
	if bgCtx == nil {
		bgCtx = context.Background()
	}

	c := &Chat{
		endpoint:     cfg.Endpoint,
		logger:       logger,
		limiter:      cfg.Limiter,
		systemPrompt: cfg.SystemPrompt,
		bgCtx:        bgCtx,
		history:      conversation.NewHistory(),
		subs:         make(map[int]chan Event),
	}
	c.seedSystemPrompt()
	return c, nil
}

func (c *Chat) seedSystemPrompt() {
	if c.systemPrompt == "" {
		return
	}
	if err := c.history.Append(conversation.NewSystemMessage(c.systemPrompt)); err != nil {
		c.logger.Error("seeding system prompt", "error", err)
	}
}

// Submit appends a user turn and starts generating the reply. It returns the
// ID of the streaming assistant placeholder immediately; completion is
// observed through events or Snapshot.
func (c *Chat) Submit(text string) (uuid.UUID, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return uuid.Nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return uuid.Nil, ErrClosed
	}
	if c.active != nil {
		return uuid.Nil, ErrBusy
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return uuid.Nil, ErrRateLimited
	}

	if err := c.history.Append(conversation.NewUserMessage(text)); err != nil {
		return uuid.Nil, fmt.Errorf("appending user message: %w", err)
	}
	return c.startGenerationLocked()
}

// EditUserMessage replaces the content of a previous user message, discards
// everything after it, and regenerates the reply. Editing with unchanged
// content is a no-op that returns uuid.Nil.
func (c *Chat) EditUserMessage(id uuid.UUID, newContent string) (uuid.UUID, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return uuid.Nil, ErrEmptyMessage
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return uuid.Nil, ErrClosed
	}
	msg, ok := c.history.Message(id)
	if !ok {
		return uuid.Nil, fmt.Errorf("edit message %s: %w", id, conversation.ErrNotFound)
	}
	if msg.Role != conversation.RoleUser {
		return uuid.Nil, fmt.Errorf("edit %s message %s: %w", msg.Role, id, conversation.ErrInvalidRole)
	}
	if msg.Content == newContent {
		return uuid.Nil, nil
	}

	c.cancelActiveLocked()

	// The edited message is a user message, never the trailing placeholder,
	// so its index is stable across the cancel above.
	idx := c.history.FindIndex(id)
	if err := c.history.ReplaceContent(id, newContent); err != nil {
		return uuid.Nil, err
	}
	c.history.TruncateAfter(idx)

	return c.startGenerationLocked()
}

// ReloadAssistantMessage discards the target assistant message and everything
// after it, then regenerates from the remaining history.
func (c *Chat) ReloadAssistantMessage(id uuid.UUID) (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return uuid.Nil, ErrClosed
	}
	msg, ok := c.history.Message(id)
	if !ok {
		return uuid.Nil, fmt.Errorf("reload message %s: %w", id, conversation.ErrNotFound)
	}
	if msg.Role != conversation.RoleAssistant {
		return uuid.Nil, fmt.Errorf("reload %s message %s: %w", msg.Role, id, conversation.ErrInvalidRole)
	}

	return c.reloadLocked(id)
}

// reloadLocked cancels any active session, truncates to just before id, and
// starts a fresh generation. Caller holds c.mu and has validated the target.
func (c *Chat) reloadLocked(id uuid.UUID) (uuid.UUID, error) {
	c.cancelActiveLocked()

	// The cancel may already have dropped id when it was the still-empty
	// streaming placeholder.
	if idx := c.history.FindIndex(id); idx >= 0 {
		c.history.TruncateAfter(idx - 1)
	}

	return c.startGenerationLocked()
}

// ReloadLast regenerates the trailing assistant message. It is a no-op
// returning uuid.Nil when the conversation is empty or does not end in an
// assistant message.
func (c *Chat) ReloadLast() (uuid.UUID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return uuid.Nil, ErrClosed
	}
	last, ok := c.history.Last()
	if !ok || last.Role != conversation.RoleAssistant {
		return uuid.Nil, nil
	}
	return c.reloadLocked(last.ID)
}

// DeleteMessage removes the message and everything after it. No regeneration
// is started.
func (c *Chat) DeleteMessage(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if _, ok := c.history.Message(id); !ok {
		return fmt.Errorf("delete message %s: %w", id, conversation.ErrNotFound)
	}

	c.cancelActiveLocked()
	if idx := c.history.FindIndex(id); idx >= 0 {
		c.history.TruncateAfter(idx - 1)
	}
	c.publishLocked(Event{Kind: EventMutated})
	return nil
}

// ClearAll cancels any active generation and resets the conversation,
// re-seeding the system prompt when one is configured.
func (c *Chat) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.cancelActiveLocked()
	c.history.Clear()
	c.lastErr = nil
	c.seedSystemPrompt()
	c.publishLocked(Event{Kind: EventMutated})
}

// Stop cancels the in-flight generation, if any. Content streamed so far is
// kept and marked complete; a placeholder that never received a delta is
// removed entirely.
func (c *Chat) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelActiveLocked()
}

// CanEdit reports whether id names an existing user message.
func (c *Chat) CanEdit(id uuid.UUID) bool {
	msg, ok := c.history.Message(id)
	return ok && msg.Role == conversation.RoleUser
}

// CanReload reports whether id names an existing assistant message.
func (c *Chat) CanReload(id uuid.UUID) bool {
	msg, ok := c.history.Message(id)
	return ok && msg.Role == conversation.RoleAssistant
}

// Snapshot returns a renderable copy of the conversation.
func (c *Chat) Snapshot() []conversation.Message {
	return c.history.Snapshot()
}

// Len returns the number of messages in the conversation.
func (c *Chat) Len() int {
	return c.history.Len()
}

// State reports whether a generation session is active.
func (c *Chat) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		return StateGenerating
	}
	return StateIdle
}

// Err returns the most recent generation failure, cleared by the next
// successful completion or by ClearAll.
func (c *Chat) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Subscribe registers an event listener. The returned cancel func must be
// called to release the subscription; the channel is closed by cancel or by
// Close. Subscribing to a closed chat returns an already closed channel so a
// late subscriber observes shutdown immediately.
func (c *Chat) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	ch := make(chan Event, eventBufferSize)
	c.subs[id] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Close cancels any active session, closes all subscriptions, and waits for
// the stream goroutine to exit. The chat rejects further mutations.
func (c *Chat) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	s := c.active
	c.cancelActiveLocked()
	for id, sub := range c.subs {
		delete(c.subs, id)
		close(sub)
	}
	c.mu.Unlock()

	if s != nil {
		<-s.Done()
	}
	return nil
}

// startGenerationLocked appends a streaming placeholder and starts a session
// over the current history. Caller holds c.mu with no session active.
func (c *Chat) startGenerationLocked() (uuid.UUID, error) {
	prompt := generation.TurnsFromMessages(c.history.Snapshot())

	placeholder := conversation.NewPlaceholder()
	if err := c.history.Append(placeholder); err != nil {
		return uuid.Nil, fmt.Errorf("appending placeholder: %w", err)
	}

	c.token++
	c.active = generation.Start(c.bgCtx, c.endpoint, c.logger, c.token, placeholder.ID, prompt, generation.Hooks{
		Delta:    c.onDelta,
		Complete: c.onComplete,
		Fail:     c.onFail,
	})

	c.logger.Debug("generation started",
		"token", c.token,
		"target", placeholder.ID,
		"prompt_turns", len(prompt))
	c.publishLocked(Event{Kind: EventMutated, MessageID: placeholder.ID})
	return placeholder.ID, nil
}

// cancelActiveLocked supersedes and cancels the active session, then settles
// its target message: partial content is kept and marked complete, an empty
// placeholder is removed. Caller holds c.mu. No-op when idle.
func (c *Chat) cancelActiveLocked() {
	if c.active == nil {
		return
	}
	s := c.active
	c.active = nil
	c.token++ // straggling callbacks from s are now stale
	s.Cancel()

	target := s.Target()
	msg, ok := c.history.Message(target)
	if ok && msg.Status == conversation.StatusStreaming {
		if msg.Content == "" {
			c.history.TruncateAfter(c.history.FindIndex(target) - 1)
		} else if err := c.history.SetStatus(target, conversation.StatusComplete); err != nil {
			c.logger.Error("settling cancelled message", "target", target, "error", err)
		}
	}

	c.logger.Debug("generation cancelled", "token", s.Token(), "target", target)
	c.publishLocked(Event{Kind: EventCancelled, MessageID: target})
}

// onDelta applies one streamed increment to the session's target message.
func (c *Chat) onDelta(token uint64, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || token != c.token {
		c.logger.Debug("discarding stale delta", "token", token, "current", c.token)
		return
	}
	target := c.active.Target()
	if err := c.history.AppendContent(target, text); err != nil {
		c.logger.Error("applying delta", "target", target, "error", err)
		return
	}
	c.publishLocked(Event{Kind: EventDelta, MessageID: target, Text: text})
}

// onComplete finalizes the target message.
func (c *Chat) onComplete(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || token != c.token {
		c.logger.Debug("discarding stale completion", "token", token, "current", c.token)
		return
	}
	target := c.active.Target()
	c.active = nil
	c.lastErr = nil
	if err := c.history.SetStatus(target, conversation.StatusComplete); err != nil {
		c.logger.Error("finalizing message", "target", target, "error", err)
		return
	}
	c.publishLocked(Event{Kind: EventComplete, MessageID: target})
}

// onFail marks the target message failed, keeping partial content visible.
// Generation failures are never retried automatically; the caller reloads
// explicitly.
func (c *Chat) onFail(token uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || token != c.token {
		c.logger.Debug("discarding stale failure", "token", token, "current", c.token, "error", err)
		return
	}
	target := c.active.Target()
	c.active = nil
	c.lastErr = fmt.Errorf("generation failed: %w", err)
	if statusErr := c.history.SetStatus(target, conversation.StatusFailed); statusErr != nil {
		c.logger.Error("marking message failed", "target", target, "error", statusErr)
		return
	}
	c.logger.Warn("generation failed", "target", target, "error", err)
	c.publishLocked(Event{Kind: EventFailed, MessageID: target, Error: err.Error()})
}

// publishLocked fans an event out to all subscribers, dropping it for any
// whose buffer is full. Caller holds c.mu.
func (c *Chat) publishLocked(ev Event) {
	for _, sub := range c.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}
