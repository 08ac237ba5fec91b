// Package generation drives single request/response cycles against an
// external text-generation endpoint.
//
// The endpoint is an abstract collaborator: given the prompt context (the
// conversation prefix) it produces an in-order sequence of text deltas that
// ends in either success or a typed failure, and honors out-of-band
// cancellation through its context. [Session] wraps one such cycle and feeds
// deltas back to the chat coordinator through token-tagged [Hooks].
package generation

import (
	"context"
	"iter"

	"github.com/brightpath/brainstorm/internal/conversation"
)

// Turn is one prompt-context element sent to the endpoint.
type Turn struct {
	Role    conversation.Role
	Content string
}

// Endpoint is the external generation service.
//
// Generate returns the reply as a delta sequence consumed with
// range-over-func. Iteration ends when the stream completes; a mid-stream
// failure is yielded as a non-nil error and terminates the sequence. The
// transport delivers deltas for one stream in order, so consumers apply them
// as they arrive without reordering or buffering.
//
// Cancelling ctx asks the transport to stop. Cancellation is best-effort at
// that level: a straggling delta may still be yielded afterwards, and callers
// must be prepared to discard it.
type Endpoint interface {
	Generate(ctx context.Context, turns []Turn) iter.Seq2[string, error]
}

// TurnsFromMessages converts a history snapshot into prompt-context turns.
// Streaming and failed messages carry no finalized content and are skipped.
func TurnsFromMessages(msgs []conversation.Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		if m.Status != conversation.StatusComplete {
			continue
		}
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
