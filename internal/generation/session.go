package generation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/brightpath/brainstorm/internal/generation")

// Hooks receive stream events from a session. Every callback carries the
// session's generation token; the coordinator compares it against its current
// token and silently drops events from superseded sessions. Callbacks are
// invoked from the session goroutine, one at a time, in arrival order.
type Hooks struct {
	// Delta delivers one streamed text increment for the target message.
	Delta func(token uint64, text string)

	// Complete signals that the stream finished successfully.
	Complete func(token uint64)

	// Fail signals that the endpoint reported an error. Partial content
	// already delivered through Delta stays in place.
	Fail func(token uint64, err error)
}

// Session is one in-flight request against the generation endpoint. At most
// one session per conversation is active; the coordinator enforces that and
// owns every state transition triggered by the hooks.
type Session struct {
	token  uint64
	target uuid.UUID
	cancel context.CancelFunc
	done   chan struct{}
}

// Start begins streaming a reply for the given prompt context into the target
// message and returns immediately. The caller must have appended the
// streaming placeholder identified by target before calling Start.
//
// The stream goroutine exits when the endpoint completes, fails, or the
// session is cancelled; Done is closed on all paths.
func Start(ctx context.Context, ep Endpoint, logger *slog.Logger, token uint64, target uuid.UUID, prompt []Turn, hooks Hooks) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		token:  token,
		target: target,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.run(ctx, ep, logger, prompt, hooks)
	return s
}

func (s *Session) run(ctx context.Context, ep Endpoint, logger *slog.Logger, prompt []Turn, hooks Hooks) {
	defer close(s.done)
	defer s.cancel()

	ctx, span := tracer.Start(ctx, "generation.stream",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("generation.target", s.target.String())))
	defer span.End()

	var deltas int
	for text, err := range ep.Generate(ctx, prompt) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "stream failed")
			logger.Debug("generation stream failed",
				"token", s.token,
				"deltas", deltas,
				"error", err)
			hooks.Fail(s.token, err)
			return
		}
		if text == "" {
			continue
		}
		deltas++
		hooks.Delta(s.token, text)
	}

	span.SetAttributes(attribute.Int("generation.deltas", deltas))
	logger.Debug("generation stream completed", "token", s.token, "deltas", deltas)
	hooks.Complete(s.token)
}

// Cancel asks the transport to stop. The state-level guarantee that no
// further event from this session is applied comes from the coordinator
// bumping its generation token before calling Cancel, not from the transport
// actually stopping.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed when the stream goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Token returns the generation token this session was created with.
func (s *Session) Token() uint64 {
	return s.token
}

// Target returns the ID of the streaming message this session populates.
func (s *Session) Target() uuid.UUID {
	return s.target
}
