package generation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/brightpath/brainstorm/internal/conversation"
	"github.com/brightpath/brainstorm/internal/generation"
	"github.com/brightpath/brainstorm/internal/testutil"
)

// recorder collects hook invocations for assertions.
type recorder struct {
	mu       sync.Mutex
	deltas   []string
	complete int
	failErr  error
}

func (r *recorder) hooks() generation.Hooks {
	return generation.Hooks{
		Delta: func(_ uint64, text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.deltas = append(r.deltas, text)
		},
		Complete: func(_ uint64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.complete++
		},
		Fail: func(_ uint64, err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.failErr = err
		},
	}
}

func waitDone(t *testing.T, s *generation.Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestSession_DeltasInOrder(t *testing.T) {
	t.Parallel()

	ep := testutil.NewScriptedEndpoint("camp", "aign ", "ideas")
	rec := &recorder{}

	s := generation.Start(context.Background(), ep, testutil.DiscardLogger(), 1, uuid.New(), nil, rec.hooks())
	waitDone(t, s)

	want := []string{"camp", "aign ", "ideas"}
	if len(rec.deltas) != len(want) {
		t.Fatalf("deltas = %v, want %v", rec.deltas, want)
	}
	for i := range want {
		if rec.deltas[i] != want[i] {
			t.Errorf("deltas[%d] = %q, want %q", i, rec.deltas[i], want[i])
		}
	}
	if rec.complete != 1 {
		t.Errorf("complete calls = %d, want 1", rec.complete)
	}
	if rec.failErr != nil {
		t.Errorf("fail called with %v, want none", rec.failErr)
	}
}

func TestSession_FailStopsStream(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("rate limited")
	ep := testutil.NewScriptedEndpoint("partial")
	ep.Err = wantErr
	rec := &recorder{}

	s := generation.Start(context.Background(), ep, testutil.DiscardLogger(), 1, uuid.New(), nil, rec.hooks())
	waitDone(t, s)

	if len(rec.deltas) != 1 || rec.deltas[0] != "partial" {
		t.Errorf("deltas = %v, want [partial]", rec.deltas)
	}
	if !errors.Is(rec.failErr, wantErr) {
		t.Errorf("fail error = %v, want %v", rec.failErr, wantErr)
	}
	if rec.complete != 0 {
		t.Errorf("complete calls = %d, want 0", rec.complete)
	}
}

func TestSession_CancelSurfacesAsFailure(t *testing.T) {
	t.Parallel()

	// A scripted endpoint checks its context before every delta, so
	// cancelling first makes the stream yield context.Canceled.
	ep := testutil.NewScriptedEndpoint("never")
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := generation.Start(ctx, ep, testutil.DiscardLogger(), 1, uuid.New(), nil, rec.hooks())
	waitDone(t, s)

	if len(rec.deltas) != 0 {
		t.Errorf("deltas = %v, want none", rec.deltas)
	}
	if !errors.Is(rec.failErr, context.Canceled) {
		t.Errorf("fail error = %v, want context.Canceled", rec.failErr)
	}
}

func TestSession_Identity(t *testing.T) {
	t.Parallel()

	target := uuid.New()
	ep := testutil.NewScriptedEndpoint()
	s := generation.Start(context.Background(), ep, testutil.DiscardLogger(), 42, target, nil, generation.Hooks{
		Delta:    func(uint64, string) {},
		Complete: func(uint64) {},
		Fail:     func(uint64, error) {},
	})
	waitDone(t, s)

	if got := s.Token(); got != 42 {
		t.Errorf("Token() = %d, want 42", got)
	}
	if got := s.Target(); got != target {
		t.Errorf("Target() = %s, want %s", got, target)
	}
}

func TestTurnsFromMessages(t *testing.T) {
	t.Parallel()

	msgs := []conversation.Message{
		conversation.NewSystemMessage("be concise"),
		conversation.NewUserMessage("slogan ideas?"),
		conversation.NewPlaceholder(), // streaming, not prompt material
	}

	turns := generation.TurnsFromMessages(msgs)
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].Role != conversation.RoleSystem || turns[0].Content != "be concise" {
		t.Errorf("turns[0] = %+v, want system prompt", turns[0])
	}
	if turns[1].Role != conversation.RoleUser || turns[1].Content != "slogan ideas?" {
		t.Errorf("turns[1] = %+v, want user turn", turns[1])
	}
}

// findSpan returns the ended span whose generation.target attribute matches
// the given message ID.
func findSpan(spans []sdktrace.ReadOnlySpan, target uuid.UUID) (sdktrace.ReadOnlySpan, bool) {
	for _, span := range spans {
		for _, attr := range span.Attributes() {
			if attr.Key == "generation.target" && attr.Value.AsString() == target.String() {
				return span, true
			}
		}
	}
	return nil, false
}

func TestSession_RecordsSpan(t *testing.T) {
	// Installs a global tracer provider, so no t.Parallel here.
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	target := uuid.New()
	rec := &recorder{}
	s := generation.Start(context.Background(), testutil.NewScriptedEndpoint("one", "two"), testutil.DiscardLogger(), 1, target, nil, rec.hooks())
	waitDone(t, s)

	span, ok := findSpan(sr.Ended(), target)
	if !ok {
		t.Fatal("no span recorded for session target")
	}
	if got := span.Name(); got != "generation.stream" {
		t.Errorf("span name = %q, want %q", got, "generation.stream")
	}
	var deltas int64 = -1
	for _, attr := range span.Attributes() {
		if attr.Key == "generation.deltas" {
			deltas = attr.Value.AsInt64()
		}
	}
	if deltas != 2 {
		t.Errorf("generation.deltas = %d, want 2", deltas)
	}
}

func TestSession_SpanRecordsFailure(t *testing.T) {
	// Installs a global tracer provider, so no t.Parallel here.
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	ep := testutil.NewScriptedEndpoint("partial")
	ep.Err = errors.New("upstream unavailable")
	target := uuid.New()
	rec := &recorder{}
	s := generation.Start(context.Background(), ep, testutil.DiscardLogger(), 1, target, nil, rec.hooks())
	waitDone(t, s)

	span, ok := findSpan(sr.Ended(), target)
	if !ok {
		t.Fatal("no span recorded for session target")
	}
	if got := span.Status().Code; got != codes.Error {
		t.Errorf("span status = %v, want %v", got, codes.Error)
	}
	if len(span.Events()) == 0 {
		t.Error("span has no recorded error event")
	}
}
