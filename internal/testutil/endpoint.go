// Package testutil provides shared test doubles for the brainstorm core.
package testutil

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/brightpath/brainstorm/internal/generation"
)

// ScriptedEndpoint is a generation.Endpoint that replies to every request
// with a fixed delta script followed by successful completion. When Err is
// set, it is yielded after the script instead of completing.
//
// Thread-safe for concurrent use; all prompts are recorded for assertions.
type ScriptedEndpoint struct {
	Deltas []string
	Err    error

	mu    sync.Mutex
	calls [][]generation.Turn
}

// NewScriptedEndpoint creates an endpoint that streams the given deltas.
func NewScriptedEndpoint(deltas ...string) *ScriptedEndpoint {
	return &ScriptedEndpoint{Deltas: deltas}
}

// Generate implements generation.Endpoint.
func (e *ScriptedEndpoint) Generate(ctx context.Context, turns []generation.Turn) iter.Seq2[string, error] {
	e.mu.Lock()
	cp := make([]generation.Turn, len(turns))
	copy(cp, turns)
	e.calls = append(e.calls, cp)
	e.mu.Unlock()

	return func(yield func(string, error) bool) {
		for _, d := range e.Deltas {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			if !yield(d, nil) {
				return
			}
		}
		if e.Err != nil {
			yield("", e.Err)
		}
	}
}

// Calls returns a copy of every prompt context the endpoint received.
func (e *ScriptedEndpoint) Calls() [][]generation.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([][]generation.Turn, len(e.calls))
	copy(cp, e.calls)
	return cp
}

// ManualEndpoint is a generation.Endpoint whose streams are driven step by
// step from the test. Each Generate call blocks until the test fetches the
// corresponding *ManualStream and emits deltas, an error, or completion.
//
// Emission is synchronous: Emit returns only after the consumer has fully
// processed the delta, which makes interleaving tests deterministic without
// sleeps.
type ManualEndpoint struct {
	mu      sync.Mutex
	calls   [][]generation.Turn
	streams chan *ManualStream
}

// NewManualEndpoint creates a manual endpoint able to buffer pending streams.
func NewManualEndpoint() *ManualEndpoint {
	return &ManualEndpoint{streams: make(chan *ManualStream, 8)}
}

// Generate implements generation.Endpoint.
func (e *ManualEndpoint) Generate(ctx context.Context, turns []generation.Turn) iter.Seq2[string, error] {
	e.mu.Lock()
	cp := make([]generation.Turn, len(turns))
	copy(cp, turns)
	e.calls = append(e.calls, cp)
	e.mu.Unlock()

	s := &ManualStream{
		events: make(chan manualEvent),
		acks:   make(chan struct{}),
	}
	e.streams <- s

	return func(yield func(string, error) bool) {
		// Deliberately ignores ctx: a cancelled transport may still push a
		// straggling delta, which is exactly the race the token mechanism
		// must absorb.
		for ev := range s.events {
			switch {
			case ev.err != nil:
				yield("", ev.err)
				s.acks <- struct{}{}
				return
			case ev.done:
				s.acks <- struct{}{}
				return
			default:
				ok := yield(ev.text, nil)
				s.acks <- struct{}{}
				if !ok {
					return
				}
			}
		}
	}
}

// Calls returns a copy of every prompt context the endpoint received.
func (e *ManualEndpoint) Calls() [][]generation.Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([][]generation.Turn, len(e.calls))
	copy(cp, e.calls)
	return cp
}

// NextStream returns the stream for the next Generate call, failing the test
// if none shows up in time.
func (e *ManualEndpoint) NextStream(t *testing.T) *ManualStream {
	t.Helper()
	select {
	case s := <-e.streams:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a generation stream")
		return nil
	}
}

type manualEvent struct {
	text string
	err  error
	done bool
}

// ManualStream drives a single Generate call.
type ManualStream struct {
	events chan manualEvent
	acks   chan struct{}
}

// Emit delivers one delta and blocks until the consumer processed it.
func (s *ManualStream) Emit(text string) {
	s.events <- manualEvent{text: text}
	<-s.acks
}

// Fail terminates the stream with err.
func (s *ManualStream) Fail(err error) {
	s.events <- manualEvent{err: err}
	<-s.acks
}

// Finish terminates the stream successfully.
func (s *ManualStream) Finish() {
	s.events <- manualEvent{done: true}
	<-s.acks
}
