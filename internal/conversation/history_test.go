package conversation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestHistory_Append(t *testing.T) {
	t.Parallel()

	t.Run("user then assistant", func(t *testing.T) {
		t.Parallel()
		h := NewHistory()

		if err := h.Append(NewUserMessage("hello")); err != nil {
			t.Fatalf("Append(user) error = %v", err)
		}
		if err := h.Append(NewPlaceholder()); err != nil {
			t.Fatalf("Append(placeholder) error = %v", err)
		}
		if got := h.Len(); got != 2 {
			t.Errorf("Len() = %d, want 2", got)
		}
	})

	t.Run("rejects assistant without user", func(t *testing.T) {
		t.Parallel()
		h := NewHistory()

		err := h.Append(NewPlaceholder())
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("Append(placeholder) error = %v, want ErrInvariant", err)
		}
	})

	t.Run("rejects assistant after seeded system only", func(t *testing.T) {
		t.Parallel()
		h := NewHistory()

		if err := h.Append(NewSystemMessage("be helpful")); err != nil {
			t.Fatalf("Append(system) error = %v", err)
		}
		if err := h.Append(NewPlaceholder()); !errors.Is(err, ErrInvariant) {
			t.Errorf("Append(placeholder) error = %v, want ErrInvariant", err)
		}
	})

	t.Run("rejects duplicate ID", func(t *testing.T) {
		t.Parallel()
		h := NewHistory()

		msg := NewUserMessage("hello")
		if err := h.Append(msg); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := h.Append(msg); !errors.Is(err, ErrInvariant) {
			t.Errorf("Append(duplicate) error = %v, want ErrInvariant", err)
		}
	})

	t.Run("rejects append after streaming message", func(t *testing.T) {
		t.Parallel()
		h := newHistory(t, NewUserMessage("hello"), NewPlaceholder())

		err := h.Append(NewUserMessage("too soon"))
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("Append after streaming error = %v, want ErrInvariant", err)
		}
	})

	t.Run("rejects consecutive assistant messages", func(t *testing.T) {
		t.Parallel()
		h := newHistory(t, NewUserMessage("hello"), completeAssistant("hi"))

		err := h.Append(completeAssistant("hi again"))
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("Append(second assistant) error = %v, want ErrInvariant", err)
		}
	})

	t.Run("rejects streaming non-assistant", func(t *testing.T) {
		t.Parallel()
		h := NewHistory()

		msg := NewUserMessage("hello")
		msg.Status = StatusStreaming
		if err := h.Append(msg); !errors.Is(err, ErrInvariant) {
			t.Errorf("Append(streaming user) error = %v, want ErrInvariant", err)
		}
	})
}

func TestHistory_TruncateAfter(t *testing.T) {
	t.Parallel()

	u1 := NewUserMessage("u1")
	a1 := completeAssistant("a1")
	u2 := NewUserMessage("u2")
	a2 := completeAssistant("a2")

	tests := []struct {
		name    string
		index   int
		wantLen int
	}{
		{name: "keeps prefix", index: 1, wantLen: 2},
		{name: "negative empties", index: -1, wantLen: 0},
		{name: "last index is no-op", index: 3, wantLen: 4},
		{name: "past end is no-op", index: 10, wantLen: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHistory(t, u1, a1, u2, a2)

			h.TruncateAfter(tt.index)
			if got := h.Len(); got != tt.wantLen {
				t.Errorf("Len() after TruncateAfter(%d) = %d, want %d", tt.index, got, tt.wantLen)
			}
		})
	}
}

func TestHistory_ReplaceContent(t *testing.T) {
	t.Parallel()

	msg := NewUserMessage("original")
	h := newHistory(t, msg)

	if err := h.ReplaceContent(msg.ID, "edited"); err != nil {
		t.Fatalf("ReplaceContent() error = %v", err)
	}

	got, ok := h.Message(msg.ID)
	if !ok {
		t.Fatal("Message() not found after replace")
	}
	if got.Content != "edited" {
		t.Errorf("Content = %q, want %q", got.Content, "edited")
	}
	if !got.CreatedAt.Equal(msg.CreatedAt) {
		t.Error("ReplaceContent() changed CreatedAt")
	}

	if err := h.ReplaceContent(uuid.New(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReplaceContent(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestHistory_AppendContent(t *testing.T) {
	t.Parallel()

	h := newHistory(t, NewUserMessage("hello"))
	placeholder := NewPlaceholder()
	if err := h.Append(placeholder); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	for _, delta := range []string{"Hel", "lo ", "there"} {
		if err := h.AppendContent(placeholder.ID, delta); err != nil {
			t.Fatalf("AppendContent(%q) error = %v", delta, err)
		}
	}

	got, _ := h.Message(placeholder.ID)
	if got.Content != "Hello there" {
		t.Errorf("Content = %q, want %q", got.Content, "Hello there")
	}

	if err := h.AppendContent(uuid.New(), "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendContent(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestHistory_Lookups(t *testing.T) {
	t.Parallel()

	u1 := NewUserMessage("u1")
	a1 := completeAssistant("a1")
	h := newHistory(t, u1, a1)

	if got := h.FindIndex(u1.ID); got != 0 {
		t.Errorf("FindIndex(u1) = %d, want 0", got)
	}
	if got := h.FindIndex(uuid.New()); got != -1 {
		t.Errorf("FindIndex(unknown) = %d, want -1", got)
	}
	if !h.IsLast(a1.ID) {
		t.Error("IsLast(a1) = false, want true")
	}
	if h.IsLast(u1.ID) {
		t.Error("IsLast(u1) = true, want false")
	}

	last, ok := h.Last()
	if !ok || last.ID != a1.ID {
		t.Errorf("Last() = %v, %v; want a1", last.ID, ok)
	}
}

func TestHistory_Snapshot(t *testing.T) {
	t.Parallel()

	u1 := NewUserMessage("u1")
	h := newHistory(t, u1)

	snap := h.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("len(Snapshot()) = %d, want 1", len(snap))
	}

	// Mutating the snapshot must not leak into the history.
	snap[0].Content = "tampered"
	got, _ := h.Message(u1.ID)
	if got.Content != "u1" {
		t.Errorf("history content = %q after snapshot mutation, want %q", got.Content, "u1")
	}
}

func TestHistory_Clear(t *testing.T) {
	t.Parallel()

	h := newHistory(t, NewUserMessage("u1"), completeAssistant("a1"))
	h.Clear()
	if got := h.Len(); got != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", got)
	}
}

// newHistory builds a History from messages, failing the test on invariant errors.
func newHistory(t *testing.T, msgs ...Message) *History {
	t.Helper()
	h := NewHistory()
	for _, m := range msgs {
		if err := h.Append(m); err != nil {
			t.Fatalf("Append(%s %s) error = %v", m.Role, m.ID, err)
		}
	}
	return h
}

// completeAssistant builds a finalized assistant message for test fixtures.
func completeAssistant(content string) Message {
	m := NewPlaceholder()
	m.Content = content
	m.Status = StatusComplete
	return m
}
