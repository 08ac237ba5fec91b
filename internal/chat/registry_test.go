package chat_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/brightpath/brainstorm/internal/chat"
	"github.com/brightpath/brainstorm/internal/conversation"
	"github.com/brightpath/brainstorm/internal/testutil"
)

func newRegistry(t *testing.T) *chat.Registry {
	t.Helper()

	factory := func() (*chat.Chat, error) {
		return chat.New(chat.Config{
			Endpoint: testutil.NewScriptedEndpoint("hello"),
			Logger:   testutil.DiscardLogger(),
		})
	}
	r := chat.NewRegistry(factory, testutil.DiscardLogger())
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_CreateAndGet(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)

	id, c, err := r.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c == nil {
		t.Fatal("Create() returned a nil chat")
	}

	got, ok := r.Get(id)
	if !ok || got != c {
		t.Errorf("Get(%s) = %p, %v; want %p, true", id, got, ok, c)
	}
	if _, ok := r.Get(uuid.New()); ok {
		t.Error("Get(unknown) = true, want false")
	}
}

func TestRegistry_DeleteDiscardsConversation(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)

	id, c, err := r.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := r.Delete(id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := r.Get(id); ok {
		t.Error("Get() after delete = true, want false")
	}
	// Delete closes the chat; it must reject further use.
	if _, err := c.Submit("hi"); !errors.Is(err, chat.ErrClosed) {
		t.Errorf("Submit(on deleted chat) error = %v, want ErrClosed", err)
	}

	if err := r.Delete(id); !errors.Is(err, conversation.ErrNotFound) {
		t.Errorf("Delete(gone) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_List(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)

	if got := r.List(); len(got) != 0 {
		t.Errorf("List() on empty registry = %v, want none", got)
	}

	id1, _, err := r.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	id2, _, err := r.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got := r.List()
	if len(got) != 2 {
		t.Fatalf("List() returned %d summaries, want 2", len(got))
	}
	seen := map[uuid.UUID]bool{}
	for _, s := range got {
		seen[s.ID] = true
		if s.State != chat.StateIdle {
			t.Errorf("summary %s state = %v, want idle", s.ID, s.State)
		}
	}
	if !seen[id1] || !seen[id2] {
		t.Errorf("List() IDs = %v, want both %s and %s", got, id1, id2)
	}
}

func TestRegistry_CloseAll(t *testing.T) {
	t.Parallel()
	r := newRegistry(t)

	_, c, err := r.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r.Close()
	if got := r.List(); len(got) != 0 {
		t.Errorf("List() after Close = %v, want none", got)
	}
	if _, err := c.Submit("hi"); !errors.Is(err, chat.ErrClosed) {
		t.Errorf("Submit(after registry close) error = %v, want ErrClosed", err)
	}
}
