package gemini

import (
	"testing"

	"google.golang.org/genai"

	"github.com/brightpath/brainstorm/internal/conversation"
	"github.com/brightpath/brainstorm/internal/generation"
)

func TestBuildContents(t *testing.T) {
	t.Parallel()

	turns := []generation.Turn{
		{Role: conversation.RoleSystem, Content: "be creative"},
		{Role: conversation.RoleUser, Content: "spring campaign ideas"},
		{Role: conversation.RoleAssistant, Content: "plant a tree per sale"},
		{Role: conversation.RoleUser, Content: "cheaper options"},
	}

	contents, system := buildContents(turns)

	if system != "be creative" {
		t.Errorf("system instruction = %q, want %q", system, "be creative")
	}
	wantRoles := []genai.Role{genai.RoleUser, genai.RoleModel, genai.RoleUser}
	if len(contents) != len(wantRoles) {
		t.Fatalf("contents length = %d, want %d", len(contents), len(wantRoles))
	}
	for i, want := range wantRoles {
		if genai.Role(contents[i].Role) != want {
			t.Errorf("contents[%d].Role = %q, want %q", i, contents[i].Role, want)
		}
	}
	if got := contents[0].Parts[0].Text; got != "spring campaign ideas" {
		t.Errorf("contents[0] text = %q", got)
	}
}

func TestBuildContents_MultipleSystemTurns(t *testing.T) {
	t.Parallel()

	turns := []generation.Turn{
		{Role: conversation.RoleSystem, Content: "one"},
		{Role: conversation.RoleSystem, Content: "two"},
	}

	contents, system := buildContents(turns)
	if len(contents) != 0 {
		t.Errorf("contents length = %d, want 0", len(contents))
	}
	if system != "one\n\ntwo" {
		t.Errorf("system instruction = %q", system)
	}
}
