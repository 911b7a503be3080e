package openai

import (
	"testing"

	"github.com/harunnryd/sabaki/internal/model/contract"

	"github.com/sashabaranov/go-openai"
)

func TestToMessagesMapsRoles(t *testing.T) {
	got := toMessages([]contract.Message{
		{Role: contract.RoleSystem, Content: "sys"},
		{Role: contract.RoleUser, Content: "hi"},
		{Role: contract.RoleAssistant, Content: "hello"},
		{Role: "execution", Content: "All successful"},
	})

	want := []string{openai.ChatMessageRoleSystem, openai.ChatMessageRoleUser, openai.ChatMessageRoleAssistant, openai.ChatMessageRoleUser}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, role := range want {
		if got[i].Role != role {
			t.Fatalf("message %d: expected role %s, got %s", i, role, got[i].Role)
		}
	}
}
