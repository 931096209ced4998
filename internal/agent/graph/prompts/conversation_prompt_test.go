package prompts

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestRenderConversationOrder(t *testing.T) {
	history := []*schema.Message{
		schema.UserMessage("earlier question"),
		schema.AssistantMessage("earlier answer", nil),
	}
	msgs, err := RenderConversation(context.Background(), ConversationInput{
		Directives:     []string{"Be kind", "Be brief"},
		ContextSummary: "Relevant context 1: likes tea",
		History:        history,
		UserInput:      "hello {there}",
		Character:      "Ada",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := []struct {
		role    schema.RoleType
		content string
	}{
		{schema.System, "Core Persona Directives:\n- Be kind\n- Be brief"},
		{schema.System, "Relevant Context from Past Conversations:\nRelevant context 1: likes tea"},
		{schema.User, "earlier question"},
		{schema.Assistant, "earlier answer"},
		{schema.User, "hello {there}"},
		{schema.System, "Respond as Ada, keeping in mind all the above context and maintaining consistency with past interactions."},
	}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, w := range want {
		if msgs[i].Role != w.role || msgs[i].Content != w.content {
			t.Errorf("message %d = %s %q, want %s %q", i, msgs[i].Role, msgs[i].Content, w.role, w.content)
		}
	}
}

func TestRenderConversationOmitsEmptyContext(t *testing.T) {
	msgs, err := RenderConversation(context.Background(), ConversationInput{
		Directives: []string{"Be kind"},
		UserInput:  "hi",
		Character:  "Ada",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Role == schema.System && len(m.Content) > 8 && m.Content[:8] == "Relevant" {
			t.Error("context message must be omitted when empty")
		}
	}
}

func TestFallbacks(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{EmptyInputFallback("Sam"), "I'm sorry, I didn't receive any input from you, Sam."},
		{EmptyInputFallback(""), "I'm sorry, I didn't receive any input from you."},
		{ModelErrorFallback("Sam"), "I'm sorry, Sam, I'm having some technical difficulties right now. Please try again in a moment."},
		{ToolLimitFallback("Sam"), "I'm sorry, Sam, I couldn't finish working that out. Could you rephrase or ask me something simpler?"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
