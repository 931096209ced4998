package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

const (
	directivesHeader = "Core Persona Directives:"
	contextHeader    = "Relevant Context from Past Conversations:"
)

// ConversationInput is everything the response prompt is assembled from.
type ConversationInput struct {
	Directives     []string
	ContextSummary string
	History        []*schema.Message
	UserInput      string
	Character      string
}

// conversationTemplate lays the prompt out in a fixed order: persona,
// retrieved context, history, the new input, then the response instruction.
var conversationTemplate = prompt.FromMessages(
	schema.FString,
	schema.MessagesPlaceholder("persona", true),
	schema.MessagesPlaceholder("context", true),
	schema.MessagesPlaceholder("history", true),
	schema.MessagesPlaceholder("input", true),
	schema.MessagesPlaceholder("instruction", true),
)

// RenderConversation builds the message list for the response model and
// triggers prompt callbacks. Empty sections are left out.
func RenderConversation(ctx context.Context, in ConversationInput) ([]*schema.Message, error) {
	vars := map[string]any{}
	if msg := DirectivesMessage(in.Directives); msg != nil {
		vars["persona"] = []*schema.Message{msg}
	}
	if msg := ContextMessage(in.ContextSummary); msg != nil {
		vars["context"] = []*schema.Message{msg}
	}
	if len(in.History) > 0 {
		vars["history"] = in.History
	}
	if in.UserInput != "" {
		vars["input"] = []*schema.Message{schema.UserMessage(in.UserInput)}
	}
	if in.Character != "" {
		vars["instruction"] = []*schema.Message{InstructionMessage(in.Character)}
	}

	msgs, err := conversationTemplate.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("conversation prompt render: %w", err)
	}
	return msgs, nil
}

func DirectivesMessage(directives []string) *schema.Message {
	if len(directives) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(directivesHeader)
	for _, d := range directives {
		b.WriteString("\n- ")
		b.WriteString(d)
	}
	return schema.SystemMessage(b.String())
}

func ContextMessage(summary string) *schema.Message {
	if strings.TrimSpace(summary) == "" {
		return nil
	}
	return schema.SystemMessage(contextHeader + "\n" + summary)
}

func InstructionMessage(character string) *schema.Message {
	return schema.SystemMessage(fmt.Sprintf(
		"Respond as %s, keeping in mind all the above context and maintaining consistency with past interactions.",
		character,
	))
}
