package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/graph/prompts"
	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/agent/tokens"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

// HistoryManager replays the Conversation Log into prompt messages.
type HistoryManager struct {
	log      model.ConversationLog
	budgeter *tokens.Budgeter
}

func NewHistoryManager(log model.ConversationLog, budgeter *tokens.Budgeter) *HistoryManager {
	if budgeter == nil {
		budgeter = tokens.NewBudgeter(nil)
	}
	return &HistoryManager{log: log, budgeter: budgeter}
}

func (hm *HistoryManager) Log() model.ConversationLog {
	return hm.log
}

// PruneForPrompt keeps the most recent turns whose user/assistant pairs fit
// within ceiling. It walks newest to oldest and stops at the first pair that
// does not fit, so the kept turns are always a contiguous suffix. The result
// is in chronological order.
func (hm *HistoryManager) PruneForPrompt(history []model.ConversationTurn, ceiling int) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	kept := 0
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		t := history[i]
		cost := hm.budgeter.Count(schema.UserMessage(t.UserInput)) +
			hm.budgeter.Count(schema.AssistantMessage(t.FinalResponse, nil))
		if used+cost > ceiling {
			break
		}
		used += cost
		kept++
	}

	if kept == 0 {
		logx.Debug().Int("ceiling", ceiling).Msg("No conversation history fits within the token limit")
		return nil
	}

	msgs := make([]*schema.Message, 0, kept*2)
	for _, t := range history[len(history)-kept:] {
		msgs = append(msgs,
			schema.UserMessage(t.UserInput),
			schema.AssistantMessage(t.FinalResponse, nil),
		)
	}
	logx.Debug().Int("turns", kept).Int("tokens", used).Msg("Pruned conversation history")
	return msgs
}

// PromptInput carries the per-turn pieces BuildPromptMessages needs.
type PromptInput struct {
	Persona        *model.Persona
	ContextSummary string
	UserInput      string
	// HistoryMaxTokens bounds the replayed history.
	HistoryMaxTokens int
}

// BuildPromptMessages loads the log, prunes it and renders the full prompt.
// A log that cannot be read contributes no history.
func (hm *HistoryManager) BuildPromptMessages(ctx context.Context, in PromptInput) ([]*schema.Message, error) {
	var history []*schema.Message
	if hm.log != nil {
		turns, err := hm.log.Load(ctx)
		if err != nil {
			logx.Warn().Err(err).Msg("Failed to load conversation log, continuing without history")
		} else {
			history = hm.PruneForPrompt(turns, in.HistoryMaxTokens)
		}
	}

	var directives []string
	if in.Persona != nil {
		directives = in.Persona.Directives
	}
	return prompts.RenderConversation(ctx, prompts.ConversationInput{
		Directives:     directives,
		ContextSummary: in.ContextSummary,
		History:        history,
		UserInput:      in.UserInput,
		Character:      in.Persona.DisplayName(),
	})
}

// Record appends one completed turn.
func (hm *HistoryManager) Record(ctx context.Context, userInput, response string) (model.ConversationTurn, error) {
	return hm.log.Append(ctx, userInput, response)
}

func (hm *HistoryManager) Stats(ctx context.Context) (model.ConversationStats, error) {
	turns, err := hm.log.Load(ctx)
	if err != nil {
		return model.ConversationStats{}, err
	}
	return model.StatsOf(turns), nil
}

// Reset backs up and clears the log.
func (hm *HistoryManager) Reset(ctx context.Context) (string, error) {
	return hm.log.Reset(ctx)
}
