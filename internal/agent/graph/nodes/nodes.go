package nodes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/mNandhu/PACE/internal/agent/graph/conversations"
	"github.com/mNandhu/PACE/internal/agent/graph/prompts"
	"github.com/mNandhu/PACE/internal/agent/graph/tools"
	"github.com/mNandhu/PACE/internal/agent/memory"
	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/agent/recall"
	"github.com/mNandhu/PACE/internal/agent/tokens"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

var errNoPersona = errors.New("persona is not configured")

// Deps are the collaborators shared by every node of one compiled graph.
type Deps struct {
	Gateway   *memory.Gateway
	Assembler *recall.Assembler
	History   *conversations.HistoryManager
	ChatModel *ChatModel
	Budgeter  *tokens.Budgeter
	Tools     *compose.ToolsNode

	Persona  *model.Persona
	UserName string

	MaxMemories      int
	IncludeRelations bool
	Rerank           bool
	HistoryMaxTokens int
	PromptMaxTokens  int
	MaxToolCycles    int
}

// NewStartNode creates the state for one run.
func NewStartNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*model.PipelineState, error) {
		start := time.Now()
		id := in.PipelineID
		if id == "" {
			id = uuid.NewString()
		}
		state := &model.PipelineState{
			UserInput: strings.TrimSpace(in.UserInput),
			SessionID: in.SessionID,
			Persona:   d.Persona,
			UserName:  d.UserName,
			Metadata: model.ProcessingMetadata{
				PipelineID:  id,
				StartTime:   start,
				NodeTimings: map[string]time.Duration{},
			},
		}
		defer track(state, NodeStart, start)

		state.Metadata.Record(NodeStart, model.OutcomeSuccess, nil)
		logx.Debug().
			Str("pipeline_id", id).
			Str("session_id", in.SessionID).
			Int("input_chars", len(state.UserInput)).
			Msg("Pipeline started")
		return state, nil
	})
}

// NewIdentifyContextNode retrieves long-term memories for the input. Any
// failure leaves the context empty and the turn continues.
func NewIdentifyContextNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.PipelineState) (*model.PipelineState, error) {
		defer track(state, NodeIdentifyContext, time.Now())

		state.ContextSummary = ""
		if state.UserInput == "" {
			logx.Debug().Str("pipeline_id", state.Metadata.PipelineID).Msg("No input, skipping memory retrieval")
			state.Metadata.Record(NodeIdentifyContext, model.OutcomeSkipped, nil)
			return state, nil
		}
		if d.Gateway == nil {
			state.Metadata.Record(NodeIdentifyContext, model.OutcomeDegraded, errors.New("memory gateway is not configured"))
			return state, nil
		}

		res, err := d.Gateway.Search(ctx, state.UserInput, d.MaxMemories)
		if err != nil {
			logx.Warn().Err(err).Str("pipeline_id", state.Metadata.PipelineID).Msg("Memory retrieval failed, continuing without context")
			state.Metadata.Record(NodeIdentifyContext, model.OutcomeDegraded, err)
			return state, nil
		}

		lines := d.Assembler.Build(ctx, res, recall.BuildOptions{
			IncludeRelations: d.IncludeRelations,
			Rerank:           d.Rerank,
			Query:            state.UserInput,
		})
		state.ContextSummary = strings.Join(lines, "\n")
		state.Metadata.ContextHits = res.Len()
		state.Metadata.Record(NodeIdentifyContext, model.OutcomeSuccess, nil)

		logx.Debug().
			Str("pipeline_id", state.Metadata.PipelineID).
			Int("hits", res.Len()).
			Int("lines", len(lines)).
			Msg("Context identified")
		return state, nil
	})
}

// NewGenerateNode calls the response model. On the first visit it builds the
// prompt; on later visits it continues from the tool results.
func NewGenerateNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.PipelineState) (*model.PipelineState, error) {
		defer track(state, NodeGenerate, time.Now())
		state.PendingToolCalls = nil

		if state.UserInput == "" {
			state.FinalResponse = prompts.EmptyInputFallback(state.UserName)
			state.Metadata.Record(NodeGenerate, model.OutcomeSkipped, nil)
			return state, nil
		}
		if state.Persona == nil {
			state.FinalResponse = prompts.ConfigurationFallback()
			state.Metadata.Record(NodeGenerate, model.OutcomeFatal, errNoPersona)
			logx.Error().Str("pipeline_id", state.Metadata.PipelineID).Msg("No persona configured")
			return state, nil
		}

		if len(state.Messages) == 0 {
			pctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
				Name:      "ConversationPrompt",
				Type:      "Default",
				Component: components.ComponentOfPrompt,
			})
			msgs, err := d.History.BuildPromptMessages(pctx, conversations.PromptInput{
				Persona:          state.Persona,
				ContextSummary:   state.ContextSummary,
				UserInput:        state.UserInput,
				HistoryMaxTokens: d.HistoryMaxTokens,
			})
			if err != nil {
				return fail(state, err), nil
			}
			state.Messages = msgs
		}

		if d.PromptMaxTokens > 0 && d.Budgeter != nil {
			state.Messages = dropOrphanToolResults(d.Budgeter.Prune(state.Messages, d.PromptMaxTokens))
		}

		mctx := callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
			Name:      d.ChatModel.Name,
			Type:      "ResponseModel",
			Component: components.ComponentOfChatModel,
		})
		state.Metadata.ModelCalls++
		out, err := d.ChatModel.Model.Generate(mctx, state.Messages)
		if err != nil {
			return fail(state, err), nil
		}
		if out == nil {
			return fail(state, errors.New("model returned no message")), nil
		}

		accountUsage(state, d.ChatModel.Name, out)
		normalizeToolCallIDs(state, out)
		state.Messages = append(state.Messages, out)

		if len(out.ToolCalls) > 0 {
			if toolLimitReached(state, d.MaxToolCycles) {
				logx.Warn().
					Str("pipeline_id", state.Metadata.PipelineID).
					Int("tool_cycles", state.Metadata.ToolCycles).
					Msg("Tool cycle limit reached, ending turn")
				state.FinalResponse = prompts.ToolLimitFallback(state.UserName)
				state.Metadata.Record(NodeGenerate, model.OutcomeDegraded, errors.New("tool cycle limit reached"))
				return state, nil
			}
			state.PendingToolCalls = out
			state.FinalResponse = out.Content
			state.Metadata.Record(NodeGenerate, model.OutcomeSuccess, nil)
			logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
			return state, nil
		}

		state.FinalResponse = out.Content
		state.Metadata.Record(NodeGenerate, model.OutcomeSuccess, nil)
		logx.Debug().Str("pipeline_id", state.Metadata.PipelineID).Msg("AI response ready")
		return state, nil
	})
}

func fail(state *model.PipelineState, err error) *model.PipelineState {
	logx.Error().Err(err).Str("pipeline_id", state.Metadata.PipelineID).Msg("Response generation failed")
	state.FinalResponse = prompts.ModelErrorFallback(state.UserName)
	state.PendingToolCalls = nil
	state.Metadata.Record(NodeGenerate, model.OutcomeFatal, err)
	return state
}

// NewToolsCondition routes to TOOLS while the last reply asks for tools.
func NewToolsCondition() func(context.Context, *model.PipelineState) (string, error) {
	return func(ctx context.Context, state *model.PipelineState) (string, error) {
		if hasPendingToolCalls(state) {
			return NodeTools, nil
		}
		return NodeUpdateMemory, nil
	}
}

// NewToolsNode runs the pending tool calls and appends their results.
func NewToolsNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.PipelineState) (*model.PipelineState, error) {
		defer track(state, NodeTools, time.Now())

		call := state.PendingToolCalls
		state.PendingToolCalls = nil
		if call == nil || len(call.ToolCalls) == 0 {
			state.Metadata.Record(NodeTools, model.OutcomeSkipped, nil)
			return state, nil
		}
		state.Metadata.ToolCycles++

		logx.Debug().
			Str("pipeline_id", state.Metadata.PipelineID).
			Int("tool_cycle", state.Metadata.ToolCycles).
			Int("tool_count", len(call.ToolCalls)).
			Msg("Tool execution attempt")

		results, err := d.Tools.Invoke(ctx, call)
		if err != nil {
			logx.Warn().Err(err).Str("pipeline_id", state.Metadata.PipelineID).Msg("Tools node failed, reporting errors to the model")
			results = make([]*schema.Message, 0, len(call.ToolCalls))
			for _, tc := range call.ToolCalls {
				results = append(results, schema.ToolMessage(tools.ErrorPayload(tc.Function.Name, err.Error()), tc.ID))
			}
			state.Messages = append(state.Messages, results...)
			state.Metadata.Record(NodeTools, model.OutcomeDegraded, err)
			return state, nil
		}

		state.Messages = append(state.Messages, results...)
		state.Metadata.Record(NodeTools, model.OutcomeSuccess, nil)
		return state, nil
	})
}

// NewUpdateMemoryNode writes the finished turn to the log and to long-term
// memory. A log failure does not stop the memory write, and a memory failure
// does not roll back the log.
func NewUpdateMemoryNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, state *model.PipelineState) (*model.PipelineState, error) {
		defer track(state, NodeUpdateMemory, time.Now())

		if state.UserInput == "" || strings.TrimSpace(state.FinalResponse) == "" {
			state.Metadata.Record(NodeUpdateMemory, model.OutcomeSkipped, nil)
			return state, nil
		}

		var errs []error
		if d.History != nil {
			if _, err := d.History.Record(ctx, state.UserInput, state.FinalResponse); err != nil {
				errs = append(errs, err)
			} else {
				state.Metadata.LogUpdated = true
			}
		}
		if d.Gateway != nil {
			if _, err := d.Gateway.AddTurn(ctx, state.UserInput, state.FinalResponse); err != nil {
				errs = append(errs, err)
			} else {
				state.Metadata.MemoryUpdated = true
			}
		}

		if err := errors.Join(errs...); err != nil {
			state.Metadata.MemoryUpdateErr = err.Error()
			state.Metadata.Record(NodeUpdateMemory, model.OutcomeDegraded, err)
			logx.Warn().Err(err).Str("pipeline_id", state.Metadata.PipelineID).Msg("Turn was not fully persisted")
			return state, nil
		}

		state.Metadata.Record(NodeUpdateMemory, model.OutcomeSuccess, nil)
		logx.Debug().Str("pipeline_id", state.Metadata.PipelineID).Msg("Turn persisted")
		return state, nil
	})
}
