package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/mNandhu/PACE/pkg/logger"
)

func newModelHandler(pipelineID string) *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			if input == nil {
				return ctx
			}
			ev := logx.Debug().
				Str("pipeline_id", pipelineID).
				Str("model", info.Name).
				Int("messages", len(input.Messages)).
				Int("tools", len(input.Tools))
			if um := lastUserContent(input.Messages); um != "" {
				ev = ev.Str("user", um)
			}
			ev.Msg("Model call started")

			for i, m := range input.Messages {
				if m == nil || strings.TrimSpace(m.Content) == "" {
					continue
				}
				logx.Debug().
					Str("pipeline_id", pipelineID).
					Int("index", i).
					Str("role", string(m.Role)).
					Str("content", strings.TrimSpace(m.Content)).
					Msg("Model context")
			}
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("pipeline_id", pipelineID).Str("model", info.Name)
			if output != nil && output.Message != nil {
				ev = ev.Str("assistant", strings.TrimSpace(output.Message.Content)).
					Int("tool_calls", len(output.Message.ToolCalls))
			}
			if output != nil && output.TokenUsage != nil {
				ev = ev.Int("prompt_tokens", output.TokenUsage.PromptTokens).
					Int("completion_tokens", output.TokenUsage.CompletionTokens)
			}
			ev.Msg("Model call finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("pipeline_id", pipelineID).Str("model", info.Name).Msg("Model call failed")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}
