package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/mNandhu/PACE/pkg/logger"
)

func newPromptHandler(pipelineID string) *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output == nil {
				return ctx
			}
			logx.Debug().
				Str("pipeline_id", pipelineID).
				Str("prompt", info.Name).
				Int("messages", len(output.Result)).
				Msg("Prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("pipeline_id", pipelineID).Str("prompt", info.Name).Msg("Prompt render failed")
			return ctx
		},
	}
}
