package observers

import (
	"context"
	"errors"
	"io"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/mNandhu/PACE/pkg/logger"
)

func newToolHandler(pipelineID string) *callbackHelper.ToolCallbackHandler {
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ev := logx.Info().Str("pipeline_id", pipelineID).Str("tool", info.Name)
			if input != nil {
				ev = ev.Str("arguments", input.ArgumentsInJSON)
			}
			ev.Msg("Tool started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			ev := logx.Debug().Str("pipeline_id", pipelineID).Str("tool", info.Name)
			if output != nil {
				ev = ev.Str("response", output.Response)
			}
			ev.Msg("Tool finished")
			return ctx
		},
		OnEndWithStreamOutput: func(ctx context.Context, info *einocb.RunInfo, output *schema.StreamReader[*tool.CallbackOutput]) context.Context {
			go func() {
				defer output.Close()
				chunks := 0
				for {
					_, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						logx.Warn().Err(err).Str("tool", info.Name).Msg("Tool stream aborted")
						return
					}
					chunks++
				}
				logx.Debug().Str("pipeline_id", pipelineID).Str("tool", info.Name).Int("chunks", chunks).Msg("Tool stream finished")
			}()
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("pipeline_id", pipelineID).Str("tool", info.Name).Msg("Tool failed")
			return ctx
		},
	}
}
