package tools

import (
	"context"
	"encoding/json"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	logx "github.com/mNandhu/PACE/pkg/logger"
)

// safeTool turns a failing run into an {"error": ...} payload so the model
// sees the failure as the tool's answer.
type safeTool struct {
	inner tool.InvokableTool
}

func (s *safeTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	return s.inner.Info(ctx)
}

func (s *safeTool) InvokableRun(ctx context.Context, args string, opts ...tool.Option) (string, error) {
	out, err := s.inner.InvokableRun(ctx, args, opts...)
	if err == nil {
		return out, nil
	}
	name := ""
	if info, infoErr := s.inner.Info(ctx); infoErr == nil {
		name = info.Name
	}
	logx.Warn().Err(err).Str("tool", name).Str("arguments", args).Msg("Tool returned an error")
	return ErrorPayload(name, err.Error()), nil
}

// ErrorPayload is the tool-role content reported for a failed call.
func ErrorPayload(name, msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg, "tool": name})
	return string(b)
}

func safe(t tool.InvokableTool) tool.BaseTool {
	return &safeTool{inner: t}
}
