package llm

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/retry"
)

// RetryingChatModel retries rate-limited calls of the wrapped model with
// exponential backoff. Other errors pass through on the first attempt.
type RetryingChatModel struct {
	inner model.ToolCallingChatModel
	exec  *retry.Executor
}

func NewRetryingChatModel(inner model.ToolCallingChatModel, exec *retry.Executor) *RetryingChatModel {
	if exec == nil {
		exec = retry.New(retry.ModelPolicy, retry.WithName("model"))
	}
	return &RetryingChatModel{inner: inner, exec: exec}
}

func (m *RetryingChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return retry.Do(ctx, m.exec, func(ctx context.Context) (*schema.Message, error) {
		return m.inner.Generate(ctx, input, opts...)
	})
}

func (m *RetryingChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return retry.Do(ctx, m.exec, func(ctx context.Context) (*schema.StreamReader[*schema.Message], error) {
		return m.inner.Stream(ctx, input, opts...)
	})
}

func (m *RetryingChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := m.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RetryingChatModel{inner: bound, exec: m.exec}, nil
}

// IsCallbacksEnabled defers to the wrapped model so callbacks fire once per attempt.
func (m *RetryingChatModel) IsCallbacksEnabled() bool {
	if c, ok := m.inner.(interface{ IsCallbacksEnabled() bool }); ok {
		return c.IsCallbacksEnabled()
	}
	return false
}

var _ model.ToolCallingChatModel = (*RetryingChatModel)(nil)
