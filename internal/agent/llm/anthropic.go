// Package llm adapts model providers to the eino chat model interface.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	errx "github.com/mNandhu/PACE/internal/core/error"
)

const defaultAnthropicMaxTokens = 4000

type AnthropicConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float32
}

// AnthropicChatModel speaks the Messages API through anthropic-sdk-go. The
// SDK's own retries are disabled; callers wrap it with NewRetryingChatModel.
type AnthropicChatModel struct {
	client anthropic.Client
	cfg    AnthropicConfig
	tools  []anthropic.ToolUnionParam
	infos  []*schema.ToolInfo
}

func NewAnthropicChatModel(cfg AnthropicConfig) (*AnthropicChatModel, error) {
	if cfg.Model == "" {
		return nil, errors.New("anthropic model name is empty")
	}
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicChatModel{client: anthropic.NewClient(opts...), cfg: cfg}, nil
}

func (m *AnthropicChatModel) GetType() string { return "Anthropic" }

func (m *AnthropicChatModel) IsCallbacksEnabled() bool { return true }

// WithTools returns a copy bound to tools; the receiver is unchanged.
func (m *AnthropicChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	converted, err := toAnthropicTools(tools)
	if err != nil {
		return nil, err
	}
	cp := *m
	cp.tools = converted
	cp.infos = tools
	return &cp, nil
}

func (m *AnthropicChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (out *schema.Message, err error) {
	maxTokens := m.cfg.MaxTokens
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.cfg.Model,
		Temperature: m.cfg.Temperature,
		MaxTokens:   &maxTokens,
		Tools:       m.infos,
	}, opts...)

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: input,
		Tools:    options.Tools,
		Config: &model.Config{
			Model:     *options.Model,
			MaxTokens: *options.MaxTokens,
		},
	})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	params, err := m.buildParams(input, options)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, wrapAnthropicError(err)
	}

	out, err = fromAnthropicMessage(resp)
	if err != nil {
		return nil, err
	}
	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    out,
		TokenUsage: &model.TokenUsage{PromptTokens: out.ResponseMeta.Usage.PromptTokens, CompletionTokens: out.ResponseMeta.Usage.CompletionTokens, TotalTokens: out.ResponseMeta.Usage.TotalTokens},
	})
	return out, nil
}

// Stream delivers the full reply as a single chunk.
func (m *AnthropicChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

func (m *AnthropicChatModel) buildParams(input []*schema.Message, options *model.Options) (anthropic.MessageNewParams, error) {
	system, msgs, err := toAnthropicMessages(input)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(*options.Model),
		MaxTokens: int64(*options.MaxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if options.Temperature != nil {
		params.Temperature = anthropic.Float(float64(*options.Temperature))
	}
	if len(m.tools) > 0 {
		params.Tools = m.tools
	}
	return params, nil
}

// toAnthropicMessages folds system messages into one system prompt and
// merges consecutive tool results into a single user turn, as the Messages
// API requires.
func toAnthropicMessages(input []*schema.Message) (string, []anthropic.MessageParam, error) {
	var system []string
	var out []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			if strings.TrimSpace(msg.Content) != "" {
				system = append(system, msg.Content)
			}
		case schema.Tool:
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, isToolError(msg.Content)))
		case schema.User:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case schema.Assistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var args any = map[string]any{}
				if strings.TrimSpace(tc.Function.Arguments) != "" {
					if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
						return "", nil, fmt.Errorf("tool call %s arguments: %w", tc.Function.Name, err)
					}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Function.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		default:
			return "", nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	flush()
	return strings.Join(system, "\n\n"), out, nil
}

// isToolError recognises the error payloads produced by the tools node.
func isToolError(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), `{"error"`)
}

func fromAnthropicMessage(resp *anthropic.Message) (*schema.Message, error) {
	if resp == nil {
		return nil, errors.New("anthropic returned no message")
	}
	var text strings.Builder
	var calls []schema.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			args := string(block.Input)
			if args == "" {
				args = "{}"
			}
			calls = append(calls, schema.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      block.Name,
					Arguments: args,
				},
			})
		}
	}

	out := schema.AssistantMessage(text.String(), calls)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(resp.StopReason),
		Usage: &schema.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	return out, nil
}

func toAnthropicTools(tools []*schema.ToolInfo) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		schemaParam := anthropic.ToolInputSchemaParam{Properties: map[string]any{}}
		if t.ParamsOneOf != nil {
			js, err := t.ParamsOneOf.ToJSONSchema()
			if err != nil {
				return nil, fmt.Errorf("tool %s schema: %w", t.Name, err)
			}
			if js != nil {
				raw, err := json.Marshal(js)
				if err != nil {
					return nil, fmt.Errorf("tool %s schema: %w", t.Name, err)
				}
				var parsed struct {
					Properties map[string]any `json:"properties"`
					Required   []string       `json:"required"`
				}
				if err := json.Unmarshal(raw, &parsed); err != nil {
					return nil, fmt.Errorf("tool %s schema: %w", t.Name, err)
				}
				if parsed.Properties != nil {
					schemaParam.Properties = parsed.Properties
				}
				schemaParam.Required = parsed.Required
			}
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Desc),
			InputSchema: schemaParam,
		}})
	}
	return out, nil
}

// wrapAnthropicError keeps the HTTP status so throttling is retried.
func wrapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return errx.WrapModel(err, apiErr.StatusCode)
	}
	return errx.WrapModel(err, 0)
}

var _ model.ToolCallingChatModel = (*AnthropicChatModel)(nil)
