package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/mNandhu/PACE/internal/agent/llm"
	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/agent/retry"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	RespConfig *model.ResponseModelConfig
	Retry      *retry.Executor
}

// ChatModel is the response model with its retry wrapper and bound tools.
type ChatModel struct {
	Model einomodel.ToolCallingChatModel
	Name  string
}

// NewChatModel creates the response model for the configured provider and
// wraps it with rate-limit retries.
func NewChatModel(ctx context.Context, config ChatModelConfig) (*ChatModel, error) {
	if config.RespConfig == nil {
		return nil, fmt.Errorf("response model config is nil")
	}
	rc := config.RespConfig

	var inner einomodel.ToolCallingChatModel
	switch strings.ToLower(rc.Provider) {
	case ProviderGemini, "":
		cm, err := newGeminiModel(ctx, config)
		if err != nil {
			return nil, err
		}
		inner = cm
	case ProviderAnthropic:
		temp := rc.Temperature
		cm, err := llm.NewAnthropicChatModel(llm.AnthropicConfig{
			APIKey:      config.APIKey,
			BaseURL:     config.BaseURL,
			Model:       rc.Model,
			MaxTokens:   rc.MaxTokens,
			Temperature: &temp,
		})
		if err != nil {
			logx.Error().Err(err).Msg("Error creating Anthropic model")
			return nil, fmt.Errorf("error creating Anthropic model: %w", err)
		}
		inner = cm
	default:
		return nil, fmt.Errorf("unknown response provider %q", rc.Provider)
	}

	return &ChatModel{
		Model: llm.NewRetryingChatModel(inner, config.Retry),
		Name:  rc.Model,
	}, nil
}

func newGeminiModel(ctx context.Context, config ChatModelConfig) (*gemini.ChatModel, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	rc := config.RespConfig
	cfg := &gemini.Config{
		Client:      client,
		Model:       rc.Model,
		Temperature: &rc.Temperature,
		MaxTokens:   &rc.MaxTokens,
	}
	if rc.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(rc.ThinkingBudget)),
		}
	}

	cm, err := gemini.NewChatModel(ctx, cfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Response model")
		return nil, fmt.Errorf("error creating Response model: %w", err)
	}
	return cm, nil
}

// BindTools binds tools to the response model.
func (cm *ChatModel) BindTools(tools []*schema.ToolInfo) error {
	bound, err := cm.Model.WithTools(tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return fmt.Errorf("failed to bind tools: %w", err)
	}
	cm.Model = bound
	logx.Debug().Int("tools", len(tools)).Msg("Successfully bound tools to response model")
	return nil
}
