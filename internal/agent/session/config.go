package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/core"
	logx "github.com/mNandhu/PACE/pkg/logger"
	pkgredis "github.com/mNandhu/PACE/pkg/redis"
)

// AppConfig defines every configurable parameter of a PACE session,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Env      core.Environment `envconfig:"APP_ENV" default:"development"`
	LogLevel string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM providers
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL    string `envconfig:"GEMINI_BASE_URL"`
	AnthropicAPIKey  string `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string `envconfig:"ANTHROPIC_BASE_URL"`

	// Agent configs
	Response     model.ResponseModelConfig
	Retry        model.RetryConfig
	Memory       model.MemoryConfig
	Rerank       model.RerankConfig
	Persona      model.PersonaConfig
	Conversation model.ConversationConfig
	Tokens       model.TokenConfig
}

// LoadConfig reads envFile when it exists and then fills AppConfig from the environment.
func LoadConfig(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			logx.Warn().Err(err).Str("file", envFile).Msg("Could not load env file")
		}
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

// ProviderCredentials returns the API key and base URL for the configured response provider.
func (c *AppConfig) ProviderCredentials() (apiKey, baseURL string, err error) {
	switch strings.ToLower(c.Response.Provider) {
	case "anthropic":
		apiKey, baseURL = c.AnthropicAPIKey, c.AnthropicBaseURL
		if apiKey == "" {
			return "", "", fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	default:
		apiKey, baseURL = c.GeminiAPIKey, c.GeminiBaseURL
		if apiKey == "" {
			return "", "", fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	}
	return apiKey, baseURL, nil
}
