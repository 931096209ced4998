package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	Backend          string `envconfig:"CONVERSATION_BACKEND" default:"file"`
	Dir              string `envconfig:"CONVERSATION_DIR" default:"Assistant/chats"`
	TTL              string `envconfig:"CONVERSATION_TTL" default:"0s"`
	HistoryMaxTokens int    `envconfig:"CONVERSATION_HISTORY_MAX_TOKENS" default:"32768"`
	Tools            struct {
		MaxCycles int `envconfig:"CONVERSATION_TOOL_MAX_CYCLES" default:"5"`
	}
}

type ResponseModelConfig struct {
	Provider        string  `envconfig:"RESPONSE_PROVIDER" default:"gemini"`
	Model           string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens       int     `envconfig:"RESPONSE_MAX_TOKENS" default:"4000"`
	Temperature     float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.3"`
	ThinkingBudget  int     `envconfig:"RESPONSE_THINKING_BUDGET" default:"0"`
	PromptMaxTokens int     `envconfig:"RESPONSE_PROMPT_MAX_TOKENS" default:"32768"`
}

type RetryConfig struct {
	MaxRetries int           `envconfig:"LLM_MAX_RETRIES" default:"3"`
	BaseDelay  time.Duration `envconfig:"LLM_RETRY_BASE_DELAY" default:"2s"`
	MaxDelay   time.Duration `envconfig:"LLM_RETRY_MAX_DELAY" default:"30s"`
}

type MemoryConfig struct {
	Backend          string `envconfig:"MEMORY_BACKEND" default:"chromem"`
	Dir              string `envconfig:"MEMORY_DIR" default:"Assistant/memory"`
	MaxResults       int    `envconfig:"MEMORY_MAX_RESULTS" default:"10"`
	IncludeRelations bool   `envconfig:"MEMORY_INCLUDE_RELATIONS" default:"true"`
	Embedder         string `envconfig:"MEMORY_EMBEDDER" default:"hash"`
	EmbeddingDims    int    `envconfig:"MEMORY_EMBEDDING_DIMS" default:"384"`
	OllamaURL        string `envconfig:"MEMORY_OLLAMA_URL" default:"http://localhost:11434/api"`
	OllamaModel      string `envconfig:"MEMORY_OLLAMA_MODEL" default:"nomic-embed-text"`
	Mem0URL          string `envconfig:"MEMORY_MEM0_URL" default:"http://localhost:8888"`
	Mem0APIKey       string `envconfig:"MEMORY_MEM0_API_KEY"`
}

type RerankConfig struct {
	Enabled  bool   `envconfig:"RERANK_ENABLED" default:"false"`
	Endpoint string `envconfig:"RERANK_ENDPOINT" default:"http://localhost:7001/"`
	Task     string `envconfig:"RERANK_TASK" default:"Given a user message, judge whether the memory helps continue the conversation"`
}

type PersonaConfig struct {
	Dir      string `envconfig:"PERSONA_DIR" default:"Assistant/characters"`
	Name     string `envconfig:"PERSONA_NAME" default:"default"`
	UserName string `envconfig:"USER_NAME" default:"user"`
	UserID   string `envconfig:"USER_ID" default:"pace_main_user"`
}

type TokenConfig struct {
	Encoding     string `envconfig:"TOKEN_ENCODING" default:"cl100k_base"`
	CacheEntries int64  `envconfig:"TOKEN_CACHE_ENTRIES" default:"10000"`
}
