package session

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/mNandhu/PACE/internal/agent/graph/nodes"
	"github.com/mNandhu/PACE/internal/agent/memory"
	"github.com/mNandhu/PACE/internal/agent/memory/chromem"
	"github.com/mNandhu/PACE/internal/agent/memory/mem0"
	"github.com/mNandhu/PACE/internal/agent/memory/sqlite"
	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/agent/recall"
	"github.com/mNandhu/PACE/internal/agent/repo"
	"github.com/mNandhu/PACE/internal/agent/retry"
	"github.com/mNandhu/PACE/internal/agent/tokens"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

const (
	BackendChromem = "chromem"
	BackendSQLite  = "sqlite"
	BackendMem0    = "mem0"

	LogBackendFile  = "file"
	LogBackendRedis = "redis"
)

func newBudgeter(cfg model.TokenConfig) *tokens.Budgeter {
	var counter tokens.Counter = tokens.HeuristicCounter{}
	if enc := strings.TrimSpace(cfg.Encoding); enc != "" && enc != "heuristic" {
		tc, err := tokens.NewTiktokenCounter(enc)
		if err != nil {
			logx.Warn().Err(err).Msg("Falling back to heuristic token counting")
		} else {
			counter = tc
		}
	}

	var opts []tokens.Option
	cache, err := tokens.NewCountCache(cfg.CacheEntries)
	if err != nil {
		logx.Warn().Err(err).Msg("Token count cache disabled")
	} else {
		opts = append(opts, tokens.WithCache(cache))
	}
	return tokens.NewBudgeter(counter, opts...)
}

func newStore(cfg model.MemoryConfig) (memory.Store, io.Closer, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendChromem, "":
		embed := chromem.NewHashEmbedding(cfg.EmbeddingDims)
		if strings.EqualFold(cfg.Embedder, "ollama") {
			embed = chromem.NewOllamaEmbedding(cfg.OllamaModel, cfg.OllamaURL)
		}
		dir := ""
		if cfg.Dir != "" {
			dir = filepath.Join(cfg.Dir, "chromem")
		}
		s, err := chromem.New(chromem.Config{PersistDir: dir, Compress: true, Embed: embed})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case BackendSQLite:
		s, err := sqlite.New(filepath.Join(cfg.Dir, "memories.db"))
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case BackendMem0:
		opts := []mem0.Option{
			mem0.WithRetry(retry.New(retry.DefaultPolicy, retry.WithName("mem0"))),
		}
		if cfg.Mem0APIKey != "" {
			opts = append(opts, mem0.WithAPIKey(cfg.Mem0APIKey))
		}
		return mem0.New(cfg.Mem0URL, opts...), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
	}
}

func newConversationLog(ctx context.Context, cfg *AppConfig, persona string) (model.ConversationLog, io.Closer, error) {
	userID := cfg.Persona.UserID
	switch strings.ToLower(cfg.Conversation.Backend) {
	case LogBackendFile, "":
		l, err := repo.NewFileConversationLog(cfg.Conversation.Dir, userID, persona)
		if err != nil {
			return nil, nil, err
		}
		return l, nil, nil
	case LogBackendRedis:
		ttl, err := time.ParseDuration(cfg.Conversation.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", cfg.Conversation.TTL, err)
		}
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewRedisConversationLog(rdb, ttl, userID, persona), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown conversation backend %q", cfg.Conversation.Backend)
	}
}

func newAssembler(cfg model.RerankConfig) *recall.Assembler {
	if !cfg.Enabled {
		return recall.NewAssembler(nil)
	}
	return recall.NewAssembler(recall.NewHTTPReranker(cfg.Endpoint, cfg.Task))
}

func newChatModel(ctx context.Context, cfg *AppConfig) (*nodes.ChatModel, error) {
	apiKey, baseURL, err := cfg.ProviderCredentials()
	if err != nil {
		return nil, err
	}
	policy := retry.Policy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
		MaxDelay:   cfg.Retry.MaxDelay,
	}
	return nodes.NewChatModel(ctx, nodes.ChatModelConfig{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		RespConfig: &cfg.Response,
		Retry:      retry.New(policy, retry.WithName("model")),
	})
}
