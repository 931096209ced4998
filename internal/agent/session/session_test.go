package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/graph/nodes"
	"github.com/mNandhu/PACE/internal/agent/memory/memorytest"
	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/agent/persona"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

func init() {
	logx.Disable()
}

type echoModel struct{}

func (echoModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	var last string
	for _, m := range in {
		if m.Role == schema.User {
			last = m.Content
		}
	}
	return schema.AssistantMessage("echo: "+last, nil), nil
}

func (e echoModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, _ := e.Generate(ctx, in, opts...)
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (e echoModel) WithTools([]*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return e, nil
}

func testConfig(t *testing.T) *AppConfig {
	t.Helper()
	root := t.TempDir()
	personas := filepath.Join(root, "characters")
	if err := os.MkdirAll(personas, 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "character_name: Ada\ncore_persona_directives:\n  - You are {{char}}, talking to {{user}}.\n"
	if err := os.WriteFile(filepath.Join(personas, "ada.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &AppConfig{}
	cfg.Persona = model.PersonaConfig{Dir: personas, Name: "ada", UserName: "Sam", UserID: "u1"}
	cfg.Memory = model.MemoryConfig{Backend: BackendChromem, MaxResults: 5, IncludeRelations: true, Embedder: "hash", EmbeddingDims: 64}
	cfg.Conversation = model.ConversationConfig{Backend: LogBackendFile, Dir: filepath.Join(root, "chats"), TTL: "0s", HistoryMaxTokens: 2000}
	cfg.Conversation.Tools.MaxCycles = 3
	cfg.Response = model.ResponseModelConfig{Provider: "gemini", Model: "gemini-2.5-flash", PromptMaxTokens: 8000}
	return cfg
}

func newTestSession(t *testing.T, cfg *AppConfig, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithChatModel(&nodes.ChatModel{Model: echoModel{}, Name: "fake"})}, opts...)
	s, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewID(t *testing.T) {
	re := regexp.MustCompile(`^pace_session_[0-9a-f]{8}$`)
	a, b := NewID(), NewID()
	if !re.MatchString(a) || !re.MatchString(b) {
		t.Fatalf("bad ids %q %q", a, b)
	}
	if a == b {
		t.Error("ids should differ")
	}
}

func TestChatStatsAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t, testConfig(t))

	state, err := s.Chat(ctx, "my cat is called Miso")
	if err != nil {
		t.Fatal(err)
	}
	if state.FinalResponse != "echo: my cat is called Miso" {
		t.Errorf("unexpected response %q", state.FinalResponse)
	}
	if state.SessionID != s.ID() {
		t.Errorf("session id not propagated: %q", state.SessionID)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalTurns != 1 || stats.LastTimestamp == nil {
		t.Errorf("unexpected stats %+v", stats)
	}

	res, err := s.SearchMemories(ctx, "cat Miso", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() == 0 {
		t.Error("expected the stored turn to be found")
	}
}

func TestResetBacksUpAndClears(t *testing.T) {
	ctx := context.Background()
	store := memorytest.New()
	s := newTestSession(t, testConfig(t), WithStore(store))

	if _, err := s.Chat(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Reset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !res.MemoryCleared || res.BackupPath == "" {
		t.Errorf("unexpected result %+v", res)
	}
	if _, err := os.Stat(res.BackupPath); err != nil {
		t.Errorf("backup missing: %v", err)
	}
	if len(store.Messages("u1")) != 0 {
		t.Error("memory should be empty")
	}
	stats, _ := s.Stats(ctx)
	if stats.TotalTurns != 0 {
		t.Errorf("log should be empty, got %d turns", stats.TotalTurns)
	}
}

func TestResetKeepsLogWhenMemoryFails(t *testing.T) {
	ctx := context.Background()
	store := memorytest.New()
	s := newTestSession(t, testConfig(t), WithStore(store))

	if _, err := s.Chat(ctx, "hello"); err != nil {
		t.Fatal(err)
	}
	store.ResetErr = errors.New("store down")
	if _, err := s.Reset(ctx); err == nil {
		t.Fatal("expected error")
	}
	stats, _ := s.Stats(ctx)
	if stats.TotalTurns != 1 {
		t.Errorf("log should be untouched, got %d turns", stats.TotalTurns)
	}
}

func TestInfo(t *testing.T) {
	s := newTestSession(t, testConfig(t))
	info := s.Info()
	if info.Persona != "ada" || info.CharacterName != "Ada" || info.UserID != "u1" || info.Model != "fake" {
		t.Errorf("unexpected info %+v", info)
	}
	if len(info.Tools) != 3 {
		t.Errorf("expected 3 tools, got %v", info.Tools)
	}
	if !strings.Contains(s.Persona().Directives[0], "You are Ada, talking to Sam.") {
		t.Errorf("placeholders not substituted: %q", s.Persona().Directives[0])
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		is     error
	}{
		{name: "missing persona", mutate: func(c *AppConfig) { c.Persona.Name = "nobody" }, is: persona.ErrNotFound},
		{name: "unknown memory backend", mutate: func(c *AppConfig) { c.Memory.Backend = "carrier-pigeon" }},
		{name: "unknown log backend", mutate: func(c *AppConfig) { c.Conversation.Backend = "tape" }},
		{name: "bad ttl", mutate: func(c *AppConfig) {
			c.Conversation.Backend = LogBackendRedis
			c.Conversation.TTL = "soon"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg, WithChatModel(&nodes.ChatModel{Model: echoModel{}, Name: "fake"}))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
		})
	}
}

func TestSQLiteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Memory.Backend = BackendSQLite
	cfg.Memory.Dir = t.TempDir()
	s := newTestSession(t, cfg)

	ctx := context.Background()
	if _, err := s.Chat(ctx, "remember the blue teapot"); err != nil {
		t.Fatal(err)
	}
	res, err := s.SearchMemories(ctx, "teapot", 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Len() == 0 {
		t.Error("expected a hit from sqlite")
	}
}

func TestProviderCredentials(t *testing.T) {
	cfg := &AppConfig{GeminiAPIKey: "g", AnthropicAPIKey: "a", AnthropicBaseURL: "http://x"}
	cfg.Response.Provider = "anthropic"
	key, base, err := cfg.ProviderCredentials()
	if err != nil || key != "a" || base != "http://x" {
		t.Errorf("got %q %q %v", key, base, err)
	}

	cfg.Response.Provider = "gemini"
	cfg.GeminiAPIKey = ""
	if _, _, err := cfg.ProviderCredentials(); err == nil {
		t.Error("expected missing key error")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PERSONA_NAME", "ada")
	t.Setenv("CONVERSATION_TOOL_MAX_CYCLES", "7")
	t.Setenv("LLM_RETRY_BASE_DELAY", "500ms")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Persona.Name != "ada" || cfg.Conversation.Tools.MaxCycles != 7 {
		t.Errorf("env not applied: %+v", cfg.Persona)
	}
	if cfg.Retry.BaseDelay != 500*time.Millisecond || cfg.Memory.Backend != "chromem" {
		t.Errorf("unexpected %+v %+v", cfg.Retry, cfg.Memory)
	}
}
