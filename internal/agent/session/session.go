// Package session wires the pipeline collaborators for one user and persona
// and exposes the operations the CLI drives.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mNandhu/PACE/internal/agent/graph"
	"github.com/mNandhu/PACE/internal/agent/graph/conversations"
	"github.com/mNandhu/PACE/internal/agent/graph/nodes"
	"github.com/mNandhu/PACE/internal/agent/graph/tools"
	"github.com/mNandhu/PACE/internal/agent/memory"
	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/agent/persona"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

const idPrefix = "pace_session_"

// Session owns the collaborators of one (user, persona) pair. Turns are serialized.
type Session struct {
	id      string
	cfg     *AppConfig
	persona *model.Persona
	model   string

	gateway *memory.Gateway
	history *conversations.HistoryManager
	runner  *graph.Runner
	closers []io.Closer

	mu sync.Mutex
}

// Option overrides a collaborator that New would otherwise build from config.
type Option func(*overrides)

type overrides struct {
	chatModel *nodes.ChatModel
	store     memory.Store
	log       model.ConversationLog
}

func WithChatModel(cm *nodes.ChatModel) Option {
	return func(o *overrides) { o.chatModel = cm }
}

func WithStore(s memory.Store) Option {
	return func(o *overrides) { o.store = s }
}

func WithConversationLog(l model.ConversationLog) Option {
	return func(o *overrides) { o.log = l }
}

// New builds a session from cfg.
func New(ctx context.Context, cfg *AppConfig, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	var ov overrides
	for _, opt := range opts {
		opt(&ov)
	}

	p, err := persona.Load(cfg.Persona.Dir, cfg.Persona.Name, cfg.Persona.UserName)
	if err != nil {
		return nil, fmt.Errorf("load persona: %w", err)
	}

	s := &Session{
		id:      NewID(),
		cfg:     cfg,
		persona: p,
	}
	ok := false
	defer func() {
		if !ok {
			_ = s.Close()
		}
	}()

	store := ov.store
	if store == nil {
		var closer io.Closer
		store, closer, err = newStore(cfg.Memory)
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		s.addCloser(closer)
	}
	if s.gateway, err = memory.NewGateway(store, cfg.Persona.UserID); err != nil {
		return nil, err
	}

	log := ov.log
	if log == nil {
		var closer io.Closer
		log, closer, err = newConversationLog(ctx, cfg, p.Name)
		if err != nil {
			return nil, fmt.Errorf("open conversation log: %w", err)
		}
		s.addCloser(closer)
	}

	budgeter := newBudgeter(cfg.Tokens)
	s.history = conversations.NewHistoryManager(log, budgeter)

	cm := ov.chatModel
	if cm == nil {
		if cm, err = newChatModel(ctx, cfg); err != nil {
			return nil, err
		}
	}
	s.model = cm.Name

	s.runner, err = graph.NewRunner(ctx, graph.Config{
		ChatModel:        cm,
		Gateway:          s.gateway,
		Assembler:        newAssembler(cfg.Rerank),
		History:          s.history,
		Budgeter:         budgeter,
		Persona:          p,
		UserName:         cfg.Persona.UserName,
		MaxMemories:      cfg.Memory.MaxResults,
		IncludeRelations: cfg.Memory.IncludeRelations,
		Rerank:           cfg.Rerank.Enabled,
		HistoryMaxTokens: cfg.Conversation.HistoryMaxTokens,
		PromptMaxTokens:  cfg.Response.PromptMaxTokens,
		MaxToolCycles:    cfg.Conversation.Tools.MaxCycles,
	})
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	logx.Info().
		Str("session_id", s.id).
		Str("persona", p.Name).
		Str("user_id", cfg.Persona.UserID).
		Str("model", s.model).
		Msg("Session ready")
	ok = true
	return s, nil
}

// NewID returns pace_session_ followed by 8 hex characters.
func NewID() string {
	return idPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (s *Session) ID() string { return s.id }

func (s *Session) Persona() *model.Persona { return s.persona }

// Chat runs one turn through the pipeline.
func (s *Session) Chat(ctx context.Context, input string) (*model.PipelineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner.Invoke(ctx, model.TurnInput{SessionID: s.id, UserInput: input})
}

// SearchMemories queries long-term memory directly, bypassing the pipeline.
func (s *Session) SearchMemories(ctx context.Context, query string, limit int) (*memory.SearchResult, error) {
	if limit <= 0 {
		limit = s.cfg.Memory.MaxResults
	}
	return s.gateway.Search(ctx, query, limit)
}

func (s *Session) Stats(ctx context.Context) (model.ConversationStats, error) {
	return s.history.Stats(ctx)
}

// ResetResult reports what Reset did.
type ResetResult struct {
	MemoryCleared bool   `json:"memory_cleared"`
	BackupPath    string `json:"backup_path,omitempty"`
}

// Reset wipes long-term memory, then backs up and clears the conversation log.
// The log is left untouched when the memory reset fails.
func (s *Session) Reset(ctx context.Context) (ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res ResetResult
	if err := s.gateway.Reset(ctx); err != nil {
		return res, fmt.Errorf("reset memory: %w", err)
	}
	res.MemoryCleared = true

	backup, err := s.history.Reset(ctx)
	if err != nil {
		return res, fmt.Errorf("reset conversation log: %w", err)
	}
	res.BackupPath = backup
	logx.Info().Str("session_id", s.id).Str("backup", backup).Msg("Session reset")
	return res, nil
}

// Info summarises how the session is wired.
type Info struct {
	SessionID           string   `json:"session_id"`
	Persona             string   `json:"persona"`
	CharacterName       string   `json:"character_name"`
	UserName            string   `json:"user_name"`
	UserID              string   `json:"user_id"`
	Provider            string   `json:"provider"`
	Model               string   `json:"model"`
	MemoryBackend       string   `json:"memory_backend"`
	ConversationBackend string   `json:"conversation_backend"`
	RerankEnabled       bool     `json:"rerank_enabled"`
	MaxToolCycles       int      `json:"max_tool_cycles"`
	Tools               []string `json:"tools"`
}

func (s *Session) Info() Info {
	return Info{
		SessionID:           s.id,
		Persona:             s.persona.Name,
		CharacterName:       s.persona.DisplayName(),
		UserName:            s.cfg.Persona.UserName,
		UserID:              s.cfg.Persona.UserID,
		Provider:            s.cfg.Response.Provider,
		Model:               s.model,
		MemoryBackend:       s.cfg.Memory.Backend,
		ConversationBackend: s.cfg.Conversation.Backend,
		RerankEnabled:       s.cfg.Rerank.Enabled,
		MaxToolCycles:       s.cfg.Conversation.Tools.MaxCycles,
		Tools:               []string{tools.ToolCalculator, tools.ToolCurrentTime, tools.ToolRecallMemories},
	}
}

// Close releases stores and connections opened by New.
func (s *Session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Session) addCloser(c io.Closer) {
	if c != nil {
		s.closers = append(s.closers, c)
	}
}
