// Package chromem stores long-term memories in an embedded chromem-go vector database.
package chromem

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/mNandhu/PACE/internal/agent/memory"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

// Config configures the store. An empty PersistDir keeps everything in memory.
type Config struct {
	PersistDir string
	Compress   bool
	Embed      chromem.EmbeddingFunc
}

// Store wraps chromem-go with one collection per user.
type Store struct {
	db          *chromem.DB
	embed       chromem.EmbeddingFunc
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
	now         func() time.Time
}

func New(cfg Config) (*Store, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.PersistDir != "" {
		db, err = chromem.NewPersistentDB(cfg.PersistDir, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("open chromem db at %s: %w", cfg.PersistDir, err)
		}
	} else {
		db = chromem.NewDB()
	}

	embed := cfg.Embed
	if embed == nil {
		embed = NewHashEmbedding(DefaultDimensions)
	}

	return &Store{
		db:          db,
		embed:       embed,
		collections: make(map[string]*chromem.Collection),
		now:         time.Now,
	}, nil
}

func collectionName(userID string) string {
	if userID == "" {
		return "pace_global"
	}
	return "pace_" + userID
}

// collection returns the user's collection, creating it on first use.
func (s *Store) collection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, ok := s.collections[userID]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection(collectionName(userID), nil, s.embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Add stores each non-empty message as its own document.
func (s *Store) Add(ctx context.Context, msgs []memory.Message, userID string) (*memory.AddResult, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}

	created := s.now().UTC().Format(time.RFC3339Nano)
	docs := make([]chromem.Document, 0, len(msgs))
	res := &memory.AddResult{}
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		id := uuid.NewString()
		docs = append(docs, chromem.Document{
			ID:      id,
			Content: m.Content,
			Metadata: map[string]string{
				"role":       m.Role,
				"user_id":    userID,
				"created_at": created,
			},
		})
		res.IDs = append(res.IDs, id)
	}
	if len(docs) == 0 {
		return res, nil
	}

	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}
	logx.Debug().Str("user_id", userID).Int("documents", len(docs)).Msg("Stored memories in chromem")
	return res, nil
}

// Search returns up to limit hits ordered by similarity. chromem rejects
// nResults larger than the collection, so the limit is clamped first.
func (s *Store) Search(ctx context.Context, query, userID string, limit int) (*memory.SearchResult, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}

	n := limit
	if count := col.Count(); n <= 0 || n > count {
		n = count
	}
	if n == 0 || strings.TrimSpace(query) == "" {
		return &memory.SearchResult{}, nil
	}

	results, err := col.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := &memory.SearchResult{Hits: make([]memory.Hit, 0, len(results))}
	for _, r := range results {
		out.Hits = append(out.Hits, memory.ScoredHit(r.Content, float64(r.Similarity), r.Metadata["role"]))
	}
	return out, nil
}

// Reset drops the user's collection.
func (s *Store) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(collectionName(userID)); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	delete(s.collections, userID)
	return nil
}

var _ memory.Store = (*Store)(nil)
