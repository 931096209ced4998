// Package sqlite stores long-term memories in SQLite and ranks them with FTS5 bm25.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/mNandhu/PACE/internal/agent/memory"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

// Store implements memory.Store on a single SQLite file.
type Store struct {
	db *sql.DB

	idMu    sync.Mutex
	entropy *rand.Rand
}

// New opens or creates the database at dbPath.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id, created_at DESC);

	CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
		content,
		content=memories,
		content_rowid=rowid
	);

	CREATE TRIGGER IF NOT EXISTS memories_ai AFTER INSERT ON memories BEGIN
		INSERT INTO memories_fts(rowid, content) VALUES (new.rowid, new.content);
	END;

	CREATE TRIGGER IF NOT EXISTS memories_ad AFTER DELETE ON memories BEGIN
		INSERT INTO memories_fts(memories_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	END;
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Add(ctx context.Context, msgs []memory.Message, userID string) (*memory.AddResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	res := &memory.AddResult{}
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		id := s.newID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO memories (id, user_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			id, userID, m.Role, m.Content, now,
		); err != nil {
			return nil, fmt.Errorf("insert memory: %w", err)
		}
		res.IDs = append(res.IDs, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	logx.Debug().Str("user_id", userID).Int("memories", len(res.IDs)).Msg("Stored memories in sqlite")
	return res, nil
}

// Search matches any query word and orders by bm25. Scores are negated
// bm25 values, so larger is more relevant.
func (s *Store) Search(ctx context.Context, query, userID string, limit int) (*memory.SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return &memory.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT m.content, m.role, bm25(memories_fts) AS rank
		FROM memories_fts
		JOIN memories m ON m.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ? AND m.user_id = ?
		ORDER BY rank
		LIMIT ?`, match, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	out := &memory.SearchResult{}
	for rows.Next() {
		var content, role string
		var rank float64
		if err := rows.Scan(&content, &role, &rank); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		out.Hits = append(out.Hits, memory.ScoredHit(content, -rank, role))
	}
	return out, rows.Err()
}

func (s *Store) Reset(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete memories: %w", err)
	}
	return nil
}

// Count returns how many memories a user has.
func (s *Store) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// ftsQuery turns free text into an FTS5 OR query of quoted words, so user
// punctuation can never be parsed as FTS syntax.
func ftsQuery(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, `"`+w+`"`)
	}
	return strings.Join(quoted, " OR ")
}

var _ memory.Store = (*Store)(nil)
