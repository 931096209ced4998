// Package repo holds the durable Conversation Log backends.
package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mNandhu/PACE/internal/agent/model"
	errx "github.com/mNandhu/PACE/internal/core/error"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

const backupTimeLayout = "20060102_150405"

// errCorruptLog marks a log file that exists but does not parse.
var errCorruptLog = errors.New("conversation log is not valid JSON")

// FileConversationLog keeps one JSON array of turns per (user, persona) pair:
// {dir}/{user}_{persona}_conversation_log.json.
type FileConversationLog struct {
	dir     string
	userID  string
	persona string

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewFileConversationLog(dir, userID, persona string) (*FileConversationLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation dir: %w", err)
	}
	return &FileConversationLog{dir: dir, userID: userID, persona: persona, now: time.Now}, nil
}

// Path is the live log file.
func (l *FileConversationLog) Path() string {
	return filepath.Join(l.dir, fmt.Sprintf("%s_%s_conversation_log.json", l.userID, l.persona))
}

func (l *FileConversationLog) lockPath() string {
	return l.Path() + ".lock"
}

// Load returns an empty log when the file is missing or unreadable JSON.
func (l *FileConversationLog) Load(ctx context.Context) ([]model.ConversationTurn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	turns, err := l.read()
	if errors.Is(err, errCorruptLog) {
		logx.Warn().Err(err).Str("path", l.Path()).Msg("Conversation log is corrupt, starting empty")
		return []model.ConversationTurn{}, nil
	}
	return turns, err
}

func (l *FileConversationLog) read() ([]model.ConversationTurn, error) {
	b, err := os.ReadFile(l.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return []model.ConversationTurn{}, nil
	}
	if err != nil {
		logx.Error().Err(err).Str("path", l.Path()).Msg("Failed to read conversation log")
		return nil, errx.WrapLog(err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []model.ConversationTurn{}, nil
	}
	var turns []model.ConversationTurn
	if err := json.Unmarshal(b, &turns); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptLog, err)
	}
	return turns, nil
}

// readForRewrite is read for callers about to replace the file. A corrupt
// file is copied aside first so its bytes survive the rewrite.
func (l *FileConversationLog) readForRewrite() ([]model.ConversationTurn, error) {
	turns, err := l.read()
	if !errors.Is(err, errCorruptLog) {
		return turns, err
	}
	saved, berr := l.backup("_corrupt")
	if berr != nil {
		return nil, berr
	}
	logx.Warn().Err(err).Str("path", l.Path()).Str("saved", saved).Msg("Conversation log is corrupt, moved aside before rewrite")
	return []model.ConversationTurn{}, nil
}

func (l *FileConversationLog) Append(ctx context.Context, userInput, response string) (model.ConversationTurn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	unlock, err := lockFile(l.lockPath())
	if err != nil {
		return model.ConversationTurn{}, errx.WrapLog(err)
	}
	defer unlock()

	turns, err := l.readForRewrite()
	if err != nil {
		return model.ConversationTurn{}, err
	}

	ts := l.now()
	if n := len(turns); n > 0 && turns[n-1].Timestamp.After(l.last) {
		l.last = turns[n-1].Timestamp
	}
	if !ts.After(l.last) {
		ts = l.last.Add(time.Microsecond)
	}
	l.last = ts

	turn := model.ConversationTurn{
		Timestamp:     ts,
		UserInput:     userInput,
		FinalResponse: response,
		UserID:        l.userID,
		PersonaName:   l.persona,
	}
	turns = append(turns, turn)

	if err := l.write(turns); err != nil {
		logx.Error().Err(err).Str("path", l.Path()).Msg("Failed to write conversation log")
		return model.ConversationTurn{}, errx.WrapLog(err)
	}
	logx.Debug().Str("path", l.Path()).Int("turns", len(turns)).Msg("Conversation turn appended")
	return turn, nil
}

// write replaces the log atomically: temp file in the same dir, then rename.
func (l *FileConversationLog) write(turns []model.ConversationTurn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal conversation log: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, ".conversation-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}
	if err := os.Rename(tmpPath, l.Path()); err != nil {
		return fmt.Errorf("rename temp log: %w", err)
	}
	success = true
	return nil
}

// Backup byte-copies the live log into {dir}/backup and returns the copy's path.
// Backups taken within the same second get a _1, _2, ... suffix.
func (l *FileConversationLog) Backup(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backup("")
}

func (l *FileConversationLog) backup(tag string) (string, error) {
	src, err := os.Open(l.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", errx.WrapLog(err)
	}
	defer src.Close()

	backupDir := filepath.Join(l.dir, "backup")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", errx.WrapLog(fmt.Errorf("create backup dir: %w", err))
	}
	dst, dstPath, err := createBackupFile(backupDir, fmt.Sprintf("%s_%s_conversation_backup_%s%s",
		l.userID, l.persona, l.now().Format(backupTimeLayout), tag))
	if err != nil {
		return "", errx.WrapLog(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", errx.WrapLog(fmt.Errorf("copy conversation log: %w", err))
	}
	if err := dst.Close(); err != nil {
		return "", errx.WrapLog(err)
	}
	logx.Info().Str("backup", dstPath).Msg("Conversation log backed up")
	return dstPath, nil
}

// createBackupFile never opens an existing file.
func createBackupFile(dir, base string) (*os.File, string, error) {
	for i := 0; i < 1000; i++ {
		name := base + ".json"
		if i > 0 {
			name = fmt.Sprintf("%s_%d.json", base, i)
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
	return nil, "", fmt.Errorf("too many backups named %s", base)
}

func (l *FileConversationLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	unlock, err := lockFile(l.lockPath())
	if err != nil {
		return errx.WrapLog(err)
	}
	defer unlock()

	if _, err := l.readForRewrite(); err != nil {
		return err
	}
	if err := l.write([]model.ConversationTurn{}); err != nil {
		return errx.WrapLog(err)
	}
	return nil
}

func (l *FileConversationLog) Reset(ctx context.Context) (string, error) {
	return resetLog(ctx, l)
}

func resetLog(ctx context.Context, log model.ConversationLog) (string, error) {
	backup, err := log.Backup(ctx)
	if err != nil {
		return "", err
	}
	if err := log.Clear(ctx); err != nil {
		return backup, err
	}
	return backup, nil
}

var _ model.ConversationLog = (*FileConversationLog)(nil)
