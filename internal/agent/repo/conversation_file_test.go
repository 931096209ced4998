package repo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newFileLog(t *testing.T) *FileConversationLog {
	t.Helper()
	l, err := NewFileConversationLog(t.TempDir(), "u1", "ada")
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	return l
}

func TestFileLogAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	l := newFileLog(t)

	turns, err := l.Load(ctx)
	if err != nil || len(turns) != 0 {
		t.Fatalf("expected empty log, got %v, %v", turns, err)
	}

	for _, in := range []string{"one", "two", "three"} {
		if _, err := l.Append(ctx, in, "re: "+in); err != nil {
			t.Fatalf("append %q: %v", in, err)
		}
	}

	turns, err = l.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for i, want := range []string{"one", "two", "three"} {
		if turns[i].UserInput != want || turns[i].FinalResponse != "re: "+want {
			t.Errorf("turn %d = %+v", i, turns[i])
		}
		if turns[i].UserID != "u1" || turns[i].PersonaName != "ada" {
			t.Errorf("turn %d has wrong owner: %+v", i, turns[i])
		}
	}
	if filepath.Base(l.Path()) != "u1_ada_conversation_log.json" {
		t.Errorf("unexpected path %s", l.Path())
	}
}

func TestFileLogTimestampsStrictlyIncrease(t *testing.T) {
	ctx := context.Background()
	l := newFileLog(t)
	frozen := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	l.now = func() time.Time { return frozen }

	for i := 0; i < 5; i++ {
		if _, err := l.Append(ctx, "x", "y"); err != nil {
			t.Fatal(err)
		}
	}
	turns, _ := l.Load(ctx)
	for i := 1; i < len(turns); i++ {
		if !turns[i].Timestamp.After(turns[i-1].Timestamp) {
			t.Errorf("timestamp %d (%v) not after %v", i, turns[i].Timestamp, turns[i-1].Timestamp)
		}
	}
}

func TestFileLogConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	l := newFileLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := l.Append(ctx, "in", "out"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	turns, _ := l.Load(ctx)
	if len(turns) != 20 {
		t.Errorf("expected 20 turns, got %d", len(turns))
	}
}

func TestFileLogCorruptLoadsEmpty(t *testing.T) {
	l := newFileLog(t)
	if err := os.WriteFile(l.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	turns, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("expected empty log, got %d turns", len(turns))
	}
}

func TestFileLogAppendKeepsCorruptContent(t *testing.T) {
	ctx := context.Background()
	l := newFileLog(t)
	l.now = func() time.Time { return time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC) }
	corrupt := []byte(`[{"user_input":"old","final_response":"reply"`)
	if err := os.WriteFile(l.Path(), corrupt, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Append(ctx, "new", "turn"); err != nil {
		t.Fatalf("append: %v", err)
	}

	saved, err := os.ReadFile(filepath.Join(filepath.Dir(l.Path()), "backup", "u1_ada_conversation_backup_20250607_080910_corrupt.json"))
	if err != nil {
		t.Fatalf("corrupt log was not kept: %v", err)
	}
	if !bytes.Equal(saved, corrupt) {
		t.Errorf("kept copy differs: %s", saved)
	}
	turns, _ := l.Load(ctx)
	if len(turns) != 1 || turns[0].UserInput != "new" {
		t.Errorf("unexpected log %+v", turns)
	}
}

func TestFileLogClearKeepsCorruptContent(t *testing.T) {
	l := newFileLog(t)
	if err := os.WriteFile(l.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := l.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(l.Path()), "backup", "*_corrupt.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one saved corrupt log, got %v", matches)
	}
}

func TestFileLogBackupWithoutLog(t *testing.T) {
	path, err := newFileLog(t).Backup(context.Background())
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if path != "" {
		t.Errorf("expected no backup, got %s", path)
	}
}

func TestFileLogResetBacksUpThenClears(t *testing.T) {
	ctx := context.Background()
	l := newFileLog(t)
	l.now = func() time.Time { return time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC) }

	l.Append(ctx, "a", "b")
	l.Append(ctx, "c", "d")
	before, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}

	backup, err := l.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if filepath.Base(backup) != "u1_ada_conversation_backup_20250607_080910.json" {
		t.Errorf("unexpected backup name %s", backup)
	}
	copied, err := os.ReadFile(backup)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, copied) {
		t.Error("backup is not a byte-identical copy")
	}

	turns, err := l.Load(ctx)
	if err != nil || len(turns) != 0 {
		t.Errorf("expected empty log after reset, got %d turns, %v", len(turns), err)
	}
}

func TestFileLogResetsInSameSecondKeepBothBackups(t *testing.T) {
	ctx := context.Background()
	l := newFileLog(t)
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if _, err := l.Append(ctx, "secret", "kept"); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatal(err)
	}

	first, err := l.Reset(ctx)
	if err != nil {
		t.Fatalf("first reset: %v", err)
	}
	second, err := l.Reset(ctx)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if first == second {
		t.Fatalf("both resets wrote %s", first)
	}
	if filepath.Base(second) != "u1_ada_conversation_backup_20260102_030405_1.json" {
		t.Errorf("unexpected second backup name %s", second)
	}

	copied, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, copied) {
		t.Errorf("first backup was overwritten: %s", copied)
	}
}
