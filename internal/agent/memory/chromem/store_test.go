package chromem

import (
	"context"
	"testing"

	"github.com/mNandhu/PACE/internal/agent/memory"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Embed: NewHashEmbedding(64)})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return s
}

func TestSearchEmptyCollection(t *testing.T) {
	s := newTestStore(t)
	res, err := s.Search(context.Background(), "anything", "u1", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Len() != 0 {
		t.Errorf("expected no hits, got %d", res.Len())
	}
}

func TestAddAndSearchRanksSharedWords(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Add(ctx, []memory.Message{
		{Role: "user", Content: "My favourite drink is green tea"},
		{Role: "assistant", Content: "The weather in Lisbon is sunny"},
		{Role: "user", Content: ""},
	}, "u1")
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	res, err := s.Search(ctx, "green tea", "u1", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Len() != 2 {
		t.Fatalf("expected limit clamped to 2 documents, got %d", res.Len())
	}
	top := res.Hits[0]
	if top.Text != "My favourite drink is green tea" || top.Type != "user" || top.Kind != memory.KindScored {
		t.Errorf("unexpected top hit %+v", top)
	}
	if res.Hits[0].Score < res.Hits[1].Score {
		t.Error("hits are not ordered by similarity")
	}
}

func TestUsersAreIsolatedAndResettable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Add(ctx, []memory.Message{{Role: "user", Content: "alpha"}}, "u1")
	s.Add(ctx, []memory.Message{{Role: "user", Content: "beta"}}, "u2")

	res, _ := s.Search(ctx, "alpha", "u2", 5)
	if res.Len() != 1 || res.Hits[0].Text != "beta" {
		t.Fatalf("u2 should only see its own memory, got %+v", res.Hits)
	}

	if err := s.Reset(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	res, _ = s.Search(ctx, "alpha", "u1", 5)
	if res.Len() != 0 {
		t.Errorf("expected empty after reset, got %d", res.Len())
	}
	res, _ = s.Search(ctx, "beta", "u2", 5)
	if res.Len() != 1 {
		t.Errorf("reset of u1 must not touch u2")
	}
}
