package recall

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/mNandhu/PACE/internal/agent/memory"
)

type stubReranker struct {
	scores []float64
	err    error
	calls  int
}

func (s *stubReranker) Score(context.Context, string, []string) ([]float64, error) {
	s.calls++
	return s.scores, s.err
}

func sample() *memory.SearchResult {
	return &memory.SearchResult{
		Hits: []memory.Hit{
			memory.ScoredHit("likes tea", 0.4, ""),
			memory.RawHit("lives in Chennai"),
			memory.ScoredHit("has a cat", 0.9, ""),
		},
		Relations: []memory.Hit{
			memory.ScoredHit("user -- owns -- cat", 0, "relation"),
		},
	}
}

func TestBuildLabels(t *testing.T) {
	tests := []struct {
		name string
		opts BuildOptions
		want []string
	}{
		{
			name: "hits only",
			want: []string{
				"Relevant context 1: likes tea",
				"Relevant context 2: lives in Chennai",
				"Relevant context 3: has a cat",
			},
		},
		{
			name: "with relations",
			opts: BuildOptions{IncludeRelations: true},
			want: []string{
				"Relevant context 1: likes tea",
				"Relevant context 2: lives in Chennai",
				"Relevant context 3: has a cat",
				"Related context 1: user -- owns -- cat",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAssembler(nil).Build(context.Background(), sample(), tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildSkipsEmptyTextKeepingNumbering(t *testing.T) {
	res := &memory.SearchResult{Hits: []memory.Hit{memory.RawHit(""), memory.RawHit("b")}}
	got := NewAssembler(nil).Build(context.Background(), res, BuildOptions{})
	want := []string{"Relevant context 2: b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildEmpty(t *testing.T) {
	a := NewAssembler(nil)
	if got := a.Build(context.Background(), nil, BuildOptions{}); len(got) != 0 {
		t.Errorf("expected nothing for nil result, got %q", got)
	}
	if got := a.Build(context.Background(), &memory.SearchResult{}, BuildOptions{IncludeRelations: true}); len(got) != 0 {
		t.Errorf("expected nothing for empty result, got %q", got)
	}
}

func TestRerankOrdersByScore(t *testing.T) {
	r := &stubReranker{scores: []float64{0.1, 0.5, 0.5}}
	got := NewAssembler(r).Build(context.Background(), sample(), BuildOptions{Rerank: true, Query: "pets"})
	want := []string{
		"Relevant context 1: lives in Chennai",
		"Relevant context 2: has a cat",
		"Relevant context 3: likes tea",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRerankFallsBackToStoreOrder(t *testing.T) {
	want := []string{
		"Relevant context 1: likes tea",
		"Relevant context 2: lives in Chennai",
		"Relevant context 3: has a cat",
	}
	tests := []struct {
		name  string
		r     *stubReranker
		query string
		calls int
	}{
		{"error", &stubReranker{err: errors.New("down")}, "q", 1},
		{"count mismatch", &stubReranker{scores: []float64{1, 2}}, "q", 1},
		{"empty query", &stubReranker{scores: []float64{3, 2, 1}}, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewAssembler(tt.r).Build(context.Background(), sample(), BuildOptions{Rerank: true, Query: tt.query})
			if !reflect.DeepEqual(got, want) {
				t.Errorf("got %q, want %q", got, want)
			}
			if tt.r.calls != tt.calls {
				t.Errorf("expected %d reranker calls, got %d", tt.calls, tt.r.calls)
			}
		})
	}
}

func TestHTTPRerankerUnhealthyKeepsOrder(t *testing.T) {
	scored := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/score_single":
			scored = true
		}
	}))
	defer srv.Close()

	a := NewAssembler(NewHTTPReranker(srv.URL+"/", "task"))
	got := a.Build(context.Background(), sample(), BuildOptions{Rerank: true, Query: "pets"})
	if got[0] != "Relevant context 1: likes tea" {
		t.Errorf("expected store order, got %q", got)
	}
	if scored {
		t.Error("score endpoint must not be called when health fails")
	}
}

func TestHTTPRerankerScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/score_single":
			var req scoreRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode: %v", err)
			}
			if req.Query != "pets" || req.Task != "task" || len(req.Documents) != 3 {
				t.Errorf("unexpected request %+v", req)
			}
			json.NewEncoder(w).Encode(scoreResponse{Scores: []float64{0.2, 0.1, 0.9}})
		}
	}))
	defer srv.Close()

	a := NewAssembler(NewHTTPReranker(srv.URL, "task"))
	got := a.Build(context.Background(), sample(), BuildOptions{Rerank: true, Query: "pets"})
	want := []string{
		"Relevant context 1: has a cat",
		"Relevant context 2: likes tea",
		"Relevant context 3: lives in Chennai",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

type perDocReranker struct{ docs []string }

func (p *perDocReranker) Score(_ context.Context, _ string, docs []string) ([]float64, error) {
	p.docs = docs
	scores := make([]float64, len(docs))
	for i := range scores {
		scores[i] = float64(i)
	}
	return scores, nil
}

func TestRerankWithEmptyHitKeepsStoreOrder(t *testing.T) {
	res := &memory.SearchResult{Hits: []memory.Hit{
		memory.RawHit("first"),
		memory.RawHit(""),
		memory.RawHit("third"),
	}}
	r := &perDocReranker{}
	got := NewAssembler(r).Build(context.Background(), res, BuildOptions{Rerank: true, Query: "q"})

	if !reflect.DeepEqual(r.docs, []string{"first", "third"}) {
		t.Errorf("scored docs %q", r.docs)
	}
	want := []string{"Relevant context 1: first", "Relevant context 3: third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}
