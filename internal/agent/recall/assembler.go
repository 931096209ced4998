// Package recall turns memory search results into the context lines placed
// in the prompt.
package recall

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mNandhu/PACE/internal/agent/memory"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

type BuildOptions struct {
	IncludeRelations bool
	Rerank           bool
	Query            string
}

// Assembler formats hits into labelled context lines. The reranker is
// optional; without one, Rerank requests are ignored.
type Assembler struct {
	reranker Reranker
}

func NewAssembler(r Reranker) *Assembler {
	return &Assembler{reranker: r}
}

// Build returns "Relevant context N: ..." for each memory hit followed by
// "Related context N: ..." for each relation. N is the 1-based position
// in its list, so hits with empty text leave a gap.
func (a *Assembler) Build(ctx context.Context, res *memory.SearchResult, opts BuildOptions) []string {
	if res == nil {
		return nil
	}

	hits := res.Hits
	switch {
	case opts.Rerank && len(hits) > 0 && strings.TrimSpace(opts.Query) != "":
		hits = a.rerank(ctx, opts.Query, hits)
	case opts.Rerank && strings.TrimSpace(opts.Query) == "":
		logx.Warn().Msg("Reranking requested without a query, keeping store order")
	}

	lines := make([]string, 0, len(hits)+len(res.Relations))
	for i, h := range hits {
		if h.Text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("Relevant context %d: %s", i+1, h.Text))
	}

	if opts.IncludeRelations {
		for i, rel := range res.Relations {
			if rel.Text == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("Related context %d: %s", i+1, rel.Text))
		}
	}
	return lines
}

// rerank reorders hits by descending score. Any failure keeps the input order.
func (a *Assembler) rerank(ctx context.Context, query string, hits []memory.Hit) []memory.Hit {
	if a.reranker == nil {
		logx.Warn().Msg("Reranking requested but no reranker is configured")
		return hits
	}

	docs := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Text != "" {
			docs = append(docs, h.Text)
		}
	}
	if len(docs) == 0 {
		return hits
	}

	scores, err := a.reranker.Score(ctx, query, docs)
	if err != nil {
		logx.Warn().Err(err).Msg("Reranking failed, keeping store order")
		return hits
	}
	// Only non-empty texts were scored, so one empty hit also lands here and
	// the whole turn keeps store order.
	if len(scores) != len(hits) {
		logx.Warn().Int("scores", len(scores)).Int("hits", len(hits)).Msg("Rerank score count mismatch, keeping store order")
		return hits
	}

	idx := make([]int, len(hits))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]] > scores[idx[j]] })

	out := make([]memory.Hit, len(hits))
	for i, k := range idx {
		out[i] = hits[k]
	}
	logx.Debug().Int("hits", len(out)).Msg("Memory hits reranked")
	return out
}
