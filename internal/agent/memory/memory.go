// Package memory is the gateway to the long-term memory store.
//
// Stores speak the add/search/reset contract. Whatever shape a store returns,
// results are converted once, at this boundary, into Hit values so callers
// never inspect raw records.
package memory

import (
	"context"
	"fmt"
)

// HitKind tags the variant held by a Hit.
type HitKind int

const (
	// KindScored is a structured hit with a relevance score.
	KindScored HitKind = iota
	// KindRaw is bare text the store returned without structure.
	KindRaw
)

func (k HitKind) String() string {
	switch k {
	case KindScored:
		return "scored"
	case KindRaw:
		return "raw"
	default:
		return fmt.Sprintf("HitKind(%d)", int(k))
	}
}

// Hit is either Scored(text, score, type) or Raw(text).
type Hit struct {
	Kind  HitKind `json:"kind"`
	Text  string  `json:"text"`
	Score float64 `json:"score,omitempty"`
	// Type is the store's own category for the memory, e.g. "user" or "fact".
	Type string `json:"type,omitempty"`
}

func ScoredHit(text string, score float64, typ string) Hit {
	return Hit{Kind: KindScored, Text: text, Score: score, Type: typ}
}

func RawHit(text string) Hit {
	return Hit{Kind: KindRaw, Text: text}
}

// SearchResult is produced per search call and never persisted.
type SearchResult struct {
	Hits      []Hit `json:"results"`
	Relations []Hit `json:"relations,omitempty"`
}

// Len reports the number of memory hits, not counting relations.
func (r *SearchResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Hits)
}

// Message is one role/content pair submitted to Add.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AddResult reports what the store kept.
type AddResult struct {
	IDs []string `json:"ids,omitempty"`
}

// Store is the external long-term memory contract. Implementations must be
// safe to retry and must serialize their own writes.
type Store interface {
	Add(ctx context.Context, msgs []Message, userID string) (*AddResult, error)
	Search(ctx context.Context, query, userID string, limit int) (*SearchResult, error)
	Reset(ctx context.Context, userID string) error
}
