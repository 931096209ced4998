package memory

import (
	"encoding/json"
	"fmt"
	"strings"
)

var (
	textFields     = []string{"memory", "text", "content"}
	relationFields = []string{"relation", "content"}
)

// HitFromRecord converts one decoded search record into a Hit. Maps yield a
// scored hit from the first non-empty of memory, text or content; anything
// else becomes raw text.
func HitFromRecord(v any) Hit {
	switch rec := v.(type) {
	case nil:
		return RawHit("")
	case string:
		return RawHit(rec)
	case map[string]any:
		text, ok := firstString(rec, textFields)
		if !ok {
			return RawHit(stringify(rec))
		}
		return ScoredHit(text, number(rec["score"]), memoryType(rec))
	default:
		return RawHit(stringify(v))
	}
}

// RelationFromRecord converts a graph relation record. Besides the relation
// and content fields it understands source/relationship/destination triples.
func RelationFromRecord(v any) Hit {
	rec, ok := v.(map[string]any)
	if !ok {
		if s, isStr := v.(string); isStr {
			return RawHit(s)
		}
		return RawHit(stringify(v))
	}
	if text, ok := firstString(rec, relationFields); ok {
		return ScoredHit(text, number(rec["score"]), "relation")
	}
	src, _ := rec["source"].(string)
	rel, _ := rec["relationship"].(string)
	dst, _ := rec["destination"].(string)
	if dst == "" {
		dst, _ = rec["target"].(string)
	}
	if src != "" && rel != "" && dst != "" {
		return ScoredHit(fmt.Sprintf("%s -- %s -- %s", src, rel, dst), number(rec["score"]), "relation")
	}
	return RawHit(stringify(rec))
}

func firstString(rec map[string]any, fields []string) (string, bool) {
	for _, f := range fields {
		if s, ok := rec[f].(string); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

func memoryType(rec map[string]any) string {
	for _, f := range []string{"type", "memory_type", "kind"} {
		if s, ok := rec[f].(string); ok && s != "" {
			return s
		}
	}
	if md, ok := rec["metadata"].(map[string]any); ok {
		if s, ok := md["type"].(string); ok {
			return s
		}
	}
	return ""
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
