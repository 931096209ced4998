package chromem

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	chromem "github.com/philippgille/chromem-go"
)

// DefaultDimensions matches common small sentence-embedding models.
const DefaultDimensions = 384

// NewHashEmbedding returns a deterministic, offline embedding function. Each
// lowercased word is hashed (FNV-1a) into a bucket with a hash-derived sign,
// so texts sharing words end up close under cosine similarity. It is meant
// for local runs and tests, not for semantic quality.
func NewHashEmbedding(dims int) chromem.EmbeddingFunc {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return func(_ context.Context, text string) ([]float32, error) {
		vec := make([]float32, dims)
		for _, word := range tokenize(text) {
			h := fnv.New64a()
			_, _ = h.Write([]byte(word))
			sum := h.Sum64()
			idx := int(sum % uint64(dims))
			if sum&(1<<63) != 0 {
				vec[idx] -= 1
			} else {
				vec[idx] += 1
			}
		}
		return normalize(vec), nil
	}
}

// NewOllamaEmbedding uses chromem's built-in Ollama client.
func NewOllamaEmbedding(model, baseURL string) chromem.EmbeddingFunc {
	return chromem.NewEmbeddingFuncOllama(model, baseURL)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// normalize converts the vector to unit length. An all-zero vector (empty
// text) gets a fixed unit vector so chromem can still store it.
func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	n := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
