package recall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Reranker scores documents against a query. Scores are returned in the
// order of docs.
type Reranker interface {
	Score(ctx context.Context, query string, docs []string) ([]float64, error)
}

const (
	healthTimeout = 5 * time.Second
	scoreTimeout  = 30 * time.Second
)

// HTTPReranker calls a scoring service exposing GET /health and
// POST /score_single.
type HTTPReranker struct {
	endpoint string
	task     string
	client   *http.Client
}

func NewHTTPReranker(endpoint, task string) *HTTPReranker {
	return &HTTPReranker{
		endpoint: strings.TrimRight(endpoint, "/"),
		task:     task,
		client:   &http.Client{},
	}
}

type scoreRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Task      string   `json:"task"`
}

type scoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Healthy probes GET /health; only a 200 counts as alive.
func (r *HTTPReranker) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("reranker not available: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reranker health check returned %d", resp.StatusCode)
	}
	return nil
}

// Score checks health first, then posts the documents for scoring.
func (r *HTTPReranker) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	if err := r.Healthy(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(scoreRequest{Query: query, Documents: docs, Task: r.task})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, scoreTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/score_single", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return out.Scores, nil
}
