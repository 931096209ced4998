// Package mem0 talks to a mem0 REST server as the long-term memory store.
package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mNandhu/PACE/internal/agent/memory"
	"github.com/mNandhu/PACE/internal/agent/retry"
)

// Client implements memory.Store over the mem0 server API:
// POST /memories, POST /search and DELETE /memories?user_id=.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   *retry.Executor
}

type Option func(*Client)

// WithAPIKey sends "Authorization: Token <key>" on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithRetry routes every request through the executor, so a throttled
// server (HTTP 429) is retried with backoff.
func WithRetry(e *retry.Executor) Option {
	return func(c *Client) { c.retry = e }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type addRequest struct {
	Messages []memory.Message `json:"messages"`
	UserID   string           `json:"user_id"`
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
	Limit  int    `json:"limit,omitempty"`
}

// envelope accepts both the {"results": [...], "relations": [...]} shape
// and older servers that return a bare list.
type envelope struct {
	Results   []any `json:"results"`
	Relations []any `json:"relations"`
}

func (e *envelope) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &e.Results)
	}
	type plain envelope
	return json.Unmarshal(trimmed, (*plain)(e))
}

func (c *Client) Add(ctx context.Context, msgs []memory.Message, userID string) (*memory.AddResult, error) {
	var env envelope
	if err := c.call(ctx, http.MethodPost, "/memories", addRequest{Messages: msgs, UserID: userID}, &env); err != nil {
		return nil, err
	}
	res := &memory.AddResult{}
	for _, r := range env.Results {
		if m, ok := r.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				res.IDs = append(res.IDs, id)
			}
		}
	}
	return res, nil
}

func (c *Client) Search(ctx context.Context, query, userID string, limit int) (*memory.SearchResult, error) {
	var env envelope
	if err := c.call(ctx, http.MethodPost, "/search", searchRequest{Query: query, UserID: userID, Limit: limit}, &env); err != nil {
		return nil, err
	}
	out := &memory.SearchResult{}
	for _, r := range env.Results {
		if limit > 0 && len(out.Hits) >= limit {
			break
		}
		out.Hits = append(out.Hits, memory.HitFromRecord(r))
	}
	for _, r := range env.Relations {
		out.Relations = append(out.Relations, memory.RelationFromRecord(r))
	}
	return out, nil
}

func (c *Client) Reset(ctx context.Context, userID string) error {
	return c.call(ctx, http.MethodDelete, "/memories?user_id="+url.QueryEscape(userID), nil, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	do := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.do(ctx, method, path, body, out)
	}
	if c.retry != nil {
		_, err := retry.Do(ctx, c.retry, do)
		return err
	}
	_, err := do(ctx)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal mem0 request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mem0 request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mem0 %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode mem0 response: %w", err)
	}
	return nil
}

var _ memory.Store = (*Client)(nil)
