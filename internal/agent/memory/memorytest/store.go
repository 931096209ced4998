// Package memorytest provides an in-memory Store for tests.
package memorytest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/mNandhu/PACE/internal/agent/memory"
)

// Store keeps messages per user and matches searches by shared words.
// Set the error fields to make the corresponding call fail.
type Store struct {
	mu        sync.Mutex
	data      map[string][]memory.Message
	Relations []memory.Hit

	AddErr    error
	SearchErr error
	ResetErr  error

	AddCalls    int
	SearchCalls int
	ResetCalls  int
}

func New() *Store {
	return &Store{data: map[string][]memory.Message{}}
}

func (s *Store) Add(_ context.Context, msgs []memory.Message, userID string) (*memory.AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AddCalls++
	if s.AddErr != nil {
		return nil, s.AddErr
	}
	res := &memory.AddResult{}
	for _, m := range msgs {
		s.data[userID] = append(s.data[userID], m)
		res.IDs = append(res.IDs, fmt.Sprintf("%s-%d", userID, len(s.data[userID])))
	}
	return res, nil
}

func (s *Store) Search(_ context.Context, query, userID string, limit int) (*memory.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchCalls++
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	words := strings.Fields(strings.ToLower(query))
	res := &memory.SearchResult{Relations: s.Relations}
	for _, m := range s.data[userID] {
		if limit > 0 && len(res.Hits) >= limit {
			break
		}
		content := strings.ToLower(m.Content)
		for _, w := range words {
			if strings.Contains(content, w) {
				res.Hits = append(res.Hits, memory.ScoredHit(m.Content, 1, m.Role))
				break
			}
		}
	}
	return res, nil
}

func (s *Store) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCalls++
	if s.ResetErr != nil {
		return s.ResetErr
	}
	delete(s.data, userID)
	return nil
}

// Messages returns what was stored for userID.
func (s *Store) Messages(userID string) []memory.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memory.Message, len(s.data[userID]))
	copy(out, s.data[userID])
	return out
}
