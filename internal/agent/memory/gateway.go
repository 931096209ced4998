package memory

import (
	"context"
	"errors"
	"strings"
	"time"

	errx "github.com/mNandhu/PACE/internal/core/error"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

// Gateway binds a Store to one user and adds logging and error wrapping.
type Gateway struct {
	store  Store
	userID string
}

func NewGateway(store Store, userID string) (*Gateway, error) {
	if store == nil {
		return nil, errors.New("memory store is nil")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("memory gateway needs a user id")
	}
	return &Gateway{store: store, userID: userID}, nil
}

func (g *Gateway) UserID() string {
	return g.userID
}

// AddTurn submits the user/assistant pair of one turn.
func (g *Gateway) AddTurn(ctx context.Context, userInput, response string) (*AddResult, error) {
	start := time.Now()
	msgs := []Message{
		{Role: "user", Content: userInput},
		{Role: "assistant", Content: response},
	}
	res, err := g.store.Add(ctx, msgs, g.userID)
	if err != nil {
		logx.Error().Err(err).Str("user_id", g.userID).Msg("Failed to add conversation turn to memory")
		return nil, errx.WrapStore(err)
	}
	logx.Debug().Str("user_id", g.userID).Dur("took", time.Since(start)).Msg("Conversation turn added to memory")
	return res, nil
}

// Search queries memories for the bound user. A nil result from the store is
// normalised to an empty one.
func (g *Gateway) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	start := time.Now()
	res, err := g.store.Search(ctx, query, g.userID, limit)
	if err != nil {
		logx.Error().Err(err).Str("user_id", g.userID).Msg("Memory search failed")
		return nil, errx.WrapStore(err)
	}
	if res == nil {
		res = &SearchResult{}
	}
	logx.Debug().
		Str("user_id", g.userID).
		Int("hits", len(res.Hits)).
		Int("relations", len(res.Relations)).
		Dur("took", time.Since(start)).
		Msg("Memory search completed")
	return res, nil
}

// Reset deletes every memory of the bound user.
func (g *Gateway) Reset(ctx context.Context) error {
	if err := g.store.Reset(ctx, g.userID); err != nil {
		logx.Error().Err(err).Str("user_id", g.userID).Msg("Memory reset failed")
		return errx.WrapStore(err)
	}
	logx.Info().Str("user_id", g.userID).Msg("All memories reset")
	return nil
}
