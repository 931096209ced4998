package model

import (
	"context"
	"time"
)

// ConversationTurn is one completed round trip, as stored in the durable log.
type ConversationTurn struct {
	Timestamp     time.Time `json:"timestamp"`
	UserInput     string    `json:"user_input"`
	FinalResponse string    `json:"final_response"`
	UserID        string    `json:"user_id"`
	PersonaName   string    `json:"persona_name"`
}

// ConversationLog is the append-only transcript for one (user, persona) pair.
type ConversationLog interface {
	// Load returns every turn, oldest first.
	Load(ctx context.Context) ([]ConversationTurn, error)

	// Append records one turn with a fresh timestamp and rewrites the artifact atomically.
	Append(ctx context.Context, userInput, response string) (ConversationTurn, error)

	// Backup copies the current artifact under a timestamped name and returns
	// its identifier, or "" when there is nothing to back up yet.
	Backup(ctx context.Context) (string, error)

	// Clear replaces the live log with an empty one.
	Clear(ctx context.Context) error

	// Reset backs the log up and then clears it, returning the backup identifier.
	Reset(ctx context.Context) (string, error)
}

// ConversationStats summarises a log for the stats command.
type ConversationStats struct {
	TotalTurns    int        `json:"total_turns"`
	LastTimestamp *time.Time `json:"last_timestamp,omitempty"`
}

// StatsOf computes ConversationStats from loaded turns.
func StatsOf(turns []ConversationTurn) ConversationStats {
	stats := ConversationStats{TotalTurns: len(turns)}
	if len(turns) > 0 {
		ts := turns[len(turns)-1].Timestamp
		stats.LastTimestamp = &ts
	}
	return stats
}
