package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mNandhu/PACE/internal/agent/model"
	errx "github.com/mNandhu/PACE/internal/core/error"
	logx "github.com/mNandhu/PACE/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const maxAppendAttempts = 5

// RedisConversationLog stores turns as a Redis list of JSON documents, one
// list per (user, persona) pair.
type RedisConversationLog struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	userID  string
	persona string
	now     func() time.Time
}

func NewRedisConversationLog(rdb redis.UniversalClient, ttl time.Duration, userID, persona string) *RedisConversationLog {
	return &RedisConversationLog{rdb: rdb, ttl: ttl, userID: userID, persona: persona, now: time.Now}
}

func (r *RedisConversationLog) key() string {
	return fmt.Sprintf("conversation:%s:%s:turns", r.userID, r.persona)
}

func (r *RedisConversationLog) backupKey(ts time.Time) string {
	return fmt.Sprintf("conversation:%s:%s:backup:%s", r.userID, r.persona, ts.Format(backupTimeLayout))
}

func (r *RedisConversationLog) Load(ctx context.Context) ([]model.ConversationTurn, error) {
	key := r.key()
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.ConversationTurn{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation log from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]model.ConversationTurn, 0, len(rows))
	for i, s := range rows {
		var t model.ConversationTurn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			logx.Warn().Err(err).Str("key", key).Int("index", i).Msg("skipping unreadable conversation turn")
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Append pushes a turn inside a WATCH/MULTI transaction so the new timestamp
// is always later than the current tail.
func (r *RedisConversationLog) Append(ctx context.Context, userInput, response string) (model.ConversationTurn, error) {
	key := r.key()
	var turn model.ConversationTurn

	txf := func(tx *redis.Tx) error {
		ts := r.now()
		tail, err := tx.LIndex(ctx, key, -1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if tail != "" {
			var last model.ConversationTurn
			if json.Unmarshal([]byte(tail), &last) == nil && !ts.After(last.Timestamp) {
				ts = last.Timestamp.Add(time.Microsecond)
			}
		}

		turn = model.ConversationTurn{
			Timestamp:     ts,
			UserInput:     userInput,
			FinalResponse: response,
			UserID:        r.userID,
			PersonaName:   r.persona,
		}
		b, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("marshal turn: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.RPush(ctx, key, b)
			// extend TTL on touch
			if r.ttl > 0 {
				pipe.Expire(ctx, key, r.ttl)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendAttempts; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return turn, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to append conversation turn to redis")
		return model.ConversationTurn{}, errx.WrapRedis(err)
	}
	return model.ConversationTurn{}, errx.WrapRedis(fmt.Errorf("append to %s: %w", key, redis.TxFailedErr))
}

// Backup copies the list to a timestamped key and returns that key.
func (r *RedisConversationLog) Backup(ctx context.Context) (string, error) {
	key := r.key()
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", errx.WrapRedis(err)
	}
	if len(rows) == 0 {
		return "", nil
	}

	dst := r.backupKey(r.now())
	vals := make([]any, len(rows))
	for i, s := range rows {
		vals[i] = s
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, dst)
		pipe.RPush(ctx, dst, vals...)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", dst).Msg("failed to back up conversation log")
		return "", errx.WrapRedis(err)
	}
	logx.Info().Str("backup", dst).Int("turns", len(rows)).Msg("Conversation log backed up")
	return dst, nil
}

func (r *RedisConversationLog) Clear(ctx context.Context) error {
	key := r.key()
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete conversation log from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationLog) Reset(ctx context.Context) (string, error) {
	return resetLog(ctx, r)
}

var _ model.ConversationLog = (*RedisConversationLog)(nil)
