package errx

import (
	"context"
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	RedisConflictMessage = "conversation log changed concurrently, retries exhausted"
	RedisTimeoutMessage  = "redis operation timed out"
)

// WrapRedis maps go-redis errors onto AppError. A lost WATCH race is a 409 so
// callers can tell contention from an unreachable server.
func WrapRedis(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	case errors.Is(err, redis.TxFailedErr):
		return New(err, http.StatusConflict, RedisConflictMessage)
	case errors.Is(err, context.DeadlineExceeded):
		return New(err, http.StatusGatewayTimeout, RedisTimeoutMessage)
	default:
		return New(err, http.StatusBadGateway, RedisErrorMessage)
	}
}
