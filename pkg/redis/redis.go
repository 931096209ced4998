package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config is filled by envconfig from REDIS_URL, REDIS_READ_TIMEOUT, etc.
// URL is optional: an empty URL means the Redis-backed conversation log is disabled.
type Config struct {
	URL          string `split_words:"true"`
	ReadTimeout  int    `split_words:"true" default:"3"`
	WriteTimeout int    `split_words:"true" default:"3"`
	DialTimeout  int    `split_words:"true" default:"5"`
	PoolSize     int    `split_words:"true" default:"4"`
}

// Enabled reports whether a Redis URL was configured.
func (r *Config) Enabled() bool {
	return r.URL != ""
}

// New connects to Redis and verifies the connection with a PING bounded by the dial timeout.
func (r *Config) New(ctx context.Context) (*redis.Client, error) {
	if !r.Enabled() {
		return nil, fmt.Errorf("redis url is empty")
	}
	opts, err := redis.ParseURL(r.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.ReadTimeout = time.Duration(r.ReadTimeout) * time.Second
	opts.WriteTimeout = time.Duration(r.WriteTimeout) * time.Second
	opts.DialTimeout = time.Duration(r.DialTimeout) * time.Second
	if r.PoolSize > 0 {
		opts.PoolSize = r.PoolSize
	}

	client := redis.NewClient(opts)

	pingTimeout := opts.DialTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func (r *Config) MustNew(ctx context.Context) *redis.Client {
	client, err := r.New(ctx)
	if err != nil {
		panic(err)
	}

	return client
}
