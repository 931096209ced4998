// Package retry runs calls with exponential backoff when a provider reports
// throttling. Any other failure is returned on the first attempt.
package retry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	errx "github.com/mNandhu/PACE/internal/core/error"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

// Policy is immutable per call site.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var (
	// ModelPolicy is used around language model calls.
	ModelPolicy = Policy{MaxRetries: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
	// DefaultPolicy is used for everything else that opts in.
	DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second}
)

// Delay returns min(BaseDelay * 2^attempt, MaxDelay); attempts start at 0.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if d >= p.MaxDelay {
			break
		}
		d *= 2
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Sleeper blocks for d. Implementations may return early with ctx.Err().
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var rateLimitMarkers = []string{"rate limit", "429"}

// IsRateLimited reports whether err looks like provider throttling: the
// message mentions a rate limit or a 429 status, or an errx.AppError in the
// chain carries http.StatusTooManyRequests.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Status == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Executor applies a Policy. The zero value is not usable; call New.
type Executor struct {
	policy   Policy
	sleep    Sleeper
	classify func(error) bool
	name     string
}

type Option func(*Executor)

// WithSleeper replaces the wait between attempts, typically with a fake in tests.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) {
		if s != nil {
			e.sleep = s
		}
	}
}

// WithClassifier replaces IsRateLimited as the retry predicate.
func WithClassifier(fn func(error) bool) Option {
	return func(e *Executor) {
		if fn != nil {
			e.classify = fn
		}
	}
}

// WithName labels log lines emitted by this executor.
func WithName(name string) Option {
	return func(e *Executor) {
		e.name = name
	}
}

func New(policy Policy, opts ...Option) *Executor {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	e := &Executor{
		policy:   policy,
		sleep:    SleepContext,
		classify: IsRateLimited,
		name:     "call",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the executor's policy.
func (e *Executor) Policy() Policy {
	return e.policy
}

// Do calls fn until it succeeds, fails with a non-rate-limit error, or
// MaxRetries retries have been spent. A persistently throttled call is
// attempted MaxRetries+1 times and the last error is returned unchanged.
func Do[T any](ctx context.Context, e *Executor, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logx.Info().Str("call", e.name).Int("attempt", attempt+1).Msg("Call succeeded after retry")
			}
			return v, nil
		}
		if !e.classify(err) {
			return zero, err
		}
		if attempt >= e.policy.MaxRetries {
			logx.Error().Err(err).Str("call", e.name).Int("attempts", attempt+1).Msg("Rate limit retries exhausted")
			return zero, err
		}

		delay := e.policy.Delay(attempt)
		logx.Warn().Err(err).
			Str("call", e.name).
			Int("attempt", attempt+1).
			Int("max_retries", e.policy.MaxRetries).
			Dur("delay", delay).
			Msg("Rate limited, backing off")
		if serr := e.sleep(ctx, delay); serr != nil {
			return zero, serr
		}
	}
}

// Wrap turns fn into a call that always goes through Do.
func Wrap[T any](e *Executor, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, e, fn)
	}
}
