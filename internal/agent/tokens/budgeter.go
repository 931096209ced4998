package tokens

import (
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/dgraph-io/ristretto"

	logx "github.com/mNandhu/PACE/pkg/logger"
)

// DefaultMessageOverhead approximates the tokens spent on role framing per message.
const DefaultMessageOverhead = 4

// Budgeter counts tokens for messages and prunes sequences to a ceiling.
// Counting never fails: any counter error or panic falls back to EstimateTokens.
type Budgeter struct {
	counter  Counter
	overhead int
	cache    *ristretto.Cache
}

type Option func(*Budgeter)

// WithOverhead overrides the per-message overhead.
func WithOverhead(n int) Option {
	return func(b *Budgeter) {
		if n >= 0 {
			b.overhead = n
		}
	}
}

// WithCache memoizes text counts. Cache writes are asynchronous, so a
// freshly counted text may be recounted once.
func WithCache(c *ristretto.Cache) Option {
	return func(b *Budgeter) {
		b.cache = c
	}
}

// NewCountCache builds a ristretto cache sized for maxEntries text counts.
func NewCountCache(maxEntries int64) (*ristretto.Cache, error) {
	if maxEntries <= 0 {
		maxEntries = 10_000
	}
	return ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
}

// NewBudgeter returns a Budgeter; a nil counter means heuristic counting only.
func NewBudgeter(counter Counter, opts ...Option) *Budgeter {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	b := &Budgeter{
		counter:  counter,
		overhead: DefaultMessageOverhead,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Count returns the overhead plus the tokens of the message text.
func (b *Budgeter) Count(msg *schema.Message) int {
	if msg == nil {
		return 0
	}
	return b.overhead + b.CountText(messageText(msg))
}

// CountAll sums Count over the sequence.
func (b *Budgeter) CountAll(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += b.Count(m)
	}
	return total
}

// CountText counts raw text with the configured counter.
func (b *Budgeter) CountText(text string) (n int) {
	if text == "" {
		return 0
	}
	if b.cache != nil {
		if v, ok := b.cache.Get(text); ok {
			if cached, ok := v.(int); ok {
				return cached
			}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logx.Warn().Interface("panic", r).Msg("token counter panicked, using length estimate")
			n = EstimateTokens(text)
		}
	}()

	n, err := b.counter.CountText(text)
	if err != nil {
		logx.Debug().Err(err).Msg("token counter failed, using length estimate")
		return EstimateTokens(text)
	}
	if b.cache != nil {
		b.cache.Set(text, n, 1)
	}
	return n
}

// Prune returns msgs unchanged when it fits within ceiling. Otherwise it
// returns a new slice built by repeatedly dropping the earliest non-system
// message (or the earliest message once only system messages remain) until
// the total fits or nothing is left. The input slice is never modified.
func (b *Budgeter) Prune(msgs []*schema.Message, ceiling int) []*schema.Message {
	total := b.CountAll(msgs)
	if total <= ceiling {
		return msgs
	}

	logx.Debug().Int("tokens", total).Int("ceiling", ceiling).Int("messages", len(msgs)).Msg("Pruning messages")

	out := make([]*schema.Message, len(msgs))
	copy(out, msgs)
	for len(out) > 0 && total > ceiling {
		idx := firstNonSystem(out)
		if idx < 0 {
			idx = 0
		}
		out = append(out[:idx], out[idx+1:]...)
		total = b.CountAll(out)
	}

	logx.Debug().Int("tokens", total).Int("messages", len(out)).Msg("Pruned messages")
	return out
}

func firstNonSystem(msgs []*schema.Message) int {
	for i, m := range msgs {
		if m == nil || m.Role != schema.System {
			return i
		}
	}
	return -1
}

// messageText is the content plus any tool-call names and arguments, which
// are sent to the model as part of the message.
func messageText(msg *schema.Message) string {
	if len(msg.ToolCalls) == 0 {
		return msg.Content
	}
	var sb strings.Builder
	sb.WriteString(msg.Content)
	for _, tc := range msg.ToolCalls {
		sb.WriteString(" ")
		sb.WriteString(tc.Function.Name)
		sb.WriteString(" ")
		sb.WriteString(tc.Function.Arguments)
	}
	return sb.String()
}
