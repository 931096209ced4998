package tokens

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

type failingCounter struct{}

func (failingCounter) CountText(string) (int, error) { return 0, errors.New("no tokenizer") }

type panickingCounter struct{}

func (panickingCounter) CountText(string) (int, error) { panic("boom") }

// fixed returns a message whose content costs n heuristic tokens.
func fixed(role schema.RoleType, n int) *schema.Message {
	return &schema.Message{Role: role, Content: strings.Repeat("abcd", n)}
}

func TestCountAddsOverhead(t *testing.T) {
	b := NewBudgeter(HeuristicCounter{})
	if got := b.Count(fixed(schema.User, 10)); got != 14 {
		t.Errorf("expected 14, got %d", got)
	}
	if got := b.Count(&schema.Message{Role: schema.User}); got != DefaultMessageOverhead {
		t.Errorf("empty message: expected %d, got %d", DefaultMessageOverhead, got)
	}
	if got := b.Count(nil); got != 0 {
		t.Errorf("nil message: expected 0, got %d", got)
	}
}

func TestCountIncludesToolCalls(t *testing.T) {
	b := NewBudgeter(HeuristicCounter{})
	msg := schema.AssistantMessage("", []schema.ToolCall{{
		ID:       "call_1",
		Function: schema.FunctionCall{Name: "calculator", Arguments: `{"a":1}`},
	}})
	if got := b.Count(msg); got <= DefaultMessageOverhead {
		t.Errorf("expected tool call text to be counted, got %d", got)
	}
}

func TestCountFallsBackOnCounterFailure(t *testing.T) {
	for name, c := range map[string]Counter{"error": failingCounter{}, "panic": panickingCounter{}} {
		t.Run(name, func(t *testing.T) {
			b := NewBudgeter(c)
			if got := b.Count(fixed(schema.User, 5)); got != 9 {
				t.Errorf("expected heuristic 9, got %d", got)
			}
		})
	}
}

func TestCountWithCache(t *testing.T) {
	cache, err := NewCountCache(100)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	defer cache.Close()

	b := NewBudgeter(HeuristicCounter{}, WithCache(cache), WithOverhead(0))
	msg := fixed(schema.User, 7)
	for i := 0; i < 3; i++ {
		if got := b.Count(msg); got != 7 {
			t.Fatalf("pass %d: expected 7, got %d", i, got)
		}
		cache.Wait()
	}
}

func TestPruneIdentityWhenFitting(t *testing.T) {
	b := NewBudgeter(HeuristicCounter{})
	in := []*schema.Message{fixed(schema.System, 3), fixed(schema.User, 3)}
	out := b.Prune(in, 100)
	if len(out) != len(in) || &out[0] != &in[0] {
		t.Fatal("expected the same slice back when it already fits")
	}
}

func TestPruneDropsEarliestNonSystemFirst(t *testing.T) {
	b := NewBudgeter(HeuristicCounter{})
	sys := fixed(schema.System, 10)
	u1 := fixed(schema.User, 10)
	a1 := fixed(schema.Assistant, 10)
	u2 := fixed(schema.User, 10)
	in := []*schema.Message{sys, u1, a1, u2}

	out := b.Prune(in, 30)
	if len(out) != 2 || out[0] != sys || out[1] != u2 {
		t.Fatalf("expected [system, latest user], got %d messages", len(out))
	}
	if len(in) != 4 || in[1] != u1 || in[2] != a1 {
		t.Error("input slice was modified")
	}
}

func TestPruneRemovesSystemOnlyAsLastResort(t *testing.T) {
	b := NewBudgeter(HeuristicCounter{})
	s1 := fixed(schema.System, 10)
	s2 := fixed(schema.System, 10)

	out := b.Prune([]*schema.Message{s1, s2}, 20)
	if len(out) != 1 || out[0] != s2 {
		t.Fatalf("expected only the later system message, got %d", len(out))
	}

	out = b.Prune([]*schema.Message{s1, s2}, 0)
	if len(out) != 0 {
		t.Fatalf("expected empty sequence, got %d", len(out))
	}
}

func TestPruneProperties(t *testing.T) {
	b := NewBudgeter(HeuristicCounter{})
	rng := rand.New(rand.NewSource(42))
	roles := []schema.RoleType{schema.System, schema.User, schema.Assistant, schema.Tool}

	for iter := 0; iter < 500; iter++ {
		n := rng.Intn(12)
		in := make([]*schema.Message, n)
		for i := range in {
			in[i] = fixed(roles[rng.Intn(len(roles))], rng.Intn(30))
		}
		ceiling := rng.Intn(200)

		out := b.Prune(in, ceiling)
		if len(out) > 0 && b.CountAll(out) > ceiling {
			t.Fatalf("iter %d: %d tokens exceed ceiling %d", iter, b.CountAll(out), ceiling)
		}

		kept := make(map[*schema.Message]bool, len(out))
		nonSystemKept := false
		for _, m := range out {
			kept[m] = true
			if m.Role != schema.System {
				nonSystemKept = true
			}
		}
		for _, m := range in {
			if m.Role == schema.System && !kept[m] && nonSystemKept {
				t.Fatalf("iter %d: system message dropped while non-system messages remain", iter)
			}
		}

		// Survivors keep their relative order.
		j := 0
		for _, m := range in {
			if j < len(out) && out[j] == m {
				j++
			}
		}
		if j != len(out) {
			t.Fatalf("iter %d: pruned sequence is not an ordered subsequence", iter)
		}
	}
}
