package tokens

import (
	"errors"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// CharsPerToken is the divisor of the length heuristic used when no tokenizer is available.
const CharsPerToken = 4

// Counter turns text into a token count.
type Counter interface {
	CountText(text string) (int, error)
}

// EstimateTokens is the length-based fallback: characters divided by CharsPerToken.
func EstimateTokens(text string) int {
	return len([]rune(text)) / CharsPerToken
}

// HeuristicCounter counts with EstimateTokens and never fails.
type HeuristicCounter struct{}

func (HeuristicCounter) CountText(text string) (int, error) {
	return EstimateTokens(text), nil
}

var errNoEncoding = errors.New("tokenizer encoding not loaded")

// TiktokenCounter counts BPE tokens with a tiktoken encoding such as cl100k_base.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding. Loading may need network access
// the first time; callers usually fall back to HeuristicCounter on error.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) CountText(text string) (int, error) {
	if c == nil || c.enc == nil {
		return 0, errNoEncoding
	}
	return len(c.enc.Encode(text, nil, nil)), nil
}
