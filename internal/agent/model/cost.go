package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Pricing defines USD cost per 1M tokens for input/output.
type Pricing struct {
	InputPerM  float64
	OutputPerM float64
}

// defaultPricing holds USD pricing per 1M text tokens for the providers we wire.
var defaultPricing = map[string]Pricing{
	"gemini-2.5-flash":      {InputPerM: 0.30, OutputPerM: 2.50},
	"gemini-2.5-flash-lite": {InputPerM: 0.10, OutputPerM: 0.40},
	"gemini-2.5-pro":        {InputPerM: 1.25, OutputPerM: 10.00},
	"claude-sonnet-4-5":     {InputPerM: 3.00, OutputPerM: 15.00},
	"claude-haiku-4-5":      {InputPerM: 1.00, OutputPerM: 5.00},
}

// ResolvePricing returns pricing for a model. Provider prefixes such as
// "gemini/" are ignored; unknown models cost zero.
func ResolvePricing(model string) Pricing {
	name := model
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if p, ok := defaultPricing[name]; ok {
		return p
	}
	return Pricing{}
}

// ComputeCost converts token usage to USD cost using per-1M Pricing.
func ComputeCost(usage *schema.TokenUsage, p Pricing) (inputCost, outputCost, total float64) {
	if usage == nil {
		return 0, 0, 0
	}
	inputCost = p.InputPerM * float64(usage.PromptTokens) / 1_000_000.0
	outputCost = p.OutputPerM * float64(usage.CompletionTokens) / 1_000_000.0
	total = inputCost + outputCost
	return
}
