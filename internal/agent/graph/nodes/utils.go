package nodes

import (
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/model"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

// Node names, as recorded in ProcessingMetadata.
const (
	NodeStart           = "START"
	NodeIdentifyContext = "IDENTIFY_CONTEXT"
	NodeGenerate        = "GENERATE"
	NodeTools           = "TOOLS"
	NodeUpdateMemory    = "UPDATE_MEMORY"
)

const DefaultMaxToolCycles = 5

// normalizeMaxToolCycles returns a sane default when the provided value is invalid.
func normalizeMaxToolCycles(n int) int {
	if n <= 0 {
		return DefaultMaxToolCycles
	}
	return n
}

// track records one visit of node. Use as: defer track(state, NodeX, time.Now()).
func track(state *model.PipelineState, node string, start time.Time) {
	if state.Metadata.NodeTimings == nil {
		state.Metadata.NodeTimings = map[string]time.Duration{}
	}
	state.Metadata.NodeTimings[node] += time.Since(start)
	state.Metadata.NodesExecuted = append(state.Metadata.NodesExecuted, node)
}

// toolLimitReached reports whether another tool cycle would exceed max and
// marks the state when it would.
func toolLimitReached(state *model.PipelineState, max int) bool {
	if state.Metadata.ToolCycles >= normalizeMaxToolCycles(max) {
		state.Metadata.ToolLimitReached = true
		return true
	}
	return false
}

// hasPendingToolCalls is the routing predicate after GENERATE.
func hasPendingToolCalls(state *model.PipelineState) bool {
	return state.PendingToolCalls != nil && len(state.PendingToolCalls.ToolCalls) > 0
}

// normalizeToolCallIDs fills in ids some providers leave empty.
func normalizeToolCallIDs(state *model.PipelineState, msg *schema.Message) {
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = fmt.Sprintf("call_%d_%d", state.Metadata.ToolCycles+1, i)
		}
	}
}

// dropOrphanToolResults removes tool results whose assistant tool call is no
// longer in msgs. Providers reject a tool result without its call.
func dropOrphanToolResults(msgs []*schema.Message) []*schema.Message {
	calls := map[string]bool{}
	for _, m := range msgs {
		if m != nil {
			for _, tc := range m.ToolCalls {
				calls[tc.ID] = true
			}
		}
	}

	out := make([]*schema.Message, 0, len(msgs))
	for _, m := range msgs {
		if m != nil && m.Role == schema.Tool && !calls[m.ToolCallID] {
			continue
		}
		out = append(out, m)
	}
	if len(out) == len(msgs) {
		return msgs
	}
	return out
}

// accountUsage adds the cost of one model reply to the run total.
func accountUsage(state *model.PipelineState, modelName string, out *schema.Message) {
	if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(modelName))
	state.Metadata.TotalCostUSD += totalC

	logx.Debug().
		Str("pipeline_id", state.Metadata.PipelineID).
		Str("node", NodeGenerate).
		Str("model", modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", state.Metadata.TotalCostUSD).
		Msg("LLM usage")
}
