package model

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// Outcome classifies how a pipeline node finished.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDegraded Outcome = "degraded" // a fallback was used, the turn continues
	OutcomeFatal    Outcome = "fatal"    // generation failed, an apology replaced the answer
	OutcomeSkipped  Outcome = "skipped"  // preconditions missing, nothing to do
)

// NodeResult is the outcome of a single node visit.
type NodeResult struct {
	Node    string  `json:"node"`
	Outcome Outcome `json:"outcome"`
	Err     string  `json:"error,omitempty"`
}

// ProcessingMetadata accumulates across the whole run and is never reset by a node.
type ProcessingMetadata struct {
	PipelineID       string                   `json:"pipeline_id"`
	StartTime        time.Time                `json:"start_time"`
	NodeTimings      map[string]time.Duration `json:"node_timings"`
	NodesExecuted    []string                 `json:"nodes_executed"`
	Results          []NodeResult             `json:"results"`
	MemoryUpdated    bool                     `json:"memory_updated"`
	MemoryUpdateErr  string                   `json:"memory_update_error,omitempty"`
	LogUpdated       bool                     `json:"log_updated"`
	ContextHits      int                      `json:"context_hits"`
	ModelCalls       int                      `json:"model_calls"`
	ToolCycles       int                      `json:"tool_cycles"`
	ToolLimitReached bool                     `json:"tool_limit_reached"`
	TotalCostUSD     float64                  `json:"total_cost_usd"`
}

// Record appends a node result.
func (m *ProcessingMetadata) Record(node string, outcome Outcome, err error) {
	r := NodeResult{Node: node, Outcome: outcome}
	if err != nil {
		r.Err = err.Error()
	}
	m.Results = append(m.Results, r)
}

// LastResult returns the most recent result recorded for node.
func (m *ProcessingMetadata) LastResult(node string) (NodeResult, bool) {
	for i := len(m.Results) - 1; i >= 0; i-- {
		if m.Results[i].Node == node {
			return m.Results[i], true
		}
	}
	return NodeResult{}, false
}

// PipelineState is owned by a single pipeline run and discarded when it completes.
// Nodes receive and return the same pointer; the graph never runs two nodes at once.
type PipelineState struct {
	UserInput      string
	SessionID      string
	Persona        *Persona
	UserName       string
	ContextSummary string

	// Messages is the working sequence sent to the model, including tool turns.
	Messages []*schema.Message
	// PendingToolCalls is the assistant message whose tool calls still need running.
	PendingToolCalls *schema.Message
	FinalResponse    string

	Metadata ProcessingMetadata
}

// TurnInput is what a caller hands the pipeline for one turn.
type TurnInput struct {
	SessionID string `json:"session_id"`
	UserInput string `json:"user_input"`
	// PipelineID is optional; START generates one when empty.
	PipelineID string `json:"pipeline_id,omitempty"`
}
