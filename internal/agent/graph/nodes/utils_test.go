package nodes

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/model"
)

func TestToolLimitReached(t *testing.T) {
	tests := []struct {
		cycles, max int
		want        bool
	}{
		{cycles: 0, max: 3, want: false},
		{cycles: 2, max: 3, want: false},
		{cycles: 3, max: 3, want: true},
		{cycles: 4, max: 0, want: false},
		{cycles: 5, max: 0, want: true},
	}
	for _, tt := range tests {
		state := &model.PipelineState{}
		state.Metadata.ToolCycles = tt.cycles
		if got := toolLimitReached(state, tt.max); got != tt.want || state.Metadata.ToolLimitReached != tt.want {
			t.Errorf("cycles=%d max=%d: got %t", tt.cycles, tt.max, got)
		}
	}
}

func TestTrackAccumulates(t *testing.T) {
	state := &model.PipelineState{}
	track(state, NodeGenerate, time.Now().Add(-2*time.Millisecond))
	track(state, NodeTools, time.Now())
	track(state, NodeGenerate, time.Now().Add(-3*time.Millisecond))

	if got := state.Metadata.NodeTimings[NodeGenerate]; got < 5*time.Millisecond {
		t.Errorf("timings should add up, got %v", got)
	}
	want := []string{NodeGenerate, NodeTools, NodeGenerate}
	for i, n := range want {
		if state.Metadata.NodesExecuted[i] != n {
			t.Fatalf("nodes executed = %v", state.Metadata.NodesExecuted)
		}
	}
}

func TestNormalizeToolCallIDs(t *testing.T) {
	state := &model.PipelineState{}
	state.Metadata.ToolCycles = 1
	msg := schema.AssistantMessage("", []schema.ToolCall{{ID: "keep"}, {}})
	normalizeToolCallIDs(state, msg)
	if msg.ToolCalls[0].ID != "keep" || msg.ToolCalls[1].ID != "call_2_1" {
		t.Errorf("unexpected ids %q %q", msg.ToolCalls[0].ID, msg.ToolCalls[1].ID)
	}
}

func TestAccountUsage(t *testing.T) {
	state := &model.PipelineState{}
	out := schema.AssistantMessage("hi", nil)
	out.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 100_000}}

	accountUsage(state, "gemini-2.5-flash", out)
	accountUsage(state, "gemini-2.5-flash", schema.AssistantMessage("no usage", nil))
	if math.Abs(state.Metadata.TotalCostUSD-0.55) > 1e-9 {
		t.Errorf("cost = %f", state.Metadata.TotalCostUSD)
	}
}

func TestToolsCondition(t *testing.T) {
	cond := NewToolsCondition()
	state := &model.PipelineState{}
	if next, _ := cond(context.Background(), state); next != NodeUpdateMemory {
		t.Errorf("got %s", next)
	}
	state.PendingToolCalls = schema.AssistantMessage("", []schema.ToolCall{{ID: "x"}})
	if next, _ := cond(context.Background(), state); next != NodeTools {
		t.Errorf("got %s", next)
	}
}

func TestNewChatModelErrors(t *testing.T) {
	if _, err := NewChatModel(context.Background(), ChatModelConfig{}); err == nil {
		t.Error("expected error for nil response config")
	}
	_, err := NewChatModel(context.Background(), ChatModelConfig{
		RespConfig: &model.ResponseModelConfig{Provider: "parrot", Model: "x"},
	})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewChatModelAnthropic(t *testing.T) {
	cm, err := NewChatModel(context.Background(), ChatModelConfig{
		APIKey:     "test",
		RespConfig: &model.ResponseModelConfig{Provider: "anthropic", Model: "claude-haiku-4-5", MaxTokens: 256},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cm.Name != "claude-haiku-4-5" || cm.Model == nil {
		t.Errorf("unexpected model %+v", cm)
	}
	if err := cm.BindTools([]*schema.ToolInfo{{Name: "calculator", Desc: "math"}}); err != nil {
		t.Errorf("bind tools: %v", err)
	}
}

func TestDropOrphanToolResults(t *testing.T) {
	call := schema.AssistantMessage("", []schema.ToolCall{{ID: "kept"}})
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.ToolMessage(`{"result":1}`, "pruned"),
		call,
		schema.ToolMessage(`{"result":2}`, "kept"),
	}
	got := dropOrphanToolResults(msgs)
	if len(got) != 3 || got[1] != call || got[2].ToolCallID != "kept" {
		t.Errorf("unexpected messages %+v", got)
	}

	intact := []*schema.Message{schema.UserMessage("hi"), call, schema.ToolMessage("{}", "kept")}
	if got := dropOrphanToolResults(intact); len(got) != 3 {
		t.Errorf("nothing should be dropped, got %d", len(got))
	}
}
