package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/memory"
)

const (
	ToolCalculator     = "calculator"
	ToolCurrentTime    = "current_time"
	ToolRecallMemories = "recall_memories"
)

// GetTools returns the fixed tool set bound to the response model. The
// recall tool is only included when a gateway is available. Failures of any
// tool are reported to the model as error payloads.
func GetTools(gw *memory.Gateway) []tool.BaseTool {
	ts := []tool.BaseTool{
		safe(createCalculatorTool()),
		safe(createCurrentTimeTool()),
	}
	if gw != nil {
		ts = append(ts, safe(createRecallMemoriesTool(gw)))
	}
	return ts
}

// GetToolInfos collects the schema of every tool for binding.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
