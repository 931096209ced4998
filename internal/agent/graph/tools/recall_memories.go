package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/memory"
	"github.com/mNandhu/PACE/internal/agent/model"
)

const (
	defaultRecallLimit = 5
	maxRecallLimit     = 20
)

func createRecallMemoriesTool(gw *memory.Gateway) tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolRecallMemories,
			Desc: "Search long-term memory of past conversations with this user. Use it when the user refers to something discussed before that is not in the current context.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "What to look for, in a few words",
					Required: true,
				},
				"limit": {
					Type: schema.Integer,
					Desc: "Maximum number of memories (default 5, max 20)",
				},
			}),
		},
		func(ctx context.Context, in *model.RecallMemoriesInput) (*model.RecallMemoriesOutput, error) {
			q := strings.TrimSpace(in.Query)
			if q == "" {
				return nil, fmt.Errorf("query is required")
			}
			res, err := gw.Search(ctx, q, clampInt(in.Limit, defaultRecallLimit, maxRecallLimit))
			if err != nil {
				return nil, err
			}
			out := &model.RecallMemoriesOutput{Memories: []string{}}
			for _, h := range res.Hits {
				if h.Text != "" {
					out.Memories = append(out.Memories, h.Text)
				}
			}
			out.Total = len(out.Memories)
			return out, nil
		},
	)
}

// clampInt returns v limited to [1, max], or def when v is unset.
func clampInt(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
