package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/model"
)

// now is swapped in tests.
var now = time.Now

func createCurrentTimeTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCurrentTime,
			Desc: "Get the current date and time, optionally in a given IANA time zone such as Asia/Kolkata.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"timezone": {
					Type: schema.String,
					Desc: "IANA time zone name. Defaults to the local zone.",
				},
			}),
		},
		currentTime,
	)
}

func currentTime(_ context.Context, in *model.CurrentTimeInput) (*model.CurrentTimeOutput, error) {
	loc := time.Local
	if tz := strings.TrimSpace(in.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("unknown time zone %q", tz)
		}
		loc = l
	}
	t := now().In(loc)
	return &model.CurrentTimeOutput{
		Time:     t.Format(time.RFC3339),
		Timezone: loc.String(),
		Weekday:  t.Weekday().String(),
	}, nil
}
