package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/mNandhu/PACE/internal/agent/model"
)

var operators = map[string]string{
	"add":      "+",
	"subtract": "-",
	"multiply": "*",
	"divide":   "/",
	"power":    "^",
}

func createCalculatorTool() tool.InvokableTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCalculator,
			Desc: "Evaluate one arithmetic operation on two numbers. Use it instead of doing arithmetic in your head.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"operation": {
					Type:     schema.String,
					Desc:     "One of: add, subtract, multiply, divide, power",
					Enum:     []string{"add", "subtract", "multiply", "divide", "power"},
					Required: true,
				},
				"a": {
					Type:     schema.Number,
					Desc:     "Left operand",
					Required: true,
				},
				"b": {
					Type:     schema.Number,
					Desc:     "Right operand",
					Required: true,
				},
			}),
		},
		calculate,
	)
}

func calculate(_ context.Context, in *model.CalculatorInput) (*model.CalculatorOutput, error) {
	op := strings.ToLower(strings.TrimSpace(in.Operation))
	sym, ok := operators[op]
	if !ok {
		return nil, fmt.Errorf("unsupported operation %q", in.Operation)
	}

	var r float64
	switch op {
	case "add":
		r = in.A + in.B
	case "subtract":
		r = in.A - in.B
	case "multiply":
		r = in.A * in.B
	case "divide":
		if in.B == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		r = in.A / in.B
	case "power":
		r = math.Pow(in.A, in.B)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return nil, fmt.Errorf("result is not a finite number")
	}

	return &model.CalculatorOutput{
		Expression: fmt.Sprintf("%s %s %s", formatNumber(in.A), sym, formatNumber(in.B)),
		Result:     r,
	}, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
