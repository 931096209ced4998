package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/mNandhu/PACE/internal/agent/graph/conversations"
	"github.com/mNandhu/PACE/internal/agent/graph/nodes"
	"github.com/mNandhu/PACE/internal/agent/graph/observers"
	"github.com/mNandhu/PACE/internal/agent/graph/tools"
	"github.com/mNandhu/PACE/internal/agent/memory"
	"github.com/mNandhu/PACE/internal/agent/model"
	"github.com/mNandhu/PACE/internal/agent/recall"
	"github.com/mNandhu/PACE/internal/agent/tokens"
	logx "github.com/mNandhu/PACE/pkg/logger"
)

// Config holds every collaborator the pipeline needs. Nothing is looked up
// globally; the session builds one Config per persona.
type Config struct {
	ChatModel *nodes.ChatModel
	Gateway   *memory.Gateway
	Assembler *recall.Assembler
	History   *conversations.HistoryManager
	Budgeter  *tokens.Budgeter

	Persona  *model.Persona
	UserName string

	MaxMemories      int
	IncludeRelations bool
	Rerank           bool
	HistoryMaxTokens int
	PromptMaxTokens  int
	MaxToolCycles    int
}

// Runner executes the compiled graph for one turn at a time.
type Runner struct {
	runnable compose.Runnable[model.TurnInput, *model.PipelineState]
}

// Invoke runs one turn. Node failures are reported in the returned state's
// metadata; an error here means the graph itself could not run.
func (r *Runner) Invoke(ctx context.Context, in model.TurnInput) (*model.PipelineState, error) {
	if in.PipelineID == "" {
		in.PipelineID = uuid.NewString()
	}
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks(in.PipelineID)))
	if err != nil {
		logx.Error().Err(err).Str("pipeline_id", in.PipelineID).Msg("Pipeline run failed")
		return nil, err
	}
	return out, nil
}

// NewRunner builds and compiles the graph.
func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	runnable, err := BuildGraph(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Response graph built successfully")
	return &Runner{runnable: runnable}, nil
}

// GraphBuilder handles the construction of the pipeline graph
type GraphBuilder struct {
	config *Config
	deps   *nodes.Deps
	graph  *compose.Graph[model.TurnInput, *model.PipelineState]
}

// BuildGraph constructs and returns the compiled pipeline graph
func BuildGraph(ctx context.Context, config *Config) (compose.Runnable[model.TurnInput, *model.PipelineState], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModel == nil || config.ChatModel.Model == nil {
		return nil, fmt.Errorf("chat model is not properly initialized")
	}
	if config.History == nil {
		return nil, fmt.Errorf("history manager is nil")
	}
	if config.Assembler == nil {
		config.Assembler = recall.NewAssembler(nil)
	}
	if config.Budgeter == nil {
		config.Budgeter = tokens.NewBudgeter(nil)
	}

	b := &GraphBuilder{
		config: config,
		deps: &nodes.Deps{
			Gateway:          config.Gateway,
			Assembler:        config.Assembler,
			History:          config.History,
			ChatModel:        config.ChatModel,
			Budgeter:         config.Budgeter,
			Persona:          config.Persona,
			UserName:         config.UserName,
			MaxMemories:      config.MaxMemories,
			IncludeRelations: config.IncludeRelations,
			Rerank:           config.Rerank,
			HistoryMaxTokens: config.HistoryMaxTokens,
			PromptMaxTokens:  config.PromptMaxTokens,
			MaxToolCycles:    config.MaxToolCycles,
		},
		graph: compose.NewGraph[model.TurnInput, *model.PipelineState](),
	}

	if err := b.setupTools(ctx); err != nil {
		return nil, err
	}
	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	if err := b.addBranches(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

// setupTools binds the tool set to the response model and builds the tools node.
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	toolset := tools.GetTools(b.config.Gateway)
	toolInfos, err := tools.GetToolInfos(ctx, toolset)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	// Bind on a copy so one ChatModel can serve several graphs.
	cm := *b.config.ChatModel
	if err := cm.BindTools(toolInfos); err != nil {
		return err
	}
	b.deps.ChatModel = &cm

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               toolset,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown or invalid tool call; returning fallback result")
			return tools.ErrorPayload(name, "unknown tool"), nil
		},
		ToolArgumentsHandler: func(ctx context.Context, name, arguments string) (string, error) {
			return sanitizeArguments(name, arguments), nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}
	b.deps.Tools = toolsNode
	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	add := []struct {
		key    string
		lambda *compose.Lambda
	}{
		{nodes.NodeStart, nodes.NewStartNode(b.deps)},
		{nodes.NodeIdentifyContext, nodes.NewIdentifyContextNode(b.deps)},
		{nodes.NodeGenerate, nodes.NewGenerateNode(b.deps)},
		{nodes.NodeTools, nodes.NewToolsNode(b.deps)},
		{nodes.NodeUpdateMemory, nodes.NewUpdateMemoryNode(b.deps)},
	}
	for _, n := range add {
		if err := b.graph.AddLambdaNode(n.key, n.lambda, compose.WithNodeName(n.key)); err != nil {
			return fmt.Errorf("add node %s: %w", n.key, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeStart},
		{nodes.NodeStart, nodes.NodeIdentifyContext},
		{nodes.NodeIdentifyContext, nodes.NodeGenerate},
		{nodes.NodeTools, nodes.NodeGenerate},
		{nodes.NodeUpdateMemory, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	toolBranch := compose.NewGraphBranch(
		nodes.NewToolsCondition(),
		map[string]bool{
			nodes.NodeTools:        true,
			nodes.NodeUpdateMemory: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeGenerate, toolBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tool branch")
		return fmt.Errorf("error adding tool branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.PipelineState], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("pace_pipeline"),
		compose.WithMaxRunSteps(maxRunSteps(b.config.MaxToolCycles)),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

// maxRunSteps leaves room for every allowed tool cycle (TOOLS plus GENERATE)
// and the final capped GENERATE visit.
func maxRunSteps(maxToolCycles int) int {
	if maxToolCycles <= 0 {
		maxToolCycles = nodes.DefaultMaxToolCycles
	}
	steps := 10 + maxToolCycles*2
	if steps < 20 {
		steps = 20
	}
	return steps
}

// sanitizeArguments trims string fields and coerces numeric strings for the
// numeric parameters. It never fails; unparseable input is passed through.
func sanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		return arguments
	}

	var numeric []string
	switch name {
	case tools.ToolCalculator:
		numeric = []string{"a", "b"}
	case tools.ToolRecallMemories:
		numeric = []string{"limit"}
	}

	for k, v := range m {
		if s, ok := v.(string); ok {
			m[k] = strings.TrimSpace(s)
		}
	}
	for _, k := range numeric {
		s, ok := m[k].(string)
		if !ok {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			m[k] = f
		} else {
			delete(m, k)
		}
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}
