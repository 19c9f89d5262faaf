package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ShayCichocki/gads/internal/orchestrator"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/router"
)

// RunTool handles the gads_run MCP tool.
type RunTool struct {
	orch   Facade
	logger *slog.Logger
}

// NewRunTool creates a RunTool.
func NewRunTool(orch Facade, logger *slog.Logger) *RunTool {
	return &RunTool{orch: orch, logger: logger}
}

// Definition returns the MCP tool definition for registration.
func (t *RunTool) Definition() mcp.Tool {
	return mcp.NewTool("gads_run",
		mcp.WithDescription(
			"Send one request to the best-suited agent. "+
				"The request is classified into a task type unless task_type or agent is given. "+
				"The exchange is recorded on the session.",
		),
		mcp.WithString("request",
			mcp.Required(),
			mcp.Description("What you want done, e.g. 'Implement a double-jump ability'"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to use. Defaults to the current session, or a new one."),
		),
		mcp.WithString("task_type",
			mcp.Description("Explicit task type, e.g. mechanic_design or implement_feature_2d. Skips classification."),
		),
		mcp.WithString("agent",
			mcp.Description("Agent name; its primary task type is used. Ignored when task_type is set."),
		),
		mcp.WithBoolean("approve",
			mcp.Description("Approve tasks that require confirmation (game_concept, architecture, visual_style). Default: false"),
		),
	)
}

// Handle processes the gads_run tool call.
func (t *RunTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input := req.GetString("request", "")
	if strings.TrimSpace(input) == "" {
		return mcp.NewToolResultError("'request' is required"), nil
	}
	tt, err := taskTypeArg(req.GetString("task_type", ""), req.GetString("agent", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := lookupSession(t.orch, req.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx = withApproval(ctx, boolArg(req, "approve", false))
	resp, err := t.orch.Run(ctx, input, sess, tt)
	if err != nil {
		var invErr *orchestrator.InvocationError
		switch {
		case errors.As(err, &invErr):
			return mcp.NewToolResultError(invErr.Error()), nil
		case errors.Is(err, router.ErrUnknownTaskType), errors.Is(err, router.ErrAgentNotRegistered):
			return mcp.NewToolResultError(err.Error()), nil
		}
		t.logger.Error("run failed", "error", err)
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", resp.AgentName)
	if resp.Model != "" {
		fmt.Fprintf(&b, " (%s)", resp.Model)
	}
	b.WriteString("\n\n")
	b.WriteString(resp.Content)
	b.WriteString("\n")
	if len(resp.Artifacts) > 0 {
		b.WriteString("\nArtifacts: ")
		b.WriteString(strings.Join(sortedKeys(resp.Artifacts), ", "))
		b.WriteString("\n")
	}
	if resp.Usage != nil {
		fmt.Fprintf(&b, "\nTokens: %d in / %d out, cost $%.4f\n", resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Cost())
	}
	return mcp.NewToolResultText(b.String()), nil
}

// RunPipelineTool handles the gads_run_pipeline MCP tool.
type RunPipelineTool struct {
	orch      Facade
	pipelines Pipelines
	logger    *slog.Logger
}

// NewRunPipelineTool creates a RunPipelineTool.
func NewRunPipelineTool(orch Facade, pipelines Pipelines, logger *slog.Logger) *RunPipelineTool {
	return &RunPipelineTool{orch: orch, pipelines: pipelines, logger: logger}
}

// Definition returns the MCP tool definition for registration.
func (t *RunPipelineTool) Definition() mcp.Tool {
	return mcp.NewTool("gads_run_pipeline",
		mcp.WithDescription(
			"Run a named multi-step pipeline (see gads_list_pipelines). "+
				"Each step's output feeds later steps; the run stops at the first failure "+
				"or denied approval.",
		),
		mcp.WithString("pipeline",
			mcp.Required(),
			mcp.Description("Pipeline name, e.g. new-game or feature"),
		),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Initial input handed to the first step"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to use. Defaults to the current session, or a new one."),
		),
		mcp.WithBoolean("approve",
			mcp.Description("Approve steps that require confirmation. Default: false"),
		),
	)
}

// Handle processes the gads_run_pipeline tool call.
func (t *RunPipelineTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("pipeline", ""))
	if name == "" {
		return mcp.NewToolResultError("'pipeline' is required"), nil
	}
	input := req.GetString("input", "")
	if strings.TrimSpace(input) == "" {
		return mcp.NewToolResultError("'input' is required"), nil
	}
	p, err := t.pipelines.Get(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess, err := lookupSession(t.orch, req.GetString("session_id", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ctx = withApproval(ctx, boolArg(req, "approve", false))
	res, err := t.orch.RunPipeline(ctx, p, sess, input, nil, func(ev pipeline.Event) {
		t.logger.Debug("pipeline event", "pipeline", name, "event", fmt.Sprintf("%T", ev))
	})
	if err != nil {
		return nil, err
	}
	return formatResult(res), nil
}

func formatResult(res *pipeline.Result) *mcp.CallToolResult {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline %s: %s\n\n", res.Pipeline, res.Status)
	if len(res.CompletedSteps) > 0 {
		fmt.Fprintf(&b, "Completed steps: %s\n", strings.Join(res.CompletedSteps, ", "))
	}
	if res.CurrentStep != "" {
		fmt.Fprintf(&b, "Stopped at: %s\n", res.CurrentStep)
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "Reason: %s\n", res.Error)
	}
	fmt.Fprintf(&b, "Tokens: %d, cost $%.4f\n", res.Usage.Total(), res.Cost)

	if res.Status == pipeline.StatusCompleted {
		for _, key := range sortedKeys(res.Outputs) {
			if key == pipeline.InputKey {
				continue
			}
			fmt.Fprintf(&b, "\n## %s\n\n%v\n", key, res.Outputs[key])
		}
	}

	if res.Status == pipeline.StatusFailed {
		return mcp.NewToolResultError(b.String())
	}
	return mcp.NewToolResultText(b.String())
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ Facade = (*orchestrator.Orchestrator)(nil)
