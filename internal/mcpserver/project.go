package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/pkg/models"
)

// NewProjectTool handles the gads_new_project MCP tool.
type NewProjectTool struct {
	orch Facade
}

// NewNewProjectTool creates a NewProjectTool.
func NewNewProjectTool(orch Facade) *NewProjectTool {
	return &NewProjectTool{orch: orch}
}

// Definition returns the MCP tool definition for registration.
func (t *NewProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("gads_new_project",
		mcp.WithDescription(
			"Create a new game project session and make it the current session. "+
				"Later gads_run and gads_run_pipeline calls without session_id use it.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Project name"),
		),
		mcp.WithString("description",
			mcp.Description("Short description of the game"),
		),
		mcp.WithString("project_type",
			mcp.Description("2d (default) or 3d"),
		),
		mcp.WithString("art_style",
			mcp.Description("Optional art style hint, e.g. 'pixel art' or 'low poly'"),
		),
	)
}

// Handle processes the gads_new_project tool call.
func (t *NewProjectTool) Handle(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	kind, ok := models.ParseProjectKind(req.GetString("project_type", ""))
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("invalid project_type %q: must be 2d or 3d", req.GetString("project_type", ""))), nil
	}

	sess, err := t.orch.NewProject(name, req.GetString("description", ""), kind, req.GetString("art_style", ""))
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Created project %q\n\n", sess.Project.Name)
	fmt.Fprintf(&b, "- Session: %s\n", sess.ID)
	fmt.Fprintf(&b, "- Type: %s\n", sess.Project.Kind)
	fmt.Fprintf(&b, "- Phase: %s\n", sess.Project.CurrentPhase)
	if sess.Project.StyleHint != "" {
		fmt.Fprintf(&b, "- Art style: %s\n", sess.Project.StyleHint)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ListSessionsTool handles the gads_list_sessions MCP tool.
type ListSessionsTool struct {
	orch Facade
}

// NewListSessionsTool creates a ListSessionsTool.
func NewListSessionsTool(orch Facade) *ListSessionsTool {
	return &ListSessionsTool{orch: orch}
}

// Definition returns the MCP tool definition for registration.
func (t *ListSessionsTool) Definition() mcp.Tool {
	return mcp.NewTool("gads_list_sessions",
		mcp.WithDescription("List saved project sessions, most recently updated first."),
	)
}

// Handle processes the gads_list_sessions tool call.
func (t *ListSessionsTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := t.orch.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	if len(summaries) == 0 {
		return mcp.NewToolResultText("No sessions yet. Use gads_new_project to start one."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d session(s)\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s: %s (%s, phase %s, %d messages", s.ID, s.ProjectName, s.Kind, s.CurrentPhase, s.MessageCount)
		if s.TruncatedCount > 0 {
			fmt.Fprintf(&b, ", %d truncated", s.TruncatedCount)
		}
		fmt.Fprintf(&b, ", updated %s)\n", s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ListPipelinesTool handles the gads_list_pipelines MCP tool.
type ListPipelinesTool struct {
	pipelines Pipelines
}

// NewListPipelinesTool creates a ListPipelinesTool.
func NewListPipelinesTool(pipelines Pipelines) *ListPipelinesTool {
	return &ListPipelinesTool{pipelines: pipelines}
}

// Definition returns the MCP tool definition for registration.
func (t *ListPipelinesTool) Definition() mcp.Tool {
	return mcp.NewTool("gads_list_pipelines",
		mcp.WithDescription("List the pipelines available to gads_run_pipeline with their steps."),
	)
}

// Handle processes the gads_list_pipelines tool call.
func (t *ListPipelinesTool) Handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos := t.pipelines.List()
	if len(infos) == 0 {
		return mcp.NewToolResultText("No pipelines registered."), nil
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "## %s (%s)\n", info.Name, info.Source)
		if info.Description != "" {
			b.WriteString(info.Description + "\n")
		}
		p, err := t.pipelines.Get(info.Name)
		if err != nil {
			b.WriteString("\n")
			continue
		}
		writeSteps(&b, p)
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func writeSteps(b *strings.Builder, p *pipeline.Pipeline) {
	for i, step := range p.Steps {
		fmt.Fprintf(b, "%d. %s: %s", i+1, step.Name, step.TaskType)
		if agentName, ok := step.TaskType.Agent(); ok {
			fmt.Fprintf(b, " (%s)", agentName)
		}
		if step.TaskType.RequiresApproval() {
			b.WriteString(" [approval]")
		}
		b.WriteString("\n")
	}
}
