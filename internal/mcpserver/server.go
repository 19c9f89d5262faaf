// Package mcpserver exposes the GADS orchestrator as MCP tools over stdio.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

const serverName = "gads"

// Facade is the subset of the orchestrator the tools call.
type Facade interface {
	NewProject(name, description string, kind models.ProjectKind, styleHint string) (*session.Session, error)
	Run(ctx context.Context, input string, sess *session.Session, tt models.TaskType) (*agent.Response, error)
	RunPipeline(ctx context.Context, p *pipeline.Pipeline, sess *session.Session, input string, initial map[string]any, observe pipeline.Observer) (*pipeline.Result, error)
	GetSession(id string) (*session.Session, error)
	ListSessions() ([]session.Summary, error)
}

// Pipelines looks up pipeline definitions.
type Pipelines interface {
	Get(name string) (*pipeline.Pipeline, error)
	List() []pipeline.Info
}

// New creates the MCP server with every GADS tool registered.
func New(orch Facade, pipelines Pipelines, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	newProject := NewNewProjectTool(orch)
	s.AddTool(newProject.Definition(), newProject.Handle)

	run := NewRunTool(orch, logger)
	s.AddTool(run.Definition(), run.Handle)

	runPipeline := NewRunPipelineTool(orch, pipelines, logger)
	s.AddTool(runPipeline.Definition(), runPipeline.Handle)

	listSessions := NewListSessionsTool(orch)
	s.AddTool(listSessions.Definition(), listSessions.Handle)

	listPipelines := NewListPipelinesTool(pipelines)
	s.AddTool(listPipelines.Definition(), listPipelines.Handle)

	return s
}

// Serve runs s on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const serverInstructions = `GADS routes game-development requests to specialised agents
(architect, designer, developer_2d, developer_3d, art_director, qa) and runs
multi-step pipelines against a persistent project session.

Typical flow:
1. gads_new_project to start a project (2d or 3d).
2. gads_run for a single request; the task type is classified automatically
   unless task_type or agent is given.
3. gads_run_pipeline for multi-step work (see gads_list_pipelines).

Tasks that need approval (game_concept, architecture, visual_style) are
cancelled unless the call sets approve=true.`
