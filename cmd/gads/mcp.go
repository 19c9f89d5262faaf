package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gads/internal/mcpserver"
	"github.com/ShayCichocki/gads/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve GADS as an MCP tool server over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout so MCP clients can
create projects, send requests and run pipelines.

Tools: gads_new_project, gads_run, gads_run_pipeline, gads_list_sessions,
gads_list_pipelines.

Pipeline definition files are reloaded when they change. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.newOrchestrator(mcpserver.Approver())
	if err != nil {
		return err
	}
	if sess, err := a.resumeSession(""); err != nil {
		a.logger.Warn("could not resume latest session", "error", err)
	} else if sess != nil {
		orch.SetCurrent(sess)
	}

	if a.pipelines.Dir() != "" {
		if err := a.pipelines.Watch(cmd.Context(), nil); err != nil {
			a.logger.Warn("pipeline hot reload disabled", "error", err)
		}
	}

	s := mcpserver.New(orch, a.pipelines, version.Get(), a.logger)
	a.logger.Info("mcp server starting", "version", version.Get(), "pipelines", len(a.pipelines.Names()))
	return mcpserver.Serve(s)
}
