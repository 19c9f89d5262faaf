package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gads/internal/orchestrator"
	"github.com/ShayCichocki/gads/internal/tui"
	"github.com/ShayCichocki/gads/pkg/models"
)

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session with the agents",
	Long: `Start an interactive chat on a session. Each line is classified and routed
like gads iterate. Prefix a line with @agent (e.g. @qa) or /task_type
(e.g. /level_design) to pick the destination yourself.

Tasks that need approval prompt inline; answer with y or n.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "Session id (default: most recent)")
}

func runChat(cmd *cobra.Command, args []string) error {
	// The chat view owns the terminal; logs only go to the file sink.
	a, err := newApp(nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	approvals := orchestrator.NewApprovalManager()
	orch, err := a.newOrchestrator(approvals.Approver())
	if err != nil {
		return err
	}
	sess, err := a.resumeSession(chatSession)
	if err != nil {
		return err
	}
	project := orchestrator.DefaultProjectName
	if sess != nil {
		orch.SetCurrent(sess)
		project = sess.Project.Name
	}

	submit := func(text string, tt models.TaskType) tea.Cmd {
		return func() tea.Msg {
			resp, err := orch.Run(ctx, text, nil, tt)
			return tui.ResponseMsg{Response: resp, Err: err}
		}
	}

	program, _ := tui.NewChatProgram(project, submit, approvals.SubmitResponse)
	go tui.Forward(ctx, program, nil, approvals.RequestCh())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	cancel()

	if cur := orch.Current(); cur != nil {
		fmt.Printf("Session %s (%d tokens, $%.4f this run)\n",
			cur.ID, a.tracker.Total().Total(), a.tracker.Cost())
	}
	return nil
}
