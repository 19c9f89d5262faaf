package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gads/internal/orchestrator"
)

var (
	iterateSession  string
	iterateAgent    string
	iterateTaskType string
	iterateYes      bool
)

var iterateCmd = &cobra.Command{
	Use:   "iterate <request>",
	Short: "Send one request to the best-suited agent",
	Long: `Classify a request, route it to an agent and record the exchange on the
session. Tasks that need approval (game_concept, architecture,
visual_style) ask for confirmation unless --yes is given.

Examples:
  gads iterate "Implement a double-jump ability"
  gads iterate "Review the player controller" --agent qa
  gads iterate "Tune enemy health" --task-type balancing --session <id>`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIterate,
}

func init() {
	iterateCmd.Flags().StringVarP(&iterateSession, "session", "s", "", "Session id (default: most recent)")
	iterateCmd.Flags().StringVarP(&iterateAgent, "agent", "a", "", "Send to this agent's primary task")
	iterateCmd.Flags().StringVarP(&iterateTaskType, "task-type", "t", "", "Explicit task type (skips classification)")
	iterateCmd.Flags().BoolVarP(&iterateYes, "yes", "y", false, "Approve tasks that require confirmation")
}

func runIterate(cmd *cobra.Command, args []string) error {
	tt, err := taskTypeFromFlags(iterateTaskType, iterateAgent)
	if err != nil {
		return err
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	orch, err := a.newOrchestrator(promptApprover(os.Stdin, os.Stdout, iterateYes))
	if err != nil {
		return err
	}
	sess, err := a.resumeSession(iterateSession)
	if err != nil {
		return err
	}

	resp, err := orch.Run(cmd.Context(), strings.Join(args, " "), sess, tt)
	if err != nil {
		var invErr *orchestrator.InvocationError
		if errors.As(err, &invErr) {
			printStatus("✗", invErr.Error(), color.FgRed)
		}
		return err
	}
	if cur := orch.Current(); cur != nil && sess == nil {
		printStatus("•", fmt.Sprintf("Started session %s", cur.ID), color.FgCyan)
	}
	fmt.Println()
	printResponse(os.Stdout, resp)
	return nil
}
