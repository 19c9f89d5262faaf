package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/internal/state"
)

var (
	sessionsShowMessages int
	sessionsShowRuns     int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List and inspect project sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show a session's project state, recent messages and pipeline runs",
	Long: `Show one session. Without an id the most recently updated session is shown.

Pipeline runs are read from the inspection database (sessions.index_db).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionsShow,
}

func init() {
	sessionsShowCmd.Flags().IntVarP(&sessionsShowMessages, "messages", "n", 10, "Number of recent messages to show")
	sessionsShowCmd.Flags().IntVar(&sessionsShowRuns, "runs", 5, "Number of pipeline runs to show")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.store.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No sessions yet. Create one with: gads new <name>")
		return nil
	}

	bold := color.New(color.Bold)
	fmt.Printf("%-36s  %-24s  %-4s  %-12s  %8s  %s\n", "ID", "PROJECT", "TYPE", "PHASE", "MESSAGES", "UPDATED")
	for _, s := range list {
		msgs := fmt.Sprintf("%d", s.MessageCount)
		if s.TruncatedCount > 0 {
			msgs = fmt.Sprintf("%d+%d", s.MessageCount, s.TruncatedCount)
		}
		fmt.Printf("%-36s  %-24s  %-4s  %-12s  %8s  %s\n",
			s.ID, bold.Sprint(truncateText(s.ProjectName, 24)), s.Kind, s.CurrentPhase, msgs,
			s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	id := ""
	if len(args) > 0 {
		id = args[0]
	}
	sess, err := a.resumeSession(id)
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("No sessions yet. Create one with: gads new <name>")
		return nil
	}

	header := color.New(color.FgHiMagenta, color.Bold)
	p := sess.Project
	header.Printf("%s\n", p.Name)
	fmt.Printf("  session:  %s\n", sess.ID)
	fmt.Printf("  type:     %s\n", p.Kind)
	fmt.Printf("  phase:    %s\n", p.CurrentPhase)
	fmt.Printf("  engine:   Godot %s\n", p.EngineVersion)
	if p.StyleHint != "" {
		fmt.Printf("  style:    %s\n", p.StyleHint)
	}
	if p.Description != "" {
		fmt.Printf("  about:    %s\n", p.Description)
	}
	fmt.Printf("  updated:  %s\n", sess.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	printKeys("design spec", p.DesignSpec)
	printKeys("technical spec", p.TechnicalSpec)
	printKeys("visual spec", p.VisualSpec)
	if len(sess.AgentMemory) > 0 {
		names := make([]string, 0, len(sess.AgentMemory))
		for name := range sess.AgentMemory {
			names = append(names, string(name))
		}
		sort.Strings(names)
		fmt.Printf("  memory:   %s\n", strings.Join(names, ", "))
	}

	fmt.Println()
	header.Printf("Messages (%d", len(sess.History))
	if sess.TruncatedMessageCount > 0 {
		header.Printf(", %d archived", sess.TruncatedMessageCount)
	}
	header.Println(")")
	for _, m := range sess.RecentHistory(sessionsShowMessages) {
		printMessage(m)
	}

	runs, err := a.db.ListRuns(sess.ID, sessionsShowRuns)
	if err != nil {
		return err
	}
	if len(runs) > 0 {
		fmt.Println()
		header.Println("Pipeline runs")
		for _, r := range runs {
			status := string(r.Status)
			switch r.Status {
			case state.RunCompleted:
				status = color.GreenString(status)
			case state.RunFailed, state.RunInterrupted:
				status = color.RedString(status)
			case state.RunCancelled:
				status = color.YellowString(status)
			}
			fmt.Printf("  %s  %-10s %-20s %d steps  $%.4f\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"), r.Pipeline, status, len(r.CompletedSteps), r.Cost)
			if r.Error != "" {
				fmt.Printf("      %s\n", color.HiBlackString(r.Error))
			}
		}
	}
	return nil
}

func printKeys(label string, m map[string]any) {
	if len(m) == 0 {
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("  %-9s %s\n", label+":", strings.Join(keys, ", "))
}

func printMessage(m session.Message) {
	who := string(m.Role)
	c := color.New(color.FgCyan)
	switch m.Role {
	case session.RoleAgent:
		who = string(m.AgentName)
		c = color.New(color.FgMagenta)
	case session.RoleSystem:
		c = color.New(color.FgYellow)
	}
	fmt.Printf("  %s %s %s\n",
		color.HiBlackString(m.Timestamp.Local().Format("15:04")),
		c.Sprintf("%-12s", who),
		truncateText(firstLine(m.Content), 100))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
