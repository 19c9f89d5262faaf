package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/gads/internal/orchestrator"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/internal/tui"
)

var (
	pipelineSession string
	pipelineYes     bool
	pipelineNoTUI   bool
	pipelineVars    []string
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run and inspect multi-step pipelines",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run <name> <input>",
	Short: "Run a pipeline against a session",
	Long: `Run a named pipeline. Each step's output is stored under its output key
and can feed later steps. The run stops at the first failed step or denied
approval; completed work stays on the session.

Examples:
  gads pipeline run new-game "A cozy farming sim on a floating island"
  gads pipeline run feature "Grappling hook" --yes
  gads pipeline run asset "Forest tileset" --var style="pixel art" --no-tui`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPipelineRun,
}

var pipelineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available pipelines",
	Args:  cobra.NoArgs,
	RunE:  runPipelineList,
}

var pipelineShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a pipeline's steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipelineShow,
}

func init() {
	pipelineRunCmd.Flags().StringVarP(&pipelineSession, "session", "s", "", "Session id (default: most recent)")
	pipelineRunCmd.Flags().BoolVarP(&pipelineYes, "yes", "y", false, "Approve every step that requires confirmation")
	pipelineRunCmd.Flags().BoolVar(&pipelineNoTUI, "no-tui", false, "Print progress lines instead of the interactive view")
	pipelineRunCmd.Flags().StringArrayVar(&pipelineVars, "var", nil, "Initial context value key=value (repeatable)")

	pipelineCmd.AddCommand(pipelineRunCmd)
	pipelineCmd.AddCommand(pipelineListCmd)
	pipelineCmd.AddCommand(pipelineShowCmd)
}

// parseVars turns key=value flags into the initial pipeline context.
func parseVars(vars []string) (map[string]any, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(vars))
	for _, v := range vars {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --var %q: want key=value", v)
		}
		if key == pipeline.InputKey {
			return nil, fmt.Errorf("invalid --var %q: %s is reserved for the pipeline input", v, pipeline.InputKey)
		}
		out[key] = value
	}
	return out, nil
}

func runPipelineRun(cmd *cobra.Command, args []string) error {
	initial, err := parseVars(pipelineVars)
	if err != nil {
		return err
	}
	useTUI := !pipelineNoTUI && isatty.IsTerminal(os.Stdout.Fd())

	// The interactive view owns the terminal, so logs only go to the file sink.
	var logOut io.Writer = os.Stderr
	if useTUI {
		logOut = nil
	}
	a, err := newApp(logOut)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipelines.Get(args[0])
	if err != nil {
		return err
	}
	sess, err := a.resumeSession(pipelineSession)
	if err != nil {
		return err
	}
	input := strings.Join(args[1:], " ")

	var res *pipeline.Result
	if useTUI {
		res, err = runPipelineTUI(cmd.Context(), a, p, sess, input, initial)
	} else {
		res, err = runPipelinePlain(cmd.Context(), a, p, sess, input, initial)
	}
	if err != nil {
		return err
	}
	return reportResult(res)
}

func runPipelinePlain(ctx context.Context, a *app, p *pipeline.Pipeline, sess *session.Session, input string, initial map[string]any) (*pipeline.Result, error) {
	orch, err := a.newOrchestrator(promptApprover(os.Stdin, os.Stdout, pipelineYes))
	if err != nil {
		return nil, err
	}
	printStatus("▶", fmt.Sprintf("Running pipeline %s (%d steps)", p.Name, len(p.Steps)), color.FgCyan)
	return orch.RunPipeline(ctx, p, sess, input, initial, printEvent)
}

// printEvent renders one progress event as a status line.
func printEvent(ev pipeline.Event) {
	switch e := ev.(type) {
	case pipeline.StepStarted:
		printStatus("•", fmt.Sprintf("[%d/%d] %s: %s → %s", e.Index, e.Total, e.Step, e.TaskType, e.Agent), color.FgBlue)
	case pipeline.StepSkipped:
		printStatus("-", fmt.Sprintf("%s skipped", e.Step), color.FgHiBlack)
	case pipeline.ApprovalDenied:
		printStatus("✗", fmt.Sprintf("%s not approved", e.Step), color.FgYellow)
	case pipeline.StepCompleted:
		printStatus("✓", fmt.Sprintf("%s done (%s, $%.4f)", e.Step, e.Model, e.Cost), color.FgGreen)
	case pipeline.PipelineFailed:
		printStatus("✗", fmt.Sprintf("%s failed: %s", e.Step, e.Error), color.FgRed)
	}
}

func runPipelineTUI(ctx context.Context, a *app, p *pipeline.Pipeline, sess *session.Session, input string, initial map[string]any) (*pipeline.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	approvals := orchestrator.NewApprovalManager()
	approve := approvals.Approver()
	if pipelineYes {
		approve = pipeline.AutoApprove
	}
	orch, err := a.newOrchestrator(approve)
	if err != nil {
		return nil, err
	}

	emitter := pipeline.NewEventEmitter(256, a.logger)
	program, view := tui.NewPipelineProgram(p, approvals.SubmitResponse, cancel)

	eventsDone := make(chan struct{})
	go func() {
		tui.Forward(context.Background(), program, emitter.Events(), nil)
		close(eventsDone)
	}()
	go tui.Forward(ctx, program, nil, approvals.RequestCh())

	runDone := make(chan struct{})
	var res *pipeline.Result
	var runErr error
	go func() {
		defer close(runDone)
		res, runErr = orch.RunPipeline(ctx, p, sess, input, initial, emitter.Observer())
		emitter.Close()
		<-eventsDone
		program.Send(tui.PipelineDoneMsg{Result: res, Err: runErr})
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-runDone
		return nil, fmt.Errorf("running TUI: %w", err)
	}
	cancel()
	<-runDone
	if view.Result() != nil {
		return view.Result(), runErr
	}
	return res, runErr
}

// reportResult prints the outcome and returns an error for failed runs.
func reportResult(res *pipeline.Result) error {
	fmt.Println()
	switch res.Status {
	case pipeline.StatusCompleted:
		printStatus("✓", fmt.Sprintf("Pipeline %s completed: %s", res.Pipeline, strings.Join(res.CompletedSteps, ", ")), color.FgGreen)
	case pipeline.StatusCancelled:
		printStatus("!", fmt.Sprintf("Pipeline %s cancelled at %s", res.Pipeline, res.CurrentStep), color.FgYellow)
	default:
		printStatus("✗", fmt.Sprintf("Pipeline %s failed at %s: %s", res.Pipeline, res.CurrentStep, res.Error), color.FgRed)
	}
	fmt.Printf("  tokens: %d  cost: $%.4f\n", res.Usage.Total(), res.Cost)

	if res.Status == pipeline.StatusCompleted {
		keys := make([]string, 0, len(res.Outputs))
		for k := range res.Outputs {
			if k != pipeline.InputKey {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("\n%s\n%v\n", color.New(color.FgHiMagenta, color.Bold).Sprintf("## %s", k), res.Outputs[k])
		}
	}
	if res.Status == pipeline.StatusFailed {
		return res.Err
	}
	return nil
}

func runPipelineList(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, info := range a.pipelines.List() {
		source := string(info.Source)
		if info.Path != "" {
			source = info.Path
		}
		fmt.Printf("%s  %s\n", color.New(color.Bold).Sprintf("%-12s", info.Name), color.HiBlackString("%d steps, %s", info.Steps, source))
		if info.Description != "" {
			fmt.Printf("              %s\n", info.Description)
		}
	}
	return nil
}

func runPipelineShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.pipelines.Get(args[0])
	if err != nil {
		return err
	}
	color.New(color.FgHiMagenta, color.Bold).Println(p.Name)
	if p.Description != "" {
		fmt.Println(p.Description)
	}
	fmt.Println()
	for i, s := range p.Steps {
		agentName, _ := s.TaskType.Agent()
		line := fmt.Sprintf("%d. %-14s %-22s %s", i+1, s.Name, s.TaskType, agentName)
		if s.TaskType.RequiresApproval() {
			line += color.YellowString(" [approval]")
		}
		fmt.Println(line)
		input := s.InputKey
		if input == "" {
			input = pipeline.InputKey
		}
		fmt.Printf("   %s %s → %s\n", color.HiBlackString("io:"), input, orDash(s.OutputKey))
		if s.Condition != nil {
			fmt.Printf("   %s %s\n", color.HiBlackString("when:"), describeCondition(s.Condition))
		}
	}
	return nil
}

func describeCondition(c *pipeline.Condition) string {
	var parts []string
	for _, k := range c.WhenPresent {
		parts = append(parts, k+" present")
	}
	for _, k := range c.WhenAbsent {
		parts = append(parts, k+" absent")
	}
	for k, v := range c.WhenEquals {
		parts = append(parts, fmt.Sprintf("%s = %q", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
