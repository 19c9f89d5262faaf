package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/pkg/models"
)

// printStatus prints a status line with a colored symbol.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

// taskTypeFromFlags resolves --task-type and --agent. An explicit task type
// wins; an agent maps to its primary task. Both empty means classify.
func taskTypeFromFlags(taskType, agentName string) (models.TaskType, error) {
	if strings.TrimSpace(taskType) != "" {
		return models.ParseTaskType(taskType)
	}
	if agentName = strings.TrimSpace(agentName); agentName != "" {
		tt, ok := models.AgentName(strings.ToLower(agentName)).PrimaryTask()
		if !ok {
			return "", fmt.Errorf("unknown agent %q", agentName)
		}
		return tt, nil
	}
	return "", nil
}

// promptApprover asks on out and reads a y/n answer from in. With
// assumeYes every request is approved without asking.
func promptApprover(in io.Reader, out io.Writer, assumeYes bool) pipeline.ApprovalFunc {
	if assumeYes {
		return pipeline.AutoApprove
	}
	reader := bufio.NewReader(in)
	return func(ctx context.Context, req pipeline.ApprovalRequest) bool {
		if ctx.Err() != nil {
			return false
		}
		msg := req.Message
		if msg == "" {
			msg = fmt.Sprintf("Run %s with %s?", req.Decision.TaskType, req.Decision.AgentName)
		}
		if req.Step != "" {
			msg = fmt.Sprintf("[%s] %s", req.Step, msg)
		}
		fmt.Fprintf(out, "%s %s [y/N]: ", color.YellowString("?"), msg)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

// printResponse writes an agent response with its artifacts and usage.
func printResponse(w io.Writer, resp *agent.Response) {
	header := color.New(color.FgMagenta, color.Bold).Sprint(resp.AgentName)
	if resp.Model != "" {
		header += color.HiBlackString(" (%s)", resp.Model)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w)
	fmt.Fprintln(w, resp.Content)

	if len(resp.Artifacts) > 0 {
		keys := make([]string, 0, len(resp.Artifacts))
		for k := range resp.Artifacts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(w, "\n%s %s\n", color.HiBlackString("artifacts:"), strings.Join(keys, ", "))
	}
	if resp.Usage != nil {
		fmt.Fprintf(w, "%s %d in / %d out, $%.4f\n", color.HiBlackString("tokens:"),
			resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Cost())
	}
}
