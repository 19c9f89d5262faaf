// Package tui provides the terminal user interface for GADS.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/pkg/models"
)

// StepStatus is the display state of one pipeline step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepAwaitingApproval
	StepCompleted
	StepSkipped
	StepFailed
	StepCancelled
)

func (s StepStatus) String() string {
	switch s {
	case StepRunning:
		return "running"
	case StepAwaitingApproval:
		return "approval"
	case StepCompleted:
		return "done"
	case StepSkipped:
		return "skipped"
	case StepFailed:
		return "failed"
	case StepCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// StepRow is one line of the progress table.
type StepRow struct {
	Name     string
	TaskType models.TaskType
	Agent    models.AgentName
	Status   StepStatus
	Model    string
	Cost     float64
	Preview  string
}

// ProgressState is everything the progress view shows about a run.
type ProgressState struct {
	Pipeline string
	Steps    []StepRow
	Usage    models.TokenUsage
	Cost     float64
	Done     bool
	Status   pipeline.Status
	Error    string
}

// NewProgressState lists the steps of p as pending.
func NewProgressState(p *pipeline.Pipeline) ProgressState {
	s := ProgressState{Pipeline: p.Name, Status: pipeline.StatusRunning}
	for _, step := range p.Steps {
		s.Steps = append(s.Steps, StepRow{Name: step.Name, TaskType: step.TaskType})
	}
	return s
}

// Finished counts steps that completed or were skipped.
func (s *ProgressState) Finished() int {
	n := 0
	for _, row := range s.Steps {
		if row.Status == StepCompleted || row.Status == StepSkipped {
			n++
		}
	}
	return n
}

func (s *ProgressState) row(name string) *StepRow {
	for i := range s.Steps {
		if s.Steps[i].Name == name {
			return &s.Steps[i]
		}
	}
	s.Steps = append(s.Steps, StepRow{Name: name})
	return &s.Steps[len(s.Steps)-1]
}

// Apply folds one pipeline event into the state.
func (s *ProgressState) Apply(ev pipeline.Event) {
	switch e := ev.(type) {
	case pipeline.StepStarted:
		r := s.row(e.Step)
		r.Status = StepRunning
		r.Agent = e.Agent
		r.TaskType = e.TaskType
	case pipeline.ApprovalNeeded:
		s.row(e.Step).Status = StepAwaitingApproval
	case pipeline.ApprovalGranted:
		s.row(e.Step).Status = StepRunning
	case pipeline.ApprovalDenied:
		s.row(e.Step).Status = StepCancelled
		s.Done = true
		s.Status = pipeline.StatusCancelled
	case pipeline.InvocationStarted:
		r := s.row(e.Step)
		r.Status = StepRunning
		r.Agent = e.Agent
	case pipeline.StepCompleted:
		r := s.row(e.Step)
		r.Status = StepCompleted
		r.Agent = e.Agent
		r.Model = e.Model
		r.Cost = e.Cost
		r.Preview = e.Preview
		if e.Usage != nil {
			s.Usage = s.Usage.Add(*e.Usage)
		}
		s.Cost += e.Cost
	case pipeline.StepSkipped:
		s.row(e.Step).Status = StepSkipped
	case pipeline.PipelineFailed:
		if e.Step != "" {
			s.row(e.Step).Status = StepFailed
		}
		s.Done = true
		s.Status = pipeline.StatusFailed
		s.Error = e.Error
	case pipeline.PipelineCompleted:
		s.Done = true
		s.Status = pipeline.StatusCompleted
		s.Usage = e.Usage
		s.Cost = e.Cost
	}
}

// ProgressView renders a ProgressState.
type ProgressView struct {
	state ProgressState
	width int

	headerStyle   lipgloss.Style
	labelStyle    lipgloss.Style
	valueStyle    lipgloss.Style
	progressFull  lipgloss.Style
	progressEmpty lipgloss.Style
	previewStyle  lipgloss.Style
	statusStyles  map[StepStatus]lipgloss.Style
}

// NewProgressView creates a view over state.
func NewProgressView(state ProgressState) *ProgressView {
	return &ProgressView{
		state: state,
		width: 80,

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("238")).
			MarginBottom(1),

		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12),

		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true),

		progressFull: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")),

		progressEmpty: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		previewStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true),

		statusStyles: map[StepStatus]lipgloss.Style{
			StepPending:          lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
			StepRunning:          lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
			StepAwaitingApproval: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
			StepCompleted:        lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
			StepSkipped:          lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
			StepFailed:           lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
			StepCancelled:        lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		},
	}
}

// State returns the current state.
func (v *ProgressView) State() ProgressState {
	return v.state
}

// Apply folds an event into the view's state.
func (v *ProgressView) Apply(ev pipeline.Event) {
	v.state.Apply(ev)
}

// SetWidth sets the render width.
func (v *ProgressView) SetWidth(width int) {
	v.width = width
}

// View renders the progress table. spin is drawn next to running steps.
func (v *ProgressView) View(spin string) string {
	var b strings.Builder

	b.WriteString(v.headerStyle.Render("Pipeline: " + v.state.Pipeline))
	b.WriteString("\n")

	total := len(v.state.Steps)
	pct := float64(0)
	if total > 0 {
		pct = float64(v.state.Finished()) / float64(total) * 100
	}
	b.WriteString(v.labelStyle.Render("Steps:"))
	b.WriteString(v.valueStyle.Render(fmt.Sprintf("%d/%d", v.state.Finished(), total)))
	b.WriteString("  ")
	b.WriteString(v.labelStyle.Render("Cost:"))
	b.WriteString(v.valueStyle.Render(formatCost(v.state.Cost)))
	b.WriteString("  ")
	b.WriteString(v.labelStyle.Render("Tokens:"))
	b.WriteString(v.valueStyle.Render(fmt.Sprintf("%d", v.state.Usage.Total())))
	b.WriteString("\n")
	b.WriteString(v.renderProgressBar(pct, 30))
	b.WriteString("\n\n")

	for i, row := range v.state.Steps {
		marker := "  "
		if row.Status == StepRunning && spin != "" {
			marker = spin + " "
		}
		status := v.statusStyles[row.Status].Render(fmt.Sprintf("%-9s", row.Status))
		agent := string(row.Agent)
		if agent == "" {
			agent = "-"
		}
		fmt.Fprintf(&b, "%s%d. %-16s %s %-22s %s\n", marker, i+1, row.Name, status, row.TaskType, agent)
		if row.Status == StepCompleted && row.Preview != "" {
			b.WriteString("     ")
			b.WriteString(v.previewStyle.Render(truncate(firstLine(row.Preview), v.width-8)))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderProgressBar renders a progress bar.
func (v *ProgressView) renderProgressBar(pct float64, width int) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}

	filled := int(pct / 100 * float64(width))
	empty := width - filled

	bar := v.progressFull.Render(strings.Repeat("█", filled)) +
		v.progressEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("  %s %.0f%%", bar, pct)
}

func formatCost(c float64) string {
	return fmt.Sprintf("$%.4f", c)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
