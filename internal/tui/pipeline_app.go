package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/gads/internal/pipeline"
)

// PipelineDoneMsg is sent when the run returns.
type PipelineDoneMsg struct {
	Result *pipeline.Result
	Err    error
}

// PipelineApp is the bubbletea model for `gads pipeline run`.
type PipelineApp struct {
	view     *ProgressView
	spinner  spinner.Model
	approval approvalPrompt
	cancel   func()

	result   *pipeline.Result
	err      error
	done     bool
	quitting bool

	errorStyle lipgloss.Style
	doneStyle  lipgloss.Style
	hintStyle  lipgloss.Style
}

// NewPipelineApp creates the model for running p. respond answers approval
// prompts and cancel stops the run when the user quits early; both may be
// nil.
func NewPipelineApp(p *pipeline.Pipeline, respond ApprovalHandler, cancel func()) *PipelineApp {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return &PipelineApp{
		view:     NewProgressView(NewProgressState(p)),
		spinner:  s,
		approval: approvalPrompt{respond: respond},
		cancel:   cancel,

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("34")).
			Bold(true),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// NewPipelineProgram creates a Bubbletea program for a pipeline run.
func NewPipelineProgram(p *pipeline.Pipeline, respond ApprovalHandler, cancel func()) (*tea.Program, *PipelineApp) {
	app := NewPipelineApp(p, respond, cancel)
	return tea.NewProgram(app), app
}

// State returns the progress shown so far.
func (a *PipelineApp) State() ProgressState {
	return a.view.State()
}

// Result returns the finished run, or nil.
func (a *PipelineApp) Result() *pipeline.Result {
	return a.result
}

// Init implements tea.Model.
func (a *PipelineApp) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *PipelineApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.approval.handleKey(msg.String()) {
			return a, nil
		}
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			a.approval.answer(false)
			if !a.done {
				a.quitting = true
				if a.cancel != nil {
					a.cancel()
				}
			}
			return a, tea.Quit
		case "enter":
			if a.done {
				return a, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		a.view.SetWidth(msg.Width)

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case EventMsg:
		a.view.Apply(msg.Event)

	case ApprovalPromptMsg:
		prompt := msg.Prompt
		a.approval.pending = &prompt

	case PipelineDoneMsg:
		a.done = true
		a.result = msg.Result
		a.err = msg.Err
		a.approval.pending = nil
	}

	return a, nil
}

// View implements tea.Model.
func (a *PipelineApp) View() string {
	if a.quitting {
		return "Pipeline cancelled.\n"
	}

	var b strings.Builder
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Render("=== GADS Pipeline ===")
	b.WriteString(header)
	b.WriteString("\n\n")

	spin := ""
	if !a.done {
		spin = a.spinner.View()
	}
	b.WriteString(a.view.View(spin))

	if prompt := a.approval.View(); prompt != "" {
		b.WriteString("\n")
		b.WriteString(prompt)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case a.err != nil:
		b.WriteString(a.errorStyle.Render(fmt.Sprintf("Error: %v", a.err)))
	case a.result != nil && a.result.Status == pipeline.StatusCompleted:
		b.WriteString(a.doneStyle.Render("Pipeline complete! Press enter to exit."))
	case a.result != nil:
		b.WriteString(a.errorStyle.Render(fmt.Sprintf("Pipeline %s: %s", a.result.Status, a.result.Error)))
		b.WriteString("\n")
		b.WriteString(a.hintStyle.Render("Press enter to exit."))
	default:
		b.WriteString(a.hintStyle.Render("Press q to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}
