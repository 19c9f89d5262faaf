package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/pkg/models"
)

// maxTranscript bounds the lines kept on screen.
const maxTranscript = 200

// ResponseMsg carries the answer to a submitted request.
type ResponseMsg struct {
	Response *agent.Response
	Err      error
}

// Submitter starts a request and returns a command that yields its
// ResponseMsg.
type Submitter func(text string, tt models.TaskType) tea.Cmd

type chatLine struct {
	who  string
	text string
	err  bool
}

// ChatApp is the bubbletea model for `gads chat`.
type ChatApp struct {
	project  string
	input    *InputField
	spinner  spinner.Model
	approval approvalPrompt
	submit   Submitter

	lines []chatLine
	busy  bool
	width int

	humanStyle  lipgloss.Style
	agentStyle  lipgloss.Style
	errorStyle  lipgloss.Style
	systemStyle lipgloss.Style
}

// NewChatApp creates a chat model for project.
func NewChatApp(project string, submit Submitter, respond ApprovalHandler) *ChatApp {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	return &ChatApp{
		project:  project,
		input:    NewInputField(),
		spinner:  s,
		approval: approvalPrompt{respond: respond},
		submit:   submit,
		width:    80,

		humanStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		agentStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		errorStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		systemStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

// NewChatProgram creates a Bubbletea program for an interactive session.
func NewChatProgram(project string, submit Submitter, respond ApprovalHandler) (*tea.Program, *ChatApp) {
	app := NewChatApp(project, submit, respond)
	return tea.NewProgram(app, tea.WithAltScreen()), app
}

// Busy reports whether a request is in flight.
func (a *ChatApp) Busy() bool {
	return a.busy
}

// Init implements tea.Model.
func (a *ChatApp) Init() tea.Cmd {
	return tea.Batch(a.input.Focus(), a.spinner.Tick)
}

// Update implements tea.Model.
func (a *ChatApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.approval.handleKey(msg.String()) {
			return a, nil
		}
		switch msg.String() {
		case "ctrl+c", "esc":
			a.approval.answer(false)
			return a, tea.Quit
		}
		if a.busy {
			return a, nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.input.SetWidth(msg.Width)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case RequestSubmittedMsg:
		label := "you"
		if msg.TaskType != "" {
			label = "you -> " + string(msg.TaskType)
		}
		a.append(chatLine{who: label, text: msg.Text})
		if a.submit == nil {
			return a, nil
		}
		a.busy = true
		return a, a.submit(msg.Text, msg.TaskType)

	case ApprovalPromptMsg:
		prompt := msg.Prompt
		a.approval.pending = &prompt

	case ResponseMsg:
		a.busy = false
		a.approval.pending = nil
		if msg.Err != nil {
			a.append(chatLine{who: "error", text: msg.Err.Error(), err: true})
			return a, nil
		}
		who := string(msg.Response.AgentName)
		if msg.Response.Model != "" {
			who = fmt.Sprintf("%s (%s)", who, msg.Response.Model)
		}
		a.append(chatLine{who: who, text: msg.Response.Content})

	default:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *ChatApp) append(l chatLine) {
	a.lines = append(a.lines, l)
	if len(a.lines) > maxTranscript {
		a.lines = a.lines[len(a.lines)-maxTranscript:]
	}
}

// View implements tea.Model.
func (a *ChatApp) View() string {
	var b strings.Builder
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		Render("=== GADS: " + a.project + " ===")
	b.WriteString(header)
	b.WriteString("\n\n")

	for _, l := range a.lines {
		style := a.agentStyle
		switch {
		case l.err:
			style = a.errorStyle
		case strings.HasPrefix(l.who, "you"):
			style = a.humanStyle
		case strings.HasPrefix(l.who, string(models.AgentSystem)):
			style = a.systemStyle
		}
		b.WriteString(style.Render(l.who + ":"))
		b.WriteString("\n")
		b.WriteString(l.text)
		b.WriteString("\n\n")
	}

	if prompt := a.approval.View(); prompt != "" {
		b.WriteString(prompt)
		b.WriteString("\n")
	} else if a.busy {
		b.WriteString(a.spinner.View())
		b.WriteString(" working...\n")
	}

	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render("enter to send, esc to quit"))
	b.WriteString("\n")
	return b.String()
}
