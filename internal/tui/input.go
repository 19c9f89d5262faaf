package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/gads/pkg/models"
)

// RequestSubmittedMsg is sent when the user submits a request.
type RequestSubmittedMsg struct {
	Text string
	// TaskType is set when the request named an agent or task explicitly.
	TaskType models.TaskType
}

// ParseRequest reads an optional directive at the start of text.
// "@agent rest" routes to the agent's primary task and "/task_type rest"
// names the task directly. Anything else is left for classification.
func ParseRequest(text string) (models.TaskType, string) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || (text[0] != '@' && text[0] != '/') {
		return "", text
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	rest = strings.TrimSpace(rest)

	switch text[0] {
	case '@':
		if tt, ok := models.AgentName(head).PrimaryTask(); ok {
			return tt, rest
		}
	case '/':
		if tt := models.TaskType(head); tt.Valid() {
			return tt, rest
		}
	}
	return "", text
}

// InputField is a text input component for entering requests.
type InputField struct {
	input textinput.Model
	width int
}

// NewInputField creates a new InputField.
func NewInputField() *InputField {
	ti := textinput.New()
	ti.Placeholder = "Describe what to build, or @agent / /task_type first..."
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	return &InputField{
		input: ti,
		width: 80,
	}
}

// SetWidth sets the width of the input field.
func (f *InputField) SetWidth(width int) {
	f.width = width
	f.input.Width = width - 4
}

// Update handles messages for the input field.
func (f *InputField) Update(msg tea.Msg) (*InputField, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		text := strings.TrimSpace(f.input.Value())
		if text == "" {
			return f, nil
		}
		tt, clean := ParseRequest(text)
		f.input.Reset()
		return f, func() tea.Msg {
			return RequestSubmittedMsg{Text: clean, TaskType: tt}
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the input field.
func (f *InputField) View() string {
	promptStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	return boxStyle.Render(promptStyle.Render("> ") + f.input.View())
}

// Focus sets focus on the input field.
func (f *InputField) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the input field.
func (f *InputField) Blur() {
	f.input.Blur()
}
