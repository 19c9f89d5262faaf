package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/gads/internal/orchestrator"
	"github.com/ShayCichocki/gads/internal/pipeline"
)

// ApprovalPromptMsg asks the user to approve a step or request.
type ApprovalPromptMsg struct {
	Prompt orchestrator.ApprovalPrompt
}

// EventMsg carries one pipeline event into the program.
type EventMsg struct {
	Event pipeline.Event
}

// ApprovalHandler delivers the user's answer, normally
// ApprovalManager.SubmitResponse.
type ApprovalHandler func(orchestrator.ApprovalResponse)

// Forward relays events and approval prompts into p until ctx is done.
// Either channel may be nil.
func Forward(ctx context.Context, p *tea.Program, events <-chan pipeline.Event, prompts <-chan orchestrator.ApprovalPrompt) {
	for events != nil || prompts != nil {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			p.Send(EventMsg{Event: ev})
		case prompt, ok := <-prompts:
			if !ok {
				prompts = nil
				continue
			}
			p.Send(ApprovalPromptMsg{Prompt: prompt})
		}
	}
}

// approvalPrompt holds at most one outstanding question.
type approvalPrompt struct {
	pending *orchestrator.ApprovalPrompt
	respond ApprovalHandler
}

// handleKey answers the pending prompt on y or n. It reports whether the
// key was consumed.
func (a *approvalPrompt) handleKey(key string) bool {
	if a.pending == nil {
		return false
	}
	switch strings.ToLower(key) {
	case "y":
		a.answer(true)
		return true
	case "n":
		a.answer(false)
		return true
	}
	return false
}

func (a *approvalPrompt) answer(approved bool) {
	if a.pending == nil {
		return
	}
	if a.respond != nil {
		a.respond(orchestrator.ApprovalResponse{ID: a.pending.ID, Approved: approved})
	}
	a.pending = nil
}

func (a *approvalPrompt) View() string {
	if a.pending == nil {
		return ""
	}
	box := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214")).
		Padding(0, 1)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("214")).
		Bold(true).
		Padding(0, 1)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Approval required"))
	b.WriteString("\n")
	b.WriteString(a.pending.Message)
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(
		"agent " + string(a.pending.Decision.AgentName) + ", task " + string(a.pending.Decision.TaskType)))
	b.WriteString("\n\n")
	b.WriteString(keyStyle.Render("y"))
	b.WriteString(" proceed   ")
	b.WriteString(keyStyle.Render("n"))
	b.WriteString(" cancel")
	return box.Render(b.String())
}
