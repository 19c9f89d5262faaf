package orchestrator

import (
	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/llm"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

// BuildContext assembles what agent name is told about the project in sess.
// extras come from the routing decision and are applied last.
func BuildContext(sess *session.Session, name models.AgentName, extras map[string]any) agent.Context {
	p := sess.Project
	return agent.Context{
		Project: agent.ProjectSummary{
			Name:          p.Name,
			Description:   p.Description,
			EngineVersion: p.EngineVersion,
			Kind:          p.Kind,
			StyleHint:     p.StyleHint,
			Phase:         p.CurrentPhase,
		},
		DesignSpec:    p.DesignSpec,
		TechnicalSpec: p.TechnicalSpec,
		VisualSpec:    p.VisualSpec,
		Memory:        sess.MemoryOf(name),
		Extras:        extras,
	}
}

// BuildHistory translates the last n of msgs into provider roles, oldest
// first. System messages are left out.
func BuildHistory(msgs []session.Message, n int) []llm.Message {
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}

	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case session.RoleHuman:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case session.RoleAgent:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	return out
}
