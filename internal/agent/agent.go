// Package agent adapts language-model providers into the specialised GADS
// agents (architect, designer, developers, art director, QA).
package agent

import (
	"context"

	"github.com/ShayCichocki/gads/internal/llm"
	"github.com/ShayCichocki/gads/pkg/models"
)

// Agent is a single specialised role that answers one request at a time.
type Agent interface {
	Name() models.AgentName
	// Execute answers input given the derived project context and the
	// recent conversation, oldest first.
	Execute(ctx context.Context, input string, c Context, history []llm.Message) (*Response, error)
}

// ProjectSummary is the project-level part of an agent's context.
type ProjectSummary struct {
	Name          string             `json:"name" yaml:"name"`
	Description   string             `json:"description" yaml:"description"`
	EngineVersion string             `json:"godot_version" yaml:"godot_version"`
	Kind          models.ProjectKind `json:"project_type" yaml:"project_type"`
	StyleHint     string             `json:"art_style,omitempty" yaml:"art_style,omitempty"`
	Phase         string             `json:"current_phase" yaml:"current_phase"`
}

// Context is everything an agent is told about the project besides the
// request itself.
type Context struct {
	Project       ProjectSummary
	DesignSpec    map[string]any
	TechnicalSpec map[string]any
	VisualSpec    map[string]any
	// Memory is the agent's own private memory map.
	Memory map[string]any
	// Extras come from the routing decision and override everything else.
	Extras map[string]any
}

// Context keys used by Flatten.
const (
	KeyProject       = "project"
	KeyDesignSpec    = "game_design_doc"
	KeyTechnicalSpec = "technical_spec"
	KeyVisualSpec    = "art_spec"
	KeyMemory        = "agent_memory"
)

// Flatten renders the context as a single map. Extras are applied last and
// override the fixed keys.
func (c Context) Flatten() map[string]any {
	out := map[string]any{
		KeyProject:       c.Project,
		KeyDesignSpec:    nonNil(c.DesignSpec),
		KeyTechnicalSpec: nonNil(c.TechnicalSpec),
		KeyVisualSpec:    nonNil(c.VisualSpec),
		KeyMemory:        nonNil(c.Memory),
	}
	for k, v := range c.Extras {
		out[k] = v
	}
	return out
}

// Response is an agent's answer.
type Response struct {
	Content   string
	AgentName models.AgentName
	Model     string
	// Artifacts holds lightweight pattern matches over Content for display.
	Artifacts map[string]any
	// Usage is nil when the provider did not report token counts.
	Usage *models.TokenUsage
}

// Cost returns the estimated USD cost of the response, zero without usage.
func (r *Response) Cost() float64 {
	if r == nil || r.Usage == nil {
		return 0
	}
	return r.Usage.EstimateCost(r.Model)
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
