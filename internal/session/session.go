// Package session holds the persisted state of one game project: the
// conversation history, the evolving project facts, and per-agent memory.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/gads/pkg/models"
)

// Role identifies the author of a message.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// DefaultEngineVersion is the Godot version recorded on new projects.
const DefaultEngineVersion = "4.2"

// DefaultPhase is the phase a new project starts in.
const DefaultPhase = "design"

// now is swapped in tests that need deterministic timestamps.
var now = func() time.Time { return time.Now().UTC() }

// Message is one turn in the conversation. Messages are never edited after
// they are appended to a session.
type Message struct {
	Role      Role             `json:"role"`
	AgentName models.AgentName `json:"agent_name,omitempty"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
}

// ProjectState is what is known about the game being built.
type ProjectState struct {
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	EngineVersion string             `json:"godot_version"`
	Kind          models.ProjectKind `json:"project_type"`
	StyleHint     string             `json:"art_style,omitempty"`

	DesignSpec    map[string]any `json:"game_design_doc"`
	TechnicalSpec map[string]any `json:"technical_spec"`
	VisualSpec    map[string]any `json:"art_spec"`

	Scenes   []string `json:"scenes"`
	Scripts  []string `json:"scripts"`
	Assets2D []string `json:"assets_2d"`
	Assets3D []string `json:"assets_3d"`

	CurrentPhase   string   `json:"current_phase"`
	CompletedTasks []string `json:"completed_tasks"`
	PendingTasks   []string `json:"pending_tasks"`
}

// Session is the aggregate persisted for one project.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project ProjectState `json:"project"`
	History []Message    `json:"history"`

	// AgentMemory is free-form scratch space keyed by agent name.
	AgentMemory map[models.AgentName]map[string]any `json:"agent_contexts"`

	// TruncatedMessageCount counts messages dropped from History to keep it
	// within the configured cap. It never decreases.
	TruncatedMessageCount int `json:"truncated_message_count"`
}

// New returns a fresh session for a project. An invalid kind falls back to 2D.
func New(name, description string, kind models.ProjectKind, styleHint string) *Session {
	if !kind.Valid() {
		kind = models.Kind2D
	}
	ts := now()
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: ts,
		UpdatedAt: ts,
		Project: ProjectState{
			Name:           name,
			Description:    description,
			EngineVersion:  DefaultEngineVersion,
			Kind:           kind,
			StyleHint:      styleHint,
			DesignSpec:     map[string]any{},
			TechnicalSpec:  map[string]any{},
			VisualSpec:     map[string]any{},
			Scenes:         []string{},
			Scripts:        []string{},
			Assets2D:       []string{},
			Assets3D:       []string{},
			CurrentPhase:   DefaultPhase,
			CompletedTasks: []string{},
			PendingTasks:   []string{},
		},
		History:     []Message{},
		AgentMemory: map[models.AgentName]map[string]any{},
	}
}

// AddMessage appends a message and bumps UpdatedAt.
func (s *Session) AddMessage(role Role, agent models.AgentName, content string, metadata map[string]any) Message {
	m := Message{
		Role:      role,
		AgentName: agent,
		Content:   content,
		Timestamp: now(),
		Metadata:  metadata,
	}
	s.History = append(s.History, m)
	s.UpdatedAt = m.Timestamp
	return m
}

// RecentHistory returns up to n of the newest messages, oldest first.
// The returned slice must not be modified.
func (s *Session) RecentHistory(n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// Memory returns the private memory map of an agent, creating it if needed.
func (s *Session) Memory(agent models.AgentName) map[string]any {
	if s.AgentMemory == nil {
		s.AgentMemory = map[models.AgentName]map[string]any{}
	}
	m, ok := s.AgentMemory[agent]
	if !ok {
		m = map[string]any{}
		s.AgentMemory[agent] = m
	}
	return m
}

// MemoryOf returns the private memory map of an agent without creating it.
// The result is nil when the agent has none.
func (s *Session) MemoryOf(agent models.AgentName) map[string]any {
	return s.AgentMemory[agent]
}

// LastMessage returns the newest message, or false if the history is empty.
func (s *Session) LastMessage() (Message, bool) {
	if len(s.History) == 0 {
		return Message{}, false
	}
	return s.History[len(s.History)-1], true
}

// Truncate drops the oldest messages so that at most max remain and returns
// the dropped messages. A non-positive max disables truncation.
func (s *Session) Truncate(max int) []Message {
	if max <= 0 || len(s.History) <= max {
		return nil
	}
	n := len(s.History) - max
	removed := make([]Message, n)
	copy(removed, s.History[:n])

	kept := make([]Message, max)
	copy(kept, s.History[n:])
	s.History = kept
	s.TruncatedMessageCount += n
	return removed
}

// Summary is the listing view of a persisted session.
type Summary struct {
	ID             string             `json:"id"`
	ProjectName    string             `json:"project_name"`
	Kind           models.ProjectKind `json:"project_type"`
	CurrentPhase   string             `json:"current_phase"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	MessageCount   int                `json:"message_count"`
	TruncatedCount int                `json:"truncated_count"`
}

// Summarize builds the listing view of s.
func (s *Session) Summarize() Summary {
	return Summary{
		ID:             s.ID,
		ProjectName:    s.Project.Name,
		Kind:           s.Project.Kind,
		CurrentPhase:   s.Project.CurrentPhase,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		MessageCount:   len(s.History),
		TruncatedCount: s.TruncatedMessageCount,
	}
}
