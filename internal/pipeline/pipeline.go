// Package pipeline runs ordered, fail-fast sequences of agent steps where
// each step can feed its output to the next.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ShayCichocki/gads/pkg/models"
)

// InputKey is the reserved context key holding the pipeline's initial input.
const InputKey = "user_input"

// ArtifactsSuffix is appended to a step's output key to store its artifacts.
const ArtifactsSuffix = "_artifacts"

var (
	// ErrNotFound is returned when a pipeline name is not registered.
	ErrNotFound = errors.New("pipeline not found")
	// ErrInvalidDefinition is returned for malformed pipeline definitions.
	ErrInvalidDefinition = errors.New("invalid pipeline definition")
)

// Condition decides whether a step runs. A nil Condition always runs.
// All declared clauses must hold.
type Condition struct {
	// WhenPresent keys must be set to a non-empty value.
	WhenPresent []string `yaml:"when_present,omitempty" json:"when_present,omitempty"`
	// WhenAbsent keys must be missing or empty.
	WhenAbsent []string `yaml:"when_absent,omitempty" json:"when_absent,omitempty"`
	// WhenEquals keys must render to exactly the given value.
	WhenEquals map[string]string `yaml:"when_equals,omitempty" json:"when_equals,omitempty"`
	// Func is an in-process predicate. Definition files cannot set it.
	Func func(context map[string]any) bool `yaml:"-" json:"-"`
}

// ShouldRun evaluates the condition against the pipeline context.
func (c *Condition) ShouldRun(context map[string]any) bool {
	if c == nil {
		return true
	}
	for _, k := range c.WhenPresent {
		if !isSet(context, k) {
			return false
		}
	}
	for _, k := range c.WhenAbsent {
		if isSet(context, k) {
			return false
		}
	}
	for k, want := range c.WhenEquals {
		v, ok := context[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	if c.Func != nil && !c.Func(context) {
		return false
	}
	return true
}

// isSet reports whether key holds a non-empty value.
func isSet(context map[string]any, key string) bool {
	v, ok := context[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// Step is one agent invocation within a pipeline.
type Step struct {
	Name     string          `yaml:"name" json:"name"`
	TaskType models.TaskType `yaml:"task_type" json:"task_type"`
	// InputKey names the context value used as the step's input. When it is
	// unset or empty the pipeline's initial input is used.
	InputKey string `yaml:"input_key,omitempty" json:"input_key,omitempty"`
	// OutputKey names where the response content is stored.
	OutputKey string     `yaml:"output_key,omitempty" json:"output_key,omitempty"`
	Condition *Condition `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Pipeline is a named, ordered list of steps.
type Pipeline struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// Validate checks the definition. Errors wrap ErrInvalidDefinition.
func (p *Pipeline) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil pipeline", ErrInvalidDefinition)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDefinition)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: pipeline %s has no steps", ErrInvalidDefinition, p.Name)
	}
	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: pipeline %s: step %d has no name", ErrInvalidDefinition, p.Name, i+1)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: pipeline %s: duplicate step %q", ErrInvalidDefinition, p.Name, s.Name)
		}
		seen[s.Name] = true
		if !s.TaskType.Valid() {
			return fmt.Errorf("%w: pipeline %s: step %s: unknown task type %q", ErrInvalidDefinition, p.Name, s.Name, s.TaskType)
		}
		if s.OutputKey == InputKey {
			return fmt.Errorf("%w: pipeline %s: step %s writes the reserved key %q", ErrInvalidDefinition, p.Name, s.Name, InputKey)
		}
	}
	return nil
}

// Status is the outcome of a pipeline run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Result is the outcome of Engine.Execute.
type Result struct {
	Pipeline string
	Status   Status
	// CompletedSteps lists executed steps in order. Skipped steps are absent.
	CompletedSteps []string
	// CurrentStep is the step that stopped the run, empty on completion.
	CurrentStep string
	// Outputs is the final context, set only on completion.
	Outputs map[string]any
	// Error is a human-readable reason for a failed or cancelled run.
	Error string
	// Err is the underlying failure, nil unless Status is StatusFailed.
	Err   error
	Usage models.TokenUsage
	Cost  float64
}
