// Package router classifies free-text requests into task types and
// resolves task types to agents.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

var (
	// ErrUnknownTaskType is returned when routing a tag outside the closed set.
	ErrUnknownTaskType = errors.New("unknown task type")
	// ErrAgentNotRegistered is returned when the responsible agent is missing.
	ErrAgentNotRegistered = errors.New("agent not registered")
)

// DefaultHistoryTurns is how many recent messages the classifier sees.
const DefaultHistoryTurns = 3

// Classifier is a model constrained to answer with a single label.
type Classifier interface {
	Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AgentLookup reports which agents are available to route to.
type AgentLookup interface {
	Has(name models.AgentName) bool
}

// Source records how a task type was chosen.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceModel    Source = "model"
	SourceKeyword  Source = "keyword"
)

// Classification is a task type plus how it was reached.
type Classification struct {
	TaskType models.TaskType
	Source   Source
	// Keyword is the fallback keyword that matched, if any.
	Keyword string
	Reason  string
}

// Decision is the result of routing a task type.
type Decision struct {
	AgentName        models.AgentName
	TaskType         models.TaskType
	Context          map[string]any
	RequiresApproval bool
}

// Router classifies requests and routes task types to agents.
type Router struct {
	agents       AgentLookup
	classifier   Classifier
	historyTurns int
	logger       *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithClassifier enables model-based classification. Without one every
// request goes straight to keyword matching.
func WithClassifier(c Classifier) Option {
	return func(r *Router) { r.classifier = c }
}

// WithHistoryTurns sets how many recent messages the classifier sees.
func WithHistoryTurns(n int) Option {
	return func(r *Router) {
		if n >= 0 {
			r.historyTurns = n
		}
	}
}

// WithLogger sets the router's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Router that routes to the agents known to lookup.
func New(lookup AgentLookup, opts ...Option) *Router {
	r := &Router{
		agents:       lookup,
		historyTurns: DefaultHistoryTurns,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify returns the task type for a request. It never fails: classifier
// errors and invalid labels fall back to keyword matching.
func (r *Router) Classify(ctx context.Context, text string, sess *session.Session) models.TaskType {
	return r.ClassifyDetailed(ctx, text, sess).TaskType
}

// ClassifyDetailed is Classify with the provenance of the decision.
func (r *Router) ClassifyDetailed(ctx context.Context, text string, sess *session.Session) Classification {
	kind := InferProjectKind(sess)

	if r.classifier == nil {
		c := KeywordClassify(text, kind)
		r.logger.Debug("keyword classification", "task_type", c.TaskType, "keyword", c.Keyword)
		return c
	}

	raw, err := r.classifier.Classify(ctx, ClassificationSystemPrompt, buildClassifierPrompt(text, sess, r.historyTurns))
	if err != nil {
		c := KeywordClassify(text, kind)
		r.logger.Warn("classifier failed, falling back to keywords",
			"error", err, "task_type", c.TaskType, "keyword", c.Keyword)
		return c
	}

	label := NormalizeLabel(raw)
	tt, err := models.ParseTaskType(label)
	if err != nil {
		c := KeywordClassify(text, kind)
		r.logger.Warn("classifier returned invalid label, falling back to keywords",
			"label", raw, "task_type", c.TaskType, "keyword", c.Keyword)
		return c
	}

	r.logger.Info("model classified request", "task_type", tt)
	return Classification{TaskType: tt, Source: SourceModel, Reason: "classifier label"}
}

// Resolve returns explicit when it is set and classifies text otherwise.
func (r *Router) Resolve(ctx context.Context, text string, sess *session.Session, explicit models.TaskType) Classification {
	if explicit != "" {
		return Classification{TaskType: explicit, Source: SourceExplicit, Reason: "caller supplied task type"}
	}
	return r.ClassifyDetailed(ctx, text, sess)
}

// Route resolves a task type to its agent and approval requirement. extra is
// carried on the decision for the agent's invocation context.
func (r *Router) Route(tt models.TaskType, extra map[string]any) (Decision, error) {
	agent, ok := tt.Agent()
	if !ok {
		return Decision{}, fmt.Errorf("route %q: %w", tt, ErrUnknownTaskType)
	}
	if r.agents == nil || !r.agents.Has(agent) {
		return Decision{}, fmt.Errorf("route %q to %s: %w", tt, agent, ErrAgentNotRegistered)
	}
	if extra == nil {
		extra = map[string]any{}
	}

	d := Decision{
		AgentName:        agent,
		TaskType:         tt,
		Context:          extra,
		RequiresApproval: tt.RequiresApproval(),
	}
	r.logger.Info("routed task", "task_type", tt, "agent", agent, "requires_approval", d.RequiresApproval)
	return d, nil
}

// NormalizeLabel strips the decoration small models put around a label:
// quotes, backticks, a trailing period, or a "Task type:" prefix.
func NormalizeLabel(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(s)
	s = strings.TrimPrefix(s, "task type:")
	s = strings.Trim(s, " \t`\"'.*")
	return s
}
