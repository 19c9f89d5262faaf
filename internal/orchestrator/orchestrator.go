// Package orchestrator is the entry point for GADS requests. It ties the
// session store, the task router, the agent registry and the pipeline
// engine together.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/llm"
	"github.com/ShayCichocki/gads/internal/pipeline"
	"github.com/ShayCichocki/gads/internal/router"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

// Session names used when a request arrives without a session.
const (
	DefaultProjectName  = "Untitled Project"
	PipelineProjectName = "Pipeline Execution"
)

// CancelledMessage is the content recorded when a request is denied.
const CancelledMessage = "Task cancelled by user."

// ErrNoCurrentSession is returned by GetSession when no id is given and no
// session has been used yet.
var ErrNoCurrentSession = errors.New("no current session")

// SessionStore persists sessions.
type SessionStore interface {
	Create(name, description string, kind models.ProjectKind, styleHint string) (*session.Session, error)
	Load(id string) (*session.Session, error)
	Save(sess *session.Session) error
	List() ([]session.Summary, error)
}

// TaskRouter classifies requests and resolves task types to agents.
type TaskRouter interface {
	Resolve(ctx context.Context, text string, sess *session.Session, explicit models.TaskType) router.Classification
	Route(tt models.TaskType, extra map[string]any) (router.Decision, error)
}

// AgentSource looks up agents by name.
type AgentSource interface {
	Get(name models.AgentName) (agent.Agent, bool)
}

// RequiredConfig holds the collaborators an Orchestrator cannot run without.
type RequiredConfig struct {
	Store  SessionStore
	Router TaskRouter
	Agents AgentSource
}

// Orchestrator runs single requests and pipelines against sessions. It
// keeps one optional current session as the default for callers that do
// not pass one.
type Orchestrator struct {
	store         SessionStore
	router        TaskRouter
	agents        AgentSource
	engine        *pipeline.Engine
	approve       pipeline.ApprovalFunc
	historyWindow int
	recorder      *Recorder
	logger        *slog.Logger

	mu      sync.Mutex
	current *session.Session
}

// New creates an Orchestrator.
func New(cfg RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if cfg.Store == nil || cfg.Router == nil || cfg.Agents == nil {
		return nil, fmt.Errorf("orchestrator: store, router and agents are required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	orch := &Orchestrator{
		store:         cfg.Store,
		router:        cfg.Router,
		agents:        cfg.Agents,
		approve:       o.approve,
		historyWindow: o.historyWindow,
		logger:        o.logger,
	}
	if o.runLog != nil {
		orch.recorder = NewRecorder(o.runLog, o.logger)
	}
	orch.engine = pipeline.NewEngine(cfg.Router, orch, cfg.Store,
		pipeline.WithApproval(o.approve),
		pipeline.WithLogger(o.logger),
	)
	return orch, nil
}

// Current returns the current session, or nil.
func (o *Orchestrator) Current() *session.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// SetCurrent makes sess the default session for later calls.
func (o *Orchestrator) SetCurrent(sess *session.Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = sess
}

// NewProject creates and persists a session for a new project and makes it
// current.
func (o *Orchestrator) NewProject(name, description string, kind models.ProjectKind, styleHint string) (*session.Session, error) {
	sess, err := o.store.Create(name, description, kind, styleHint)
	if err != nil {
		return nil, fmt.Errorf("create project %q: %w", name, err)
	}
	o.SetCurrent(sess)
	o.logger.Info("created project", "project", name, "kind", sess.Project.Kind, "session", sess.ID)
	return sess, nil
}

// GetSession loads the session with the given id, or returns the current
// session when id is empty. A missing session is reported as
// session.ErrNotFound; a new one is never created in its place.
func (o *Orchestrator) GetSession(id string) (*session.Session, error) {
	if id == "" {
		if cur := o.Current(); cur != nil {
			return cur, nil
		}
		return nil, ErrNoCurrentSession
	}
	if cur := o.Current(); cur != nil && cur.ID == id {
		return cur, nil
	}
	sess, err := o.store.Load(id)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions lists saved sessions, most recently updated first.
func (o *Orchestrator) ListSessions() ([]session.Summary, error) {
	return o.store.List()
}

// resolveSession returns sess, else the current session, else a freshly
// created one named name. The result becomes current.
func (o *Orchestrator) resolveSession(sess *session.Session, name string) (*session.Session, error) {
	if sess == nil {
		sess = o.Current()
	}
	if sess == nil {
		created, err := o.store.Create(name, "", models.Kind2D, "")
		if err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		o.logger.Info("created session", "session", created.ID, "project", name)
		sess = created
	}
	o.SetCurrent(sess)
	return sess, nil
}

// Run answers a single request. The task type is classified unless tt is
// set. Every outcome, including a denied approval or a failed invocation,
// is recorded on the session and persisted before Run returns.
//
// Routing errors are returned as-is. Invocation failures are returned as
// *InvocationError.
func (o *Orchestrator) Run(ctx context.Context, input string, sess *session.Session, tt models.TaskType) (*agent.Response, error) {
	sess, err := o.resolveSession(sess, DefaultProjectName)
	if err != nil {
		return nil, err
	}
	log := o.logger.With("session", sess.ID)

	sess.AddMessage(session.RoleHuman, "", input, nil)

	cls := o.router.Resolve(ctx, input, sess, tt)
	log.Info("classified request", "task_type", cls.TaskType, "source", cls.Source)

	decision, err := o.router.Route(cls.TaskType, nil)
	if err != nil {
		o.save(sess, log)
		return nil, err
	}

	if decision.RequiresApproval {
		msg := fmt.Sprintf("Task '%s' requires approval. Proceed with %s?", decision.TaskType, decision.AgentName)
		req := pipeline.ApprovalRequest{Decision: decision, Input: input, Message: msg}
		if !o.approve(ctx, req) {
			log.Info("request cancelled", "task_type", decision.TaskType)
			sess.AddMessage(session.RoleSystem, models.AgentSystem, CancelledMessage, map[string]any{
				"task_type": string(decision.TaskType),
				"agent":     string(decision.AgentName),
			})
			if err := o.store.Save(sess); err != nil {
				return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
			}
			return &agent.Response{Content: CancelledMessage, AgentName: models.AgentSystem}, nil
		}
	}

	// The trailing human message is input, not history.
	history := BuildHistory(sess.History[:len(sess.History)-1], o.historyWindow)
	resp, err := o.invoke(ctx, decision, input, sess, history)
	if err != nil {
		sess.AddMessage(session.RoleSystem, models.AgentSystem, fmt.Sprintf("Agent %s failed: %v", decision.AgentName, err), map[string]any{
			"task_type": string(decision.TaskType),
			"agent":     string(decision.AgentName),
			"error":     err.Error(),
		})
		o.save(sess, log)
		return nil, err
	}

	sess.AddMessage(session.RoleAgent, resp.AgentName, resp.Content, map[string]any{
		"task_type":      string(decision.TaskType),
		"classification": string(cls.Source),
		"model":          resp.Model,
		"artifacts":      resp.Artifacts,
	})
	if err := o.store.Save(sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return resp, nil
}

// RunPipeline executes p against sess, or the current session, or a new
// one. observe, if set, receives every progress event in order.
func (o *Orchestrator) RunPipeline(ctx context.Context, p *pipeline.Pipeline, sess *session.Session, input string, initial map[string]any, observe pipeline.Observer) (*pipeline.Result, error) {
	sess, err := o.resolveSession(sess, PipelineProjectName)
	if err != nil {
		return nil, err
	}

	var rec *Recording
	if o.recorder != nil && p != nil {
		rec = o.recorder.Begin(sess.ID, p.Name)
		observe = rec.Observer(observe)
	}

	res := o.engine.Execute(ctx, p, sess, input, initial, observe)

	var invErr *InvocationError
	if errors.As(res.Err, &invErr) && invErr.Step == "" {
		invErr.Step = res.CurrentStep
	}
	if rec != nil {
		rec.Finish(res)
	}
	return res, nil
}

// Invoke calls the agent chosen by d with the context and the most recent
// history of sess. It does not record anything on the session.
func (o *Orchestrator) Invoke(ctx context.Context, d router.Decision, input string, sess *session.Session) (*agent.Response, error) {
	return o.invoke(ctx, d, input, sess, BuildHistory(sess.History, o.historyWindow))
}

func (o *Orchestrator) invoke(ctx context.Context, d router.Decision, input string, sess *session.Session, history []llm.Message) (*agent.Response, error) {
	a, ok := o.agents.Get(d.AgentName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", router.ErrAgentNotRegistered, d.AgentName)
	}

	c := BuildContext(sess, d.AgentName, d.Context)
	o.logger.Debug("invoking agent", "agent", d.AgentName, "task_type", d.TaskType, "history", len(history))

	resp, err := a.Execute(ctx, input, c, history)
	if err != nil {
		return nil, &InvocationError{Agent: d.AgentName, TaskType: d.TaskType, Err: err}
	}
	if resp.AgentName == "" {
		resp.AgentName = d.AgentName
	}
	return resp, nil
}

func (o *Orchestrator) save(sess *session.Session, log *slog.Logger) {
	if err := o.store.Save(sess); err != nil {
		log.Error("save session failed", "error", err)
	}
}
