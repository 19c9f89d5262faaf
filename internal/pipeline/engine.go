package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ShayCichocki/gads/internal/agent"
	"github.com/ShayCichocki/gads/internal/router"
	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

// previewLen is the number of runes of output carried on StepCompleted.
const previewLen = 200

// Router resolves a task type to an agent.
type Router interface {
	Route(tt models.TaskType, extra map[string]any) (router.Decision, error)
}

// Invoker calls the agent chosen by a routing decision.
type Invoker interface {
	Invoke(ctx context.Context, d router.Decision, input string, sess *session.Session) (*agent.Response, error)
}

// Saver persists a session.
type Saver interface {
	Save(sess *session.Session) error
}

// ApprovalRequest describes a decision awaiting a human answer.
type ApprovalRequest struct {
	// Step is empty for single requests outside a pipeline.
	Step     string
	Decision router.Decision
	Input    string
	Message  string
}

// ApprovalFunc answers an approval request. Returning false cancels.
type ApprovalFunc func(ctx context.Context, req ApprovalRequest) bool

// AutoApprove approves every request.
func AutoApprove(context.Context, ApprovalRequest) bool { return true }

// Engine executes pipelines step by step.
type Engine struct {
	router  Router
	invoker Invoker
	saver   Saver
	approve ApprovalFunc
	logger  *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithApproval sets the approval callback. The default approves everything.
func WithApproval(fn ApprovalFunc) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.approve = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an engine over its collaborators.
func NewEngine(r Router, inv Invoker, s Saver, opts ...EngineOption) *Engine {
	e := &Engine{
		router:  r,
		invoker: inv,
		saver:   s,
		approve: AutoApprove,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs p against sess. Steps run strictly in order; the first
// failure or approval denial stops the run. The session is saved after
// every completed step and whenever the run ends. observe may be nil.
func (e *Engine) Execute(ctx context.Context, p *Pipeline, sess *session.Session, input string, initial map[string]any, observe Observer) *Result {
	emit := func(ev Event) {
		if observe != nil {
			observe(ev)
		}
	}

	res := &Result{Status: StatusRunning}
	if err := p.Validate(); err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		res.Err = err
		if p != nil {
			res.Pipeline = p.Name
		}
		emit(PipelineFailed{Error: res.Error, CompletedSteps: []string{}})
		return res
	}
	res.Pipeline = p.Name

	state := make(map[string]any, len(initial)+1)
	for k, v := range initial {
		state[k] = v
	}
	state[InputKey] = input

	total := len(p.Steps)
	log := e.logger.With("pipeline", p.Name, "session", sess.ID)
	log.Info("pipeline started", "steps", total)

	for i, step := range p.Steps {
		index := i + 1
		res.CurrentStep = step.Name

		if !step.Condition.ShouldRun(state) {
			log.Debug("step skipped", "step", step.Name)
			emit(StepSkipped{Step: step.Name, Index: index, Total: total})
			continue
		}
		if err := ctx.Err(); err != nil {
			return e.fail(res, sess, step.Name, err, emit, log)
		}

		stepInput := resolveInput(state, step)

		decision, err := e.router.Route(step.TaskType, cloneMap(state))
		if err != nil {
			return e.fail(res, sess, step.Name, err, emit, log)
		}
		emit(StepStarted{
			Step:     step.Name,
			Index:    index,
			Total:    total,
			Agent:    decision.AgentName,
			TaskType: decision.TaskType,
		})

		if decision.RequiresApproval {
			msg := fmt.Sprintf("Pipeline step '%s' requires approval. Proceed?", step.Name)
			emit(ApprovalNeeded{Step: step.Name, Agent: decision.AgentName, TaskType: decision.TaskType, Message: msg})
			req := ApprovalRequest{Step: step.Name, Decision: decision, Input: stepInput, Message: msg}
			if !e.approve(ctx, req) {
				emit(ApprovalDenied{Step: step.Name})
				res.Status = StatusCancelled
				res.Error = fmt.Sprintf("step %q cancelled by user", step.Name)
				log.Info("pipeline cancelled", "step", step.Name)
				e.save(sess, log)
				return res
			}
			emit(ApprovalGranted{Step: step.Name})
		}

		emit(InvocationStarted{Step: step.Name, Agent: decision.AgentName})
		resp, err := e.invoker.Invoke(ctx, decision, stepInput, sess)
		if err != nil {
			return e.fail(res, sess, step.Name, err, emit, log)
		}

		if step.OutputKey != "" {
			state[step.OutputKey] = resp.Content
			if len(resp.Artifacts) > 0 {
				state[step.OutputKey+ArtifactsSuffix] = resp.Artifacts
			}
		}
		sess.AddMessage(session.RoleAgent, resp.AgentName, resp.Content, map[string]any{
			"pipeline":      p.Name,
			"pipeline_step": step.Name,
			"task_type":     string(decision.TaskType),
			"artifacts":     resp.Artifacts,
		})
		if err := e.saver.Save(sess); err != nil {
			return e.fail(res, sess, step.Name, fmt.Errorf("save session: %w", err), emit, log)
		}
		res.CompletedSteps = append(res.CompletedSteps, step.Name)

		cost := resp.Cost()
		if resp.Usage != nil {
			res.Usage = res.Usage.Add(*resp.Usage)
		}
		res.Cost += cost

		log.Info("step completed", "step", step.Name, "agent", resp.AgentName, "model", resp.Model)
		emit(StepCompleted{
			Step:    step.Name,
			Index:   index,
			Total:   total,
			Agent:   resp.AgentName,
			Model:   resp.Model,
			Usage:   resp.Usage,
			Cost:    cost,
			Preview: preview(resp.Content),
		})
	}

	if len(res.CompletedSteps) == 0 {
		if err := e.saver.Save(sess); err != nil {
			return e.fail(res, sess, "", fmt.Errorf("save session: %w", err), emit, log)
		}
	}

	res.Status = StatusCompleted
	res.CurrentStep = ""
	res.Outputs = state
	log.Info("pipeline completed", "completed_steps", len(res.CompletedSteps), "cost", res.Cost)
	emit(PipelineCompleted{
		Pipeline:       p.Name,
		CompletedSteps: append([]string(nil), res.CompletedSteps...),
		Usage:          res.Usage,
		Cost:           res.Cost,
	})
	return res
}

func (e *Engine) fail(res *Result, sess *session.Session, step string, err error, emit Observer, log *slog.Logger) *Result {
	res.Status = StatusFailed
	res.Err = err
	if step != "" {
		res.Error = fmt.Sprintf("step %q failed: %v", step, err)
	} else {
		res.Error = err.Error()
	}
	log.Error("pipeline failed", "step", step, "error", err)
	emit(PipelineFailed{
		Step:           step,
		Error:          err.Error(),
		CompletedSteps: append([]string{}, res.CompletedSteps...),
	})
	if step != "" {
		e.save(sess, log)
	}
	return res
}

func (e *Engine) save(sess *session.Session, log *slog.Logger) {
	if err := e.saver.Save(sess); err != nil {
		log.Error("save session failed", "error", err)
	}
}

// resolveInput picks the step's input: the value at its input key when set,
// else the pipeline's initial input.
func resolveInput(state map[string]any, step Step) string {
	if step.InputKey != "" && isSet(state, step.InputKey) {
		return stringify(state[step.InputKey])
	}
	if v, ok := state[InputKey]; ok && v != nil {
		return stringify(v)
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return fmt.Sprint(v)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
