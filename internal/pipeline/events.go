package pipeline

import (
	"github.com/ShayCichocki/gads/pkg/models"
)

// EventKind names an event variant.
type EventKind string

const (
	// KindStepStarted indicates a step was routed and is about to run.
	KindStepStarted EventKind = "step_start"
	// KindInvocationStarted indicates the agent call is being made.
	KindInvocationStarted EventKind = "invocation_start"
	// KindStepCompleted indicates a step's agent answered.
	KindStepCompleted EventKind = "step_complete"
	// KindStepSkipped indicates a step's condition did not hold.
	KindStepSkipped EventKind = "step_skipped"
	// KindApprovalNeeded indicates the step waits for a human decision.
	KindApprovalNeeded EventKind = "approval_needed"
	// KindApprovalGranted indicates the step was approved.
	KindApprovalGranted EventKind = "approval_granted"
	// KindApprovalDenied indicates the step was refused; the run stops.
	KindApprovalDenied EventKind = "approval_denied"
	// KindPipelineFailed indicates a step failed; the run stops.
	KindPipelineFailed EventKind = "pipeline_failed"
	// KindPipelineCompleted indicates every step ran or was skipped.
	KindPipelineCompleted EventKind = "pipeline_complete"
)

// Event is a progress notification. The set of implementations is closed;
// consumers switch on the concrete type.
type Event interface {
	Kind() EventKind
	// StepName is the step the event belongs to, empty for run-level events.
	StepName() string
	isEvent()
}

// StepStarted is emitted once a step has been routed.
type StepStarted struct {
	Step string `json:"step"`
	// Index is 1-based.
	Index    int              `json:"step_index"`
	Total    int              `json:"total_steps"`
	Agent    models.AgentName `json:"agent"`
	TaskType models.TaskType  `json:"task_type"`
}

// InvocationStarted is emitted right before the agent call.
type InvocationStarted struct {
	Step  string           `json:"step"`
	Agent models.AgentName `json:"agent"`
}

// StepCompleted is emitted after a successful agent call.
type StepCompleted struct {
	Step    string             `json:"step"`
	Index   int                `json:"step_index"`
	Total   int                `json:"total_steps"`
	Agent   models.AgentName   `json:"agent"`
	Model   string             `json:"model"`
	Usage   *models.TokenUsage `json:"usage,omitempty"`
	Cost    float64            `json:"cost"`
	Preview string             `json:"output_preview"`
}

// StepSkipped is emitted when a step's condition does not hold.
type StepSkipped struct {
	Step  string `json:"step"`
	Index int    `json:"step_index"`
	Total int    `json:"total_steps"`
}

// ApprovalNeeded is emitted before asking for a decision.
type ApprovalNeeded struct {
	Step     string           `json:"step"`
	Agent    models.AgentName `json:"agent"`
	TaskType models.TaskType  `json:"task_type"`
	Message  string           `json:"message"`
}

// ApprovalGranted is emitted when the step may proceed.
type ApprovalGranted struct {
	Step string `json:"step"`
}

// ApprovalDenied is emitted when the step was refused.
type ApprovalDenied struct {
	Step string `json:"step"`
}

// PipelineFailed is emitted when a step fails.
type PipelineFailed struct {
	Step           string   `json:"step"`
	Error          string   `json:"error"`
	CompletedSteps []string `json:"completed_steps"`
}

// PipelineCompleted is emitted after the last step.
type PipelineCompleted struct {
	Pipeline       string            `json:"pipeline"`
	CompletedSteps []string          `json:"completed_steps"`
	Usage          models.TokenUsage `json:"usage"`
	Cost           float64           `json:"cost"`
}

func (StepStarted) Kind() EventKind       { return KindStepStarted }
func (InvocationStarted) Kind() EventKind { return KindInvocationStarted }
func (StepCompleted) Kind() EventKind     { return KindStepCompleted }
func (StepSkipped) Kind() EventKind       { return KindStepSkipped }
func (ApprovalNeeded) Kind() EventKind    { return KindApprovalNeeded }
func (ApprovalGranted) Kind() EventKind   { return KindApprovalGranted }
func (ApprovalDenied) Kind() EventKind    { return KindApprovalDenied }
func (PipelineFailed) Kind() EventKind    { return KindPipelineFailed }
func (PipelineCompleted) Kind() EventKind { return KindPipelineCompleted }

func (e StepStarted) StepName() string       { return e.Step }
func (e InvocationStarted) StepName() string { return e.Step }
func (e StepCompleted) StepName() string     { return e.Step }
func (e StepSkipped) StepName() string       { return e.Step }
func (e ApprovalNeeded) StepName() string    { return e.Step }
func (e ApprovalGranted) StepName() string   { return e.Step }
func (e ApprovalDenied) StepName() string    { return e.Step }
func (e PipelineFailed) StepName() string    { return e.Step }
func (PipelineCompleted) StepName() string   { return "" }

func (StepStarted) isEvent()       {}
func (InvocationStarted) isEvent() {}
func (StepCompleted) isEvent()     {}
func (StepSkipped) isEvent()       {}
func (ApprovalNeeded) isEvent()    {}
func (ApprovalGranted) isEvent()   {}
func (ApprovalDenied) isEvent()    {}
func (PipelineFailed) isEvent()    {}
func (PipelineCompleted) isEvent() {}

// Observer receives events synchronously, in order.
type Observer func(Event)
