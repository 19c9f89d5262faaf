package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/gads/pkg/models"
)

// InvocationError reports an agent call that failed. Step is empty outside
// a pipeline.
type InvocationError struct {
	Agent    models.AgentName
	TaskType models.TaskType
	Step     string
	Err      error
}

func (e *InvocationError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("step %s: agent %s (%s): %v", e.Step, e.Agent, e.TaskType, e.Err)
	}
	return fmt.Sprintf("agent %s (%s): %v", e.Agent, e.TaskType, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
