package mcpserver

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ShayCichocki/gads/internal/session"
	"github.com/ShayCichocki/gads/pkg/models"
)

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// lookupSession returns the session named by id, or nil for an empty id so
// the orchestrator falls back to its current session.
func lookupSession(orch Facade, id string) (*session.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	return orch.GetSession(strings.TrimSpace(id))
}

// taskTypeArg resolves the task_type and agent arguments. An explicit task
// type wins; an agent maps to its primary task. Both empty means classify.
func taskTypeArg(taskType, agentName string) (models.TaskType, error) {
	if taskType = strings.TrimSpace(taskType); taskType != "" {
		return models.ParseTaskType(taskType)
	}
	if agentName = strings.TrimSpace(agentName); agentName != "" {
		tt, ok := models.AgentName(agentName).PrimaryTask()
		if !ok {
			return "", fmt.Errorf("unknown agent %q", agentName)
		}
		return tt, nil
	}
	return "", nil
}
