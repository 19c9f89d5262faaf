package models

import (
	"fmt"
	"strings"
)

// TaskType is the closed set of work categories a request can be routed as.
type TaskType string

const (
	// Architect tasks: high-level design decisions.
	TaskGameConcept       TaskType = "game_concept"
	TaskSystemDesign      TaskType = "system_design"
	TaskArchitecture      TaskType = "architecture"
	TaskCreativeDirection TaskType = "creative_direction"

	// Designer tasks: mechanics, levels and tuning.
	TaskMechanicDesign TaskType = "mechanic_design"
	TaskLevelDesign    TaskType = "level_design"
	TaskBalancing      TaskType = "balancing"

	// 2D developer tasks.
	TaskImplementFeature2D TaskType = "implement_feature_2d"
	TaskCreateScene2D      TaskType = "create_scene_2d"
	TaskWriteScript2D      TaskType = "write_script_2d"
	TaskDebug2D            TaskType = "debug_2d"

	// 3D developer tasks.
	TaskImplementFeature3D TaskType = "implement_feature_3d"
	TaskCreateScene3D      TaskType = "create_scene_3d"
	TaskWriteScript3D      TaskType = "write_script_3d"
	TaskDebug3D            TaskType = "debug_3d"

	// Art director tasks.
	TaskVisualStyle       TaskType = "visual_style"
	TaskAssetSpec         TaskType = "asset_spec"
	TaskPromptEngineering TaskType = "prompt_engineering"

	// QA tasks.
	TaskTest     TaskType = "test"
	TaskValidate TaskType = "validate"
	TaskReview   TaskType = "review"
)

// allTaskTypes lists every tag in declaration order.
var allTaskTypes = []TaskType{
	TaskGameConcept, TaskSystemDesign, TaskArchitecture, TaskCreativeDirection,
	TaskMechanicDesign, TaskLevelDesign, TaskBalancing,
	TaskImplementFeature2D, TaskCreateScene2D, TaskWriteScript2D, TaskDebug2D,
	TaskImplementFeature3D, TaskCreateScene3D, TaskWriteScript3D, TaskDebug3D,
	TaskVisualStyle, TaskAssetSpec, TaskPromptEngineering,
	TaskTest, TaskValidate, TaskReview,
}

// taskAgents is the exhaustive task → agent table. init() refuses to start
// if a tag in allTaskTypes has no entry.
var taskAgents = map[TaskType]AgentName{
	TaskGameConcept:       AgentArchitect,
	TaskSystemDesign:      AgentArchitect,
	TaskArchitecture:      AgentArchitect,
	TaskCreativeDirection: AgentArchitect,

	TaskMechanicDesign: AgentDesigner,
	TaskLevelDesign:    AgentDesigner,
	TaskBalancing:      AgentDesigner,

	TaskImplementFeature2D: AgentDeveloper2D,
	TaskCreateScene2D:      AgentDeveloper2D,
	TaskWriteScript2D:      AgentDeveloper2D,
	TaskDebug2D:            AgentDeveloper2D,

	TaskImplementFeature3D: AgentDeveloper3D,
	TaskCreateScene3D:      AgentDeveloper3D,
	TaskWriteScript3D:      AgentDeveloper3D,
	TaskDebug3D:            AgentDeveloper3D,

	TaskVisualStyle:       AgentArtDirector,
	TaskAssetSpec:         AgentArtDirector,
	TaskPromptEngineering: AgentArtDirector,

	TaskTest:     AgentQA,
	TaskValidate: AgentQA,
	TaskReview:   AgentQA,
}

// approvalRequired holds the tags that must pass a human approval gate.
// Concepts, architecture and visual style are expensive to redo.
var approvalRequired = map[TaskType]bool{
	TaskGameConcept:  true,
	TaskArchitecture: true,
	TaskVisualStyle:  true,
}

func init() {
	if err := checkTaskTable(allTaskTypes, taskAgents); err != nil {
		panic(err)
	}
}

// checkTaskTable verifies that every tag maps to a known agent and that the
// table carries no stray entries.
func checkTaskTable(tags []TaskType, table map[TaskType]AgentName) error {
	for _, tt := range tags {
		agent, ok := table[tt]
		if !ok {
			return fmt.Errorf("models: task type %q has no agent mapping", tt)
		}
		if !agent.Valid() {
			return fmt.Errorf("models: task type %q maps to unknown agent %q", tt, agent)
		}
	}
	if len(table) != len(tags) {
		return fmt.Errorf("models: task table has %d entries for %d task types", len(table), len(tags))
	}
	return nil
}

// AllTaskTypes returns every known task type in declaration order.
func AllTaskTypes() []TaskType {
	out := make([]TaskType, len(allTaskTypes))
	copy(out, allTaskTypes)
	return out
}

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	_, ok := taskAgents[t]
	return ok
}

// Agent returns the agent responsible for the task type.
// The second return value is false for unknown tags.
func (t TaskType) Agent() (AgentName, bool) {
	a, ok := taskAgents[t]
	return a, ok
}

// RequiresApproval reports whether the task type is gated on human approval.
func (t TaskType) RequiresApproval() bool {
	return approvalRequired[t]
}

// String returns the tag value.
func (t TaskType) String() string {
	return string(t)
}

// ParseTaskType converts a label into a TaskType.
// Surrounding whitespace and case are ignored.
func ParseTaskType(s string) (TaskType, error) {
	tt := TaskType(strings.ToLower(strings.TrimSpace(s)))
	if !tt.Valid() {
		return "", fmt.Errorf("unknown task type %q", s)
	}
	return tt, nil
}

// ForKind picks the 2D or 3D variant of a development task family.
func ForKind(kind ProjectKind, twoD, threeD TaskType) TaskType {
	if kind == Kind3D {
		return threeD
	}
	return twoD
}
