package models

// AgentName identifies one of the specialised agent roles.
type AgentName string

const (
	// AgentArchitect owns concepts, system design and creative direction.
	AgentArchitect AgentName = "architect"
	// AgentDesigner owns mechanics, level design and balancing.
	AgentDesigner AgentName = "designer"
	// AgentDeveloper2D writes code and scenes for 2D projects.
	AgentDeveloper2D AgentName = "developer_2d"
	// AgentDeveloper3D writes code and scenes for 3D projects.
	AgentDeveloper3D AgentName = "developer_3d"
	// AgentArtDirector owns visual style, asset specs and image prompts.
	AgentArtDirector AgentName = "art_director"
	// AgentQA reviews, tests and validates.
	AgentQA AgentName = "qa"
)

// AgentSystem is the author of synthetic messages (refusals, failures).
// It is not a routable agent.
const AgentSystem AgentName = "system"

var allAgents = []AgentName{
	AgentArchitect, AgentDesigner, AgentDeveloper2D, AgentDeveloper3D, AgentArtDirector, AgentQA,
}

// primaryTask maps each agent to the task type used when a caller forces
// a specific agent instead of letting the router classify.
var primaryTask = map[AgentName]TaskType{
	AgentArchitect:   TaskGameConcept,
	AgentDesigner:    TaskMechanicDesign,
	AgentDeveloper2D: TaskImplementFeature2D,
	AgentDeveloper3D: TaskImplementFeature3D,
	AgentArtDirector: TaskVisualStyle,
	AgentQA:          TaskReview,
}

// AllAgents returns every routable agent name.
func AllAgents() []AgentName {
	out := make([]AgentName, len(allAgents))
	copy(out, allAgents)
	return out
}

// Valid returns true if the agent name is a routable agent.
func (a AgentName) Valid() bool {
	switch a {
	case AgentArchitect, AgentDesigner, AgentDeveloper2D, AgentDeveloper3D, AgentArtDirector, AgentQA:
		return true
	default:
		return false
	}
}

// PrimaryTask returns the default task type for the agent.
func (a AgentName) PrimaryTask() (TaskType, bool) {
	t, ok := primaryTask[a]
	return t, ok
}

// String returns the agent identifier.
func (a AgentName) String() string {
	return string(a)
}
