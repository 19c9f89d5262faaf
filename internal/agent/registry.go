package agent

import (
	"sort"
	"sync"

	"github.com/ShayCichocki/gads/pkg/models"
)

// Registry holds the agents available for routing.
// It provides thread-safe registration and lookup.
type Registry struct {
	// agents maps agent names to implementations.
	agents map[models.AgentName]Agent
	// mu protects agents.
	mu sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[models.AgentName]Agent),
	}
}

// Register adds an agent, replacing any agent with the same name.
func (r *Registry) Register(a Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name()] = a
}

// Unregister removes an agent by name.
func (r *Registry) Unregister(name models.AgentName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}

// Get retrieves an agent by name.
func (r *Registry) Get(name models.AgentName) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Has reports whether an agent is registered.
func (r *Registry) Has(name models.AgentName) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns the registered agent names in sorted order.
func (r *Registry) Names() []models.AgentName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]models.AgentName, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
