// Package registry tracks all agents in the system and answers
// capability-based lookup queries.
package registry

import (
	"sync"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/pkg/models"
)

// Registry is the authoritative directory of agents. It owns agent
// lifecycles: agents are added via Register and removed only via Unregister.
// Lookup results iterate in registration order, which makes FindBest
// deterministic under score ties.
type Registry struct {
	mu sync.RWMutex
	// agents maps agent ID to the agent.
	agents map[string]*agent.Agent
	// order holds agent IDs in registration order.
	order []string
	// byType maps agent type to agent IDs in registration order.
	byType map[models.AgentType][]string
	// scorer is the capability scoring strategy.
	scorer Scorer
}

// New creates an empty registry using the default substring scorer.
func New() *Registry {
	return NewWithScorer(SubstringScorer{})
}

// NewWithScorer creates an empty registry with a custom scoring strategy.
func NewWithScorer(scorer Scorer) *Registry {
	return &Registry{
		agents: make(map[string]*agent.Agent),
		byType: make(map[models.AgentType][]string),
		scorer: scorer,
	}
}

// Register adds an agent and returns its ID. Registering the same agent
// twice is a no-op.
func (r *Registry) Register(a *agent.Agent) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.agents[id]; exists {
		return id
	}
	r.agents[id] = a
	r.order = append(r.order, id)
	r.byType[a.Type()] = append(r.byType[a.Type()], id)
	return id
}

// Unregister removes an agent by ID. Returns false if the ID is unknown;
// unregistering an unknown agent is never an error.
func (r *Registry) Unregister(agentID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, exists := r.agents[agentID]
	if !exists {
		return false
	}
	delete(r.agents, agentID)
	r.order = removeID(r.order, agentID)

	t := a.Type()
	r.byType[t] = removeID(r.byType[t], agentID)
	if len(r.byType[t]) == 0 {
		delete(r.byType, t)
	}
	return true
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Get returns the agent with the given ID.
func (r *Registry) Get(agentID string) (*agent.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[agentID]
	return a, ok
}

// GetByType returns all agents of the given type in registration order.
func (r *Registry) GetByType(agentType models.AgentType) []*agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byType[agentType]
	agents := make([]*agent.Agent, 0, len(ids))
	for _, id := range ids {
		agents = append(agents, r.agents[id])
	}
	return agents
}

// All returns every registered agent in registration order.
func (r *Registry) All() []*agent.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*agent.Agent, 0, len(r.order))
	for _, id := range r.order {
		agents = append(agents, r.agents[id])
	}
	return agents
}

// Count returns the number of registered agents.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// FindBest scores every registered agent against the task description and
// returns the agent with the strictly greatest score. Ties keep the
// first-registered agent. A description matching no capabilities of any
// agent yields (nil, 0); callers must treat that as "no eligible agent".
func (r *Registry) FindBest(description string) (*agent.Agent, float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *agent.Agent
	bestScore := 0.0

	for _, id := range r.order {
		a := r.agents[id]
		score := r.scorer.Score(a.Capabilities(), description)
		if score > bestScore {
			bestScore = score
			best = a
		}
	}
	return best, bestScore
}

// Status summarizes the registry composition for observability.
type Status struct {
	// TotalAgents is the number of registered agents.
	TotalAgents int `json:"total_agents"`
	// ByType counts agents per type.
	ByType map[models.AgentType]int `json:"by_type"`
	// Agents holds a snapshot of every agent.
	Agents []models.AgentInfo `json:"agents"`
}

// Status returns a snapshot of the registry composition.
func (r *Registry) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := Status{
		TotalAgents: len(r.agents),
		ByType:      make(map[models.AgentType]int, len(r.byType)),
		Agents:      make([]models.AgentInfo, 0, len(r.order)),
	}
	for t, ids := range r.byType {
		status.ByType[t] = len(ids)
	}
	for _, id := range r.order {
		status.Agents = append(status.Agents, r.agents[id].Snapshot())
	}
	return status
}
