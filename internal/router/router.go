// Package router selects agents for tasks via capability matching and keeps
// a bounded audit trail of routing decisions.
package router

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/internal/registry"
	"github.com/sgarila/dirigent/pkg/models"
)

// historyLimit caps the routing audit trail. Older records are dropped.
const historyLimit = 1000

// Record is one routing decision in the audit trail.
type Record struct {
	// Description is the routed task description.
	Description string `json:"task"`
	// AgentID is the chosen agent's ID, empty on a routing miss.
	AgentID string `json:"agent_id,omitempty"`
	// AgentName is the chosen agent's name, empty on a routing miss.
	AgentName string `json:"assigned_agent,omitempty"`
	// Confidence is the capability match score.
	Confidence float64 `json:"confidence"`
	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// Statistics summarizes routing outcomes.
type Statistics struct {
	// TotalRoutes is the number of routing decisions recorded.
	TotalRoutes int `json:"total_routes"`
	// SuccessfulRoutes is the number that found an agent.
	SuccessfulRoutes int `json:"successful_routes"`
	// SuccessRate is SuccessfulRoutes / TotalRoutes, 0 when empty.
	SuccessRate float64 `json:"success_rate"`
}

// Router routes task descriptions to agents. Routing never fails with an
// error: the absence of a match is always expressed as a nil agent.
type Router struct {
	registry *registry.Registry
	logger   *zap.Logger

	mu      sync.Mutex
	history []Record
	stats   Statistics
}

// New creates a router over the given registry.
func New(reg *registry.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: reg, logger: logger}
}

// Route finds the best-matching agent for a task description and records
// the decision in the audit trail. Returns (nil, 0) on a routing miss.
func (r *Router) Route(description string) (*agent.Agent, float64) {
	matched, confidence := r.registry.FindBest(description)

	rec := Record{
		Description: description,
		Confidence:  confidence,
		Timestamp:   time.Now(),
	}
	if matched != nil {
		rec.AgentID = matched.ID()
		rec.AgentName = matched.Name()
	}
	r.record(rec)

	if matched == nil {
		r.logger.Debug("routing miss", zap.String("description", description))
	} else {
		r.logger.Debug("routed task",
			zap.String("agent", matched.Name()),
			zap.Float64("confidence", confidence))
	}
	return matched, confidence
}

// RouteByType returns the first registered agent of the given type, or nil.
func (r *Router) RouteByType(agentType models.AgentType) *agent.Agent {
	agents := r.registry.GetByType(agentType)
	if len(agents) == 0 {
		return nil
	}
	return agents[0]
}

// RouteToLeastBusy returns the agent with the lowest cumulative task count.
// An empty agentType considers all registered agents. Ties are broken by
// registration order. Returns nil when no candidate exists.
func (r *Router) RouteToLeastBusy(agentType models.AgentType) *agent.Agent {
	var candidates []*agent.Agent
	if agentType != "" {
		candidates = r.registry.GetByType(agentType)
	} else {
		candidates = r.registry.All()
	}
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	bestCount := best.TaskCount()
	for _, c := range candidates[1:] {
		if n := c.TaskCount(); n < bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}

func (r *Router) record(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, rec)
	if len(r.history) > historyLimit {
		r.history = r.history[len(r.history)-historyLimit:]
	}
	r.stats.TotalRoutes++
	if rec.AgentID != "" {
		r.stats.SuccessfulRoutes++
	}
	if r.stats.TotalRoutes > 0 {
		r.stats.SuccessRate = float64(r.stats.SuccessfulRoutes) / float64(r.stats.TotalRoutes)
	}
}

// History returns up to the last n routing records, oldest first.
func (r *Router) History(n int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || n > len(r.history) {
		n = len(r.history)
	}
	out := make([]Record, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}

// Stats returns a snapshot of routing statistics. Counters survive history
// truncation.
func (r *Router) Stats() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
