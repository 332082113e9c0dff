package models

import (
	"strings"
	"time"
)

// AgentType classifies an agent's role in the system.
// Worker agents carry a variant suffix, e.g. "worker_generic".
type AgentType string

const (
	// AgentTypeSupervisor decomposes tasks and delegates to workers.
	AgentTypeSupervisor AgentType = "supervisor"
	// AgentTypeEvaluator quality-checks and scores completed work.
	AgentTypeEvaluator AgentType = "evaluator"

	workerPrefix = "worker_"
)

// WorkerType returns the agent type for a worker variant,
// e.g. WorkerType("telecom") == "worker_telecom".
func WorkerType(variant string) AgentType {
	return AgentType(workerPrefix + variant)
}

// Valid returns true if the type is a known value.
func (t AgentType) Valid() bool {
	switch t {
	case AgentTypeSupervisor, AgentTypeEvaluator:
		return true
	default:
		return strings.HasPrefix(string(t), workerPrefix) && len(t) > len(workerPrefix)
	}
}

// IsWorker returns true for worker-variant types.
func (t AgentType) IsWorker() bool {
	return strings.HasPrefix(string(t), workerPrefix)
}

// AgentStatus represents the runtime state of an agent.
type AgentStatus string

const (
	// AgentStatusInitializing indicates the agent has been created but not
	// yet executed any work.
	AgentStatusInitializing AgentStatus = "initializing"
	// AgentStatusIdle indicates the agent is ready for work.
	AgentStatusIdle AgentStatus = "idle"
	// AgentStatusProcessing indicates the agent is executing a task.
	AgentStatusProcessing AgentStatus = "processing"
	// AgentStatusError indicates the agent's last execution failed.
	AgentStatusError AgentStatus = "error"
)

// Valid returns true if the status is a known value.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusInitializing, AgentStatusIdle, AgentStatusProcessing, AgentStatusError:
		return true
	default:
		return false
	}
}

// AgentInfo is a point-in-time snapshot of an agent's identity and counters.
// It is the JSON-facing view used by status endpoints and snapshots; the
// live agent state is owned by the registry.
type AgentInfo struct {
	// ID is the stable agent identifier.
	ID string `json:"agent_id"`
	// Type is the agent's role classification.
	Type AgentType `json:"agent_type"`
	// Name is the human-readable agent name.
	Name string `json:"name"`
	// Capabilities lists the capability tags used for routing.
	Capabilities []string `json:"capabilities"`
	// Status is the runtime state at snapshot time.
	Status AgentStatus `json:"status"`
	// TaskCount is the cumulative number of tasks executed.
	TaskCount int `json:"task_count"`
	// ErrorCount is the cumulative number of failed executions.
	ErrorCount int `json:"error_count"`
	// CreatedAt is when the agent was created.
	CreatedAt time.Time `json:"created_at"`
	// LastActivity is when the agent last started executing a task.
	LastActivity time.Time `json:"last_activity"`
}
