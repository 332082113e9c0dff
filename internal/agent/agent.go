// Package agent provides the runtime agent: identity and counters wrapped
// around a pluggable task Executor.
package agent

import (
	"context"
	"sync"
	"time"

	"github.com/sgarila/dirigent/pkg/models"
)

// Executor performs the actual work of a task. Implementations may call out
// to external collaborators (model APIs, analysis engines, memory stores);
// the orchestration core only sees the returned output or error.
//
// Executors must honor ctx cancellation. The orchestrator does not impose a
// deadline of its own; callers bound long-running work through ctx.
type Executor interface {
	Execute(ctx context.Context, task *models.Task) (any, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task *models.Task) (any, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, task *models.Task) (any, error) {
	return f(ctx, task)
}

// Result is the outcome of a single task execution.
type Result struct {
	// TaskID identifies the executed task.
	TaskID string `json:"task_id"`
	// AgentID identifies the executing agent.
	AgentID string `json:"agent_id"`
	// Status is completed or failed.
	Status models.TaskStatus `json:"status"`
	// Output is the executor's output on success.
	Output any `json:"result,omitempty"`
	// Error is the failure reason on failure.
	Error string `json:"error,omitempty"`
	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"-"`
	// Timestamp is when execution finished.
	Timestamp time.Time `json:"timestamp"`
}

// Success returns true if the execution completed without error.
func (r *Result) Success() bool {
	return r.Status == models.TaskStatusCompleted
}

// Agent is a capability-tagged unit of execution. All mutation of status and
// counters happens through Execute; the registry owns the agent for its
// lifetime and everything else reads snapshots.
type Agent struct {
	id           string
	agentType    models.AgentType
	name         string
	capabilities []string
	prompt       string
	executor     Executor
	createdAt    time.Time

	mu           sync.RWMutex
	status       models.AgentStatus
	taskCount    int
	errorCount   int
	lastActivity time.Time
}

// New creates an agent with a generated ID in the initializing state.
// If executor is nil the agent uses a no-op executor that echoes the task.
func New(agentType models.AgentType, name string, capabilities []string, executor Executor) *Agent {
	if executor == nil {
		executor = defaultExecutor
	}
	now := time.Now()
	return &Agent{
		id:           models.NewShortID("agent"),
		agentType:    agentType,
		name:         name,
		capabilities: capabilities,
		executor:     executor,
		createdAt:    now,
		status:       models.AgentStatusInitializing,
		lastActivity: now,
	}
}

// defaultExecutor stands in when no real executor is wired, mirroring the
// placeholder behavior of a freshly provisioned worker.
var defaultExecutor = ExecutorFunc(func(ctx context.Context, task *models.Task) (any, error) {
	return "Task executed", nil
})

// ID returns the stable agent identifier.
func (a *Agent) ID() string { return a.id }

// Type returns the agent's role classification.
func (a *Agent) Type() models.AgentType { return a.agentType }

// Name returns the human-readable agent name.
func (a *Agent) Name() string { return a.name }

// Capabilities returns the agent's capability tags in declaration order.
func (a *Agent) Capabilities() []string { return a.capabilities }

// Prompt returns the agent's system prompt, if any.
func (a *Agent) Prompt() string { return a.prompt }

// SetPrompt replaces the agent's system prompt. Used by the prompt-adjustment
// repair strategy.
func (a *Agent) SetPrompt(prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompt = prompt
}

// Status returns the current runtime status.
func (a *Agent) Status() models.AgentStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// TaskCount returns the cumulative number of executions.
func (a *Agent) TaskCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.taskCount
}

// ErrorCount returns the cumulative number of failed executions.
func (a *Agent) ErrorCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.errorCount
}

// Execute runs a task through the agent's executor, doing the status and
// counter bookkeeping. It never returns an error: executor failures are
// captured in the returned Result so that one bad task cannot abort a
// processing batch.
func (a *Agent) Execute(ctx context.Context, task *models.Task) *Result {
	start := time.Now()

	a.mu.Lock()
	a.status = models.AgentStatusProcessing
	a.lastActivity = start
	a.taskCount++
	a.mu.Unlock()

	output, err := a.executor.Execute(ctx, task)

	finished := time.Now()
	result := &Result{
		TaskID:    task.ID,
		AgentID:   a.id,
		Duration:  finished.Sub(start),
		Timestamp: finished,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.errorCount++
		a.status = models.AgentStatusError
		result.Status = models.TaskStatusFailed
		result.Error = err.Error()
		return result
	}

	a.status = models.AgentStatusIdle
	result.Status = models.TaskStatusCompleted
	result.Output = output
	return result
}

// Snapshot returns a point-in-time view of the agent for status reporting.
func (a *Agent) Snapshot() models.AgentInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	caps := make([]string, len(a.capabilities))
	copy(caps, a.capabilities)
	return models.AgentInfo{
		ID:           a.id,
		Type:         a.agentType,
		Name:         a.name,
		Capabilities: caps,
		Status:       a.status,
		TaskCount:    a.taskCount,
		ErrorCount:   a.errorCount,
		CreatedAt:    a.createdAt,
		LastActivity: a.lastActivity,
	}
}
