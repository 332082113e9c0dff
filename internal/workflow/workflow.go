// Package workflow provides dependency-aware multi-step workflows: ordered
// steps assigned to agents, executable only once their dependencies have
// completed, with failure propagation to dependent steps.
package workflow

import (
	"sort"
	"sync"
	"time"

	"github.com/sgarila/dirigent/pkg/models"
)

// Status is the lifecycle state of a workflow.
type Status string

const (
	// StatusCreated means no step has started yet.
	StatusCreated Status = "created"
	// StatusInProgress means at least one step has started.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means every step completed.
	StatusCompleted Status = "completed"
	// StatusFailed means every step finished and at least one failed.
	StatusFailed Status = "failed"
)

// StepStatus is the lifecycle state of a single workflow step.
type StepStatus string

const (
	// StepPending means the step has not started.
	StepPending StepStatus = "pending"
	// StepInProgress means the step is executing.
	StepInProgress StepStatus = "in_progress"
	// StepCompleted means the step finished successfully.
	StepCompleted StepStatus = "completed"
	// StepFailed means the step finished with an error.
	StepFailed StepStatus = "failed"
	// StepBlocked means a dependency failed; the step will never run.
	StepBlocked StepStatus = "blocked"
)

// Step is a single unit of work inside a workflow, identified by its step
// number and assigned to one agent.
type Step struct {
	Step        int        `json:"step"`
	AgentID     string     `json:"agent_id"`
	Description string     `json:"description"`
	DependsOn   []int      `json:"depends_on,omitempty"`
	Status      StepStatus `json:"status"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Progress summarizes how far a workflow has advanced.
type Progress struct {
	TotalSteps  int     `json:"total_steps"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	Blocked     int     `json:"blocked"`
	InProgress  int     `json:"in_progress"`
	Pending     int     `json:"pending"`
	PercentDone float64 `json:"percent_done"`
	Status      Status  `json:"status"`
}

// Workflow is an ordered set of steps with dependencies between them.
// Concurrency-safe; all state lives behind a single mutex.
type Workflow struct {
	id        string
	name      string
	createdAt time.Time

	mu          sync.Mutex
	status      Status
	steps       map[int]*Step
	completedAt *time.Time
}

// New creates an empty workflow in the created state.
func New(name string) *Workflow {
	return &Workflow{
		id:        models.NewID("wf"),
		name:      name,
		createdAt: time.Now(),
		status:    StatusCreated,
		steps:     make(map[int]*Step),
	}
}

// ID returns the workflow identifier.
func (w *Workflow) ID() string { return w.id }

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Status returns the current workflow status.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// AddStep registers a step. Returns false if the step number is already
// taken or the workflow has already finished.
func (w *Workflow) AddStep(step int, agentID, description string, dependsOn []int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.status == StatusCompleted || w.status == StatusFailed {
		return false
	}
	if _, exists := w.steps[step]; exists {
		return false
	}
	deps := make([]int, len(dependsOn))
	copy(deps, dependsOn)
	w.steps[step] = &Step{
		Step:        step,
		AgentID:     agentID,
		Description: description,
		DependsOn:   deps,
		Status:      StepPending,
	}
	return true
}

// NextExecutable returns the lowest-numbered pending step whose registered
// dependencies have all completed, or nil when nothing is ready. Dependency
// references to unknown step numbers are ignored.
func (w *Workflow) NextExecutable() *Step {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, n := range w.orderedLocked() {
		step := w.steps[n]
		if step.Status != StepPending {
			continue
		}
		if w.depsCompletedLocked(step) {
			snapshot := *step
			return &snapshot
		}
	}
	return nil
}

func (w *Workflow) depsCompletedLocked(step *Step) bool {
	for _, dep := range step.DependsOn {
		d, ok := w.steps[dep]
		if !ok {
			continue
		}
		if d.Status != StepCompleted {
			return false
		}
	}
	return true
}

func (w *Workflow) orderedLocked() []int {
	order := make([]int, 0, len(w.steps))
	for n := range w.steps {
		order = append(order, n)
	}
	sort.Ints(order)
	return order
}

// Start marks a pending step in progress. The first start moves the
// workflow itself from created to in progress.
func (w *Workflow) Start(step int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.steps[step]
	if !ok || s.Status != StepPending {
		return false
	}
	s.Status = StepInProgress
	if w.status == StatusCreated {
		w.status = StatusInProgress
	}
	return true
}

// Complete marks an in-progress step completed and stores its result.
func (w *Workflow) Complete(step int, result any) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.steps[step]
	if !ok || s.Status != StepInProgress {
		return false
	}
	s.Status = StepCompleted
	s.Result = result
	w.settleLocked()
	return true
}

// Fail marks an in-progress step failed, records the error, and blocks every
// pending step that depends on it so it will never be scheduled.
func (w *Workflow) Fail(step int, errMsg string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	s, ok := w.steps[step]
	if !ok || s.Status != StepInProgress {
		return false
	}
	s.Status = StepFailed
	s.Error = errMsg
	w.blockDependentsLocked(step)
	w.settleLocked()
	return true
}

// blockDependentsLocked blocks pending steps depending on the dead step,
// directly or through another blocked step.
func (w *Workflow) blockDependentsLocked(dead int) {
	blocked := map[int]bool{dead: true}
	for changed := true; changed; {
		changed = false
		for n, s := range w.steps {
			if s.Status != StepPending || blocked[n] {
				continue
			}
			for _, dep := range s.DependsOn {
				if blocked[dep] {
					s.Status = StepBlocked
					blocked[n] = true
					changed = true
					break
				}
			}
		}
	}
}

// settleLocked derives the workflow's terminal status once every step has
// reached completed or failed. Blocked steps keep the workflow open.
func (w *Workflow) settleLocked() {
	if len(w.steps) == 0 {
		return
	}
	anyFailed := false
	for _, s := range w.steps {
		switch s.Status {
		case StepCompleted:
		case StepFailed:
			anyFailed = true
		default:
			return
		}
	}
	if anyFailed {
		w.status = StatusFailed
	} else {
		w.status = StatusCompleted
	}
	now := time.Now()
	w.completedAt = &now
}

// IsFinished reports whether every step reached a completed or failed state.
func (w *Workflow) IsFinished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status == StatusCompleted || w.status == StatusFailed
}

// Step returns a copy of a step by number.
func (w *Workflow) Step(n int) (Step, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.steps[n]
	if !ok {
		return Step{}, false
	}
	return *s, true
}

// Steps returns copies of all steps in ascending step order.
func (w *Workflow) Steps() []Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Step, 0, len(w.steps))
	for _, n := range w.orderedLocked() {
		out = append(out, *w.steps[n])
	}
	return out
}

// Progress reports per-status step counts and the completion percentage.
func (w *Workflow) Progress() Progress {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := Progress{TotalSteps: len(w.steps), Status: w.status}
	for _, s := range w.steps {
		switch s.Status {
		case StepCompleted:
			p.Completed++
		case StepFailed:
			p.Failed++
		case StepBlocked:
			p.Blocked++
		case StepInProgress:
			p.InProgress++
		default:
			p.Pending++
		}
	}
	if p.TotalSteps > 0 {
		p.PercentDone = float64(p.Completed) / float64(p.TotalSteps) * 100
	}
	return p
}
