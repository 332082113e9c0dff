package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/internal/broker"
	"github.com/sgarila/dirigent/internal/monitor"
	"github.com/sgarila/dirigent/internal/queue"
	"github.com/sgarila/dirigent/internal/registry"
	"github.com/sgarila/dirigent/internal/router"
	"github.com/sgarila/dirigent/internal/state"
	"github.com/sgarila/dirigent/internal/workflow"
	"github.com/sgarila/dirigent/pkg/models"
)

// routeMissReason is the failure reason recorded for unroutable tasks.
const routeMissReason = "no suitable agent found"

// Orchestrator owns every subsystem of a dirigent run: the agent registry,
// router, task queue, message broker, workflow coordinator, reliability and
// drift monitors, and the repair supervisor.
type Orchestrator struct {
	id     string
	logger *zap.Logger

	registry    *registry.Registry
	router      *router.Router
	queue       *queue.Queue
	broker      *broker.Broker
	coordinator *workflow.Coordinator
	reliability *monitor.Reliability
	drift       *monitor.DriftDetector
	supervisor  *monitor.Supervisor
	store       *state.Store
	emitter     *EventEmitter

	executor agent.Executor
	comms    map[string]*broker.Comm
}

// New creates an orchestrator and bootstraps the default agent team: a
// supervisor, a generic worker, a telecom worker, and a quality evaluator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		id:     models.NewID("orch"),
		logger: zap.NewNop(),
		comms:  make(map[string]*broker.Comm),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.registry == nil {
		o.registry = registry.New()
	}
	if o.queue == nil {
		o.queue = queue.New(queue.DefaultMaxSize)
	}
	if o.broker == nil {
		o.broker = broker.New(broker.WithLogger(o.logger))
	}
	if o.router == nil {
		o.router = router.New(o.registry, o.logger)
	}
	if o.coordinator == nil {
		o.coordinator = workflow.NewCoordinator(o.logger)
	}
	if o.reliability == nil {
		o.reliability = monitor.NewReliability(monitor.WithReliabilityLogger(o.logger))
	}
	if o.drift == nil {
		o.drift = monitor.NewDriftDetector(monitor.WithDriftLogger(o.logger))
	}
	if o.supervisor == nil {
		o.supervisor = monitor.NewSupervisor(monitor.WithSupervisorLogger(o.logger))
	}
	if o.emitter == nil {
		o.emitter = NewEventEmitter(256, o.logger)
	}
	o.registerRepairHandlers()
	o.bootstrapAgents()

	o.store.StartRun(o.id, "orchestrator run")
	return o
}

// bootstrapAgents builds the default team.
func (o *Orchestrator) bootstrapAgents() {
	o.RegisterAgent(agent.NewSupervisor("Main Supervisor", o.executor))
	o.RegisterAgent(agent.NewWorker("generic", "Generic Worker", o.executor))
	o.RegisterAgent(agent.NewWorker("telecom", "Telecom Worker", o.executor))
	o.RegisterAgent(agent.NewEvaluator("Quality Evaluator", o.executor))
}

// ID returns the orchestrator's run identifier.
func (o *Orchestrator) ID() string { return o.id }

// RegisterAgent adds an agent to the registry, gives it a communication
// handle on the broker, and persists its snapshot.
func (o *Orchestrator) RegisterAgent(a *agent.Agent) {
	o.registry.Register(a)
	o.comms[a.ID()] = broker.NewComm(a.ID(), o.broker, o.logger)
	o.store.SaveAgent(a.Snapshot())
	o.emitter.Emit(Event{
		Type:      EventAgentRegistered,
		AgentID:   a.ID(),
		Message:   a.Name(),
		Timestamp: time.Now(),
	})
	o.logger.Info("agent registered",
		zap.String("agent", a.ID()),
		zap.String("name", a.Name()),
		zap.String("type", string(a.Type())))
}

// Comm returns the communication handle for a registered agent.
func (o *Orchestrator) Comm(agentID string) (*broker.Comm, bool) {
	c, ok := o.comms[agentID]
	return c, ok
}

// AddTask submits a task. Returns the task ID, or empty string when the
// queue is at capacity.
func (o *Orchestrator) AddTask(description string, priority models.TaskPriority, deadline *time.Time) string {
	task := models.NewTask(description, priority, deadline)
	if !o.queue.Enqueue(task) {
		o.logger.Warn("task rejected, queue full", zap.String("description", description))
		return ""
	}
	o.store.SaveTask(task)
	o.emitter.Emit(Event{
		Type:      EventTaskQueued,
		TaskID:    task.ID,
		Message:   description,
		Timestamp: time.Now(),
	})
	return task.ID
}

// ProcessTasks dequeues and executes up to maxTasks tasks synchronously,
// routing each by capability match. Unroutable tasks are failed and do not
// appear in the results. Returns the execution results in processing order.
func (o *Orchestrator) ProcessTasks(ctx context.Context, maxTasks int) []*agent.Result {
	var results []*agent.Result

	for i := 0; i < maxTasks; i++ {
		if err := ctx.Err(); err != nil {
			break
		}
		task := o.queue.Dequeue()
		if task == nil {
			break
		}

		target, confidence := o.router.Route(task.Description)
		if target == nil {
			o.queue.Fail(task.ID, routeMissReason)
			o.store.SaveTask(task)
			o.store.RecordEvent(o.id, string(EventTaskUnroutable), map[string]any{"task": task.ID})
			o.emitter.Emit(Event{
				Type:      EventTaskUnroutable,
				TaskID:    task.ID,
				Message:   routeMissReason,
				Timestamp: time.Now(),
			})
			continue
		}

		task.AssignedTo = target.ID()
		o.emitter.Emit(Event{
			Type:      EventTaskStarted,
			TaskID:    task.ID,
			AgentID:   target.ID(),
			Message:   fmt.Sprintf("routed with confidence %.2f", confidence),
			Timestamp: time.Now(),
		})

		result := target.Execute(ctx, task)
		o.recordResult(task, target, result)
		results = append(results, result)
	}

	o.emitter.Emit(Event{
		Type:      EventRunDone,
		Message:   fmt.Sprintf("processed %d tasks", len(results)),
		Timestamp: time.Now(),
	})
	return results
}

// recordResult settles the task in the queue, feeds the monitors, and runs
// the repair ladder on failure.
func (o *Orchestrator) recordResult(task *models.Task, target *agent.Agent, result *agent.Result) {
	durationMS := float64(result.Duration.Milliseconds())
	o.reliability.Record(target.ID(), result.Success(), durationMS)
	o.drift.Record("response_time_ms", durationMS)
	if result.Success() {
		o.drift.Record("error_rate", 0)
	} else {
		o.drift.Record("error_rate", 1)
	}

	if result.Success() {
		o.queue.Complete(task.ID, result.Output)
		o.store.SaveTask(task)
		o.store.RecordEvent(o.id, string(EventTaskCompleted), map[string]any{
			"task":  task.ID,
			"agent": target.ID(),
		})
		o.emitter.Emit(Event{
			Type:      EventTaskCompleted,
			TaskID:    task.ID,
			AgentID:   target.ID(),
			Duration:  result.Duration,
			Timestamp: time.Now(),
		})
	} else {
		o.queue.Fail(task.ID, result.Error)
		o.store.SaveTask(task)
		o.store.RecordEvent(o.id, string(EventTaskFailed), map[string]any{
			"task":   task.ID,
			"agent":  target.ID(),
			"reason": result.Error,
		})
		o.emitter.Emit(Event{
			Type:      EventTaskFailed,
			TaskID:    task.ID,
			AgentID:   target.ID(),
			Message:   result.Error,
			Timestamp: time.Now(),
		})
		o.repairFailure(target, task, result.Error)
	}
	o.store.SaveAgent(target.Snapshot())

	if drifted, score := o.drift.Detect("response_time_ms"); drifted {
		o.emitter.Emit(Event{
			Type:      EventDriftDetected,
			Message:   fmt.Sprintf("response_time_ms drift score %.2f", score),
			Timestamp: time.Now(),
		})
	}
}

// repairFailure records the failure and drives it through the repair ladder.
func (o *Orchestrator) repairFailure(target *agent.Agent, task *models.Task, reason string) {
	failure := o.supervisor.RecordFailure(target.ID(), task.ID, reason)
	o.emitter.Emit(Event{
		Type:      EventRepairStarted,
		TaskID:    task.ID,
		AgentID:   target.ID(),
		Message:   string(failure.Severity),
		Timestamp: time.Now(),
	})

	attempt, err := o.supervisor.Repair(failure.ID)
	if err != nil {
		o.logger.Error("repair failed", zap.String("failure", failure.ID), zap.Error(err))
		return
	}
	o.emitter.Emit(Event{
		Type:      EventRepairFinished,
		TaskID:    task.ID,
		AgentID:   target.ID(),
		Message:   string(attempt.Strategy),
		Timestamp: time.Now(),
	})
}

// registerRepairHandlers wires the concrete repair strategies.
func (o *Orchestrator) registerRepairHandlers() {
	o.supervisor.RegisterHandler(monitor.StrategyPromptAdjustment, func(f *monitor.Failure) bool {
		a, ok := o.registry.Get(f.AgentID)
		if !ok {
			return false
		}
		a.SetPrompt(a.Prompt() + "\nBe precise and double-check your output before answering.")
		// A prompt tweak only helps when the failure was a quality problem.
		return f.Severity == monitor.SeverityMedium
	})
	o.supervisor.RegisterHandler(monitor.StrategyAgentSwap, func(f *monitor.Failure) bool {
		failed, ok := o.registry.Get(f.AgentID)
		if !ok {
			return false
		}
		replacement := o.router.RouteToLeastBusy(failed.Type())
		return replacement != nil && replacement.ID() != f.AgentID
	})
	o.supervisor.RegisterHandler(monitor.StrategyTaskDelegation, func(f *monitor.Failure) bool {
		task, ok := o.queue.Get(f.TaskID)
		if !ok {
			return false
		}
		// Requeue a fresh copy at high priority for another agent to pick up.
		retry := models.NewTask(task.Description, models.PriorityHigh, task.Deadline)
		return o.queue.Enqueue(retry)
	})
}

// CreateWorkflow registers a new multi-step workflow.
func (o *Orchestrator) CreateWorkflow(name string) *workflow.Workflow {
	return o.coordinator.Create(name)
}

// BuildWorkflow turns a declarative workflow spec into a registered
// workflow, resolving each step's agent type to the least busy live agent
// of that type.
func (o *Orchestrator) BuildWorkflow(spec *workflow.Spec) (*workflow.Workflow, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	w := o.coordinator.Create(spec.Name)
	for _, step := range spec.Ordered() {
		target := o.router.RouteToLeastBusy(models.AgentType(step.AgentType))
		if target == nil {
			return nil, fmt.Errorf("build workflow %q: no agent of type %s for step %d", spec.Name, step.AgentType, step.Step)
		}
		if !w.AddStep(step.Step, target.ID(), step.Description, step.DependsOn) {
			return nil, fmt.Errorf("build workflow %q: step %d rejected", spec.Name, step.Step)
		}
	}
	return w, nil
}

// Workflow returns a workflow by ID.
func (o *Orchestrator) Workflow(id string) (*workflow.Workflow, bool) {
	return o.coordinator.Get(id)
}

// RunWorkflow executes a workflow's steps in dependency order, each on its
// assigned agent, until no step is executable.
func (o *Orchestrator) RunWorkflow(ctx context.Context, w *workflow.Workflow) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := w.NextExecutable()
		if step == nil {
			return nil
		}
		target, ok := o.registry.Get(step.AgentID)
		if !ok {
			w.Start(step.Step)
			w.Fail(step.Step, fmt.Sprintf("agent %s not registered", step.AgentID))
			continue
		}

		w.Start(step.Step)
		task := models.NewTask(step.Description, models.PriorityMedium, nil)
		task.Status = models.TaskStatusAssigned
		task.AssignedTo = target.ID()

		result := target.Execute(ctx, task)
		o.reliability.Record(target.ID(), result.Success(), float64(result.Duration.Milliseconds()))
		if result.Success() {
			w.Complete(step.Step, result.Output)
		} else {
			w.Fail(step.Step, result.Error)
		}
	}
}

// Status aggregates the state of every subsystem.
type Status struct {
	OrchestratorID string                         `json:"orchestrator_id"`
	Agents         registry.Status                `json:"agents"`
	QueueDepths    map[models.TaskPriority]int    `json:"queue_depths"`
	QueueSize      int                            `json:"queue_size"`
	Broker         broker.Stats                   `json:"broker"`
	Workflows      int                            `json:"workflows"`
	Health         map[string]monitor.HealthCheck `json:"health"`
	Repairs        monitor.RepairStats            `json:"repairs"`
	Routing        router.Statistics              `json:"routing"`
}

// Status returns a snapshot of the orchestrator and its subsystems.
func (o *Orchestrator) Status() Status {
	return Status{
		OrchestratorID: o.id,
		Agents:         o.registry.Status(),
		QueueDepths:    o.queue.Depths(),
		QueueSize:      o.queue.Size(),
		Broker:         o.broker.Stats(),
		Workflows:      o.coordinator.Count(),
		Health:         o.reliability.CheckAll(),
		Repairs:        o.supervisor.Stats(),
		Routing:        o.router.Stats(),
	}
}

// Events exposes the orchestrator's event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Registry returns the agent registry.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

// Broker returns the message broker.
func (o *Orchestrator) Broker() *broker.Broker { return o.broker }

// Queue returns the task queue.
func (o *Orchestrator) Queue() *queue.Queue { return o.queue }

// Reliability returns the reliability monitor.
func (o *Orchestrator) Reliability() *monitor.Reliability { return o.reliability }

// Drift returns the drift detector.
func (o *Orchestrator) Drift() *monitor.DriftDetector { return o.drift }

// Supervisor returns the repair supervisor.
func (o *Orchestrator) Supervisor() *monitor.Supervisor { return o.supervisor }

// Close finishes the persisted run and releases resources. The event
// channel is closed, so subscribers drain and exit.
func (o *Orchestrator) Close() error {
	o.store.FinishRun(o.id, state.RunCompleted)
	o.emitter.Close()
	return o.store.Close()
}
