// Package orchestrator wires the registry, router, queue, broker, workflow
// coordinator, and monitors into a single task processing loop.
package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTaskQueued indicates a task was accepted by the queue.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task has started execution.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventTaskUnroutable indicates no agent could take the task.
	EventTaskUnroutable EventType = "task_unroutable"
	// EventAgentRegistered indicates an agent joined the registry.
	EventAgentRegistered EventType = "agent_registered"
	// EventRepairStarted indicates the supervisor began repairing a failure.
	EventRepairStarted EventType = "repair_started"
	// EventRepairFinished indicates a repair attempt concluded.
	EventRepairFinished EventType = "repair_finished"
	// EventDriftDetected indicates the drift detector flagged behavior.
	EventDriftDetected EventType = "drift_detected"
	// EventRunDone indicates a processing run finished.
	EventRunDone EventType = "run_done"
)

// Event represents an event emitted by the orchestrator. Subscribers use
// these to track progress without polling.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// AgentID is the ID of the related agent, if applicable.
	AgentID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Duration is the elapsed time for completion events.
	Duration time.Duration
}
