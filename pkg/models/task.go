// Package models defines the shared data model for dirigent: agents, tasks,
// and messages, with closed string-enum state machines.
package models

import "time"

// TaskPriority represents the scheduling priority of a task.
type TaskPriority string

const (
	// PriorityCritical tasks preempt all other pending work.
	PriorityCritical TaskPriority = "critical"
	// PriorityHigh tasks run before medium and low priority work.
	PriorityHigh TaskPriority = "high"
	// PriorityMedium is the default priority.
	PriorityMedium TaskPriority = "medium"
	// PriorityLow tasks run only when nothing else is pending.
	PriorityLow TaskPriority = "low"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Priorities lists all priorities from most to least urgent.
// The task queue drains buckets in this order.
var Priorities = []TaskPriority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	// TaskStatusPending indicates the task is queued and not yet assigned.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusAssigned indicates the task has been dequeued for execution.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusCompleted indicates the task finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Task represents a unit of work submitted to the orchestrator.
// The task queue owns a task until it is dequeued; after that it is
// logically owned by the executing agent, with the queue retaining a
// history record for status queries.
type Task struct {
	// ID is the unique, time-ordered identifier for this task.
	ID string `json:"task_id"`
	// Description is the free-text description used for capability routing.
	Description string `json:"description"`
	// Priority determines which queue bucket the task lands in.
	Priority TaskPriority `json:"priority"`
	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`
	// Deadline is an optional completion deadline.
	Deadline *time.Time `json:"deadline,omitempty"`
	// AssignedTo is the ID of the agent executing this task.
	AssignedTo string `json:"assigned_agent,omitempty"`
	// Result holds the execution result after completion, or the failure
	// reason after a failure.
	Result any `json:"result,omitempty"`
	// CreatedAt is when the task was submitted.
	CreatedAt time.Time `json:"created_at"`
}

// NewTask creates a pending task with a generated ID.
func NewTask(description string, priority TaskPriority, deadline *time.Time) *Task {
	return &Task{
		ID:          NewID("task"),
		Description: description,
		Priority:    priority,
		Status:      TaskStatusPending,
		Deadline:    deadline,
		CreatedAt:   time.Now(),
	}
}
