// Package queue implements the priority task queue: four FIFO buckets
// drained in strict priority order, with a capacity bound on admission and a
// terminal history for status queries.
package queue

import (
	"sync"

	"github.com/sgarila/dirigent/pkg/models"
)

// DefaultMaxSize is the default pending-task capacity.
const DefaultMaxSize = 100

// Queue owns tasks from admission until they are dequeued. A task ID lives
// in exactly one priority bucket while pending, and only in the records map
// afterwards.
type Queue struct {
	mu      sync.Mutex
	maxSize int
	// buckets holds pending tasks per priority, FIFO within each bucket.
	buckets map[models.TaskPriority][]*models.Task
	// records indexes every admitted task by ID for status queries.
	records map[string]*models.Task
}

// New creates a queue with the given pending capacity. Non-positive
// capacities fall back to DefaultMaxSize.
func New(maxSize int) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	buckets := make(map[models.TaskPriority][]*models.Task, len(models.Priorities))
	for _, p := range models.Priorities {
		buckets[p] = nil
	}
	return &Queue{
		maxSize: maxSize,
		buckets: buckets,
		records: make(map[string]*models.Task),
	}
}

// Enqueue admits a task. Returns false without admitting when the total
// pending count has reached capacity. Tasks with an unknown priority are
// coerced to medium.
func (q *Queue) Enqueue(task *models.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sizeLocked() >= q.maxSize {
		return false
	}
	if !task.Priority.Valid() {
		task.Priority = models.PriorityMedium
	}
	q.buckets[task.Priority] = append(q.buckets[task.Priority], task)
	q.records[task.ID] = task
	return true
}

// Dequeue removes and returns the next task: highest non-empty priority
// bucket first, FIFO within the bucket. The task transitions to assigned.
// Returns nil when no task is pending.
func (q *Queue) Dequeue() *models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range models.Priorities {
		bucket := q.buckets[p]
		if len(bucket) == 0 {
			continue
		}
		task := bucket[0]
		q.buckets[p] = bucket[1:]
		task.Status = models.TaskStatusAssigned
		return task
	}
	return nil
}

// Complete transitions a previously dequeued task to completed with the
// given result. Returns false for unknown IDs, tasks that were never
// dequeued, and tasks already in a terminal state.
func (q *Queue) Complete(taskID string, result any) bool {
	return q.finish(taskID, models.TaskStatusCompleted, result)
}

// Fail transitions a previously dequeued task to failed with the given
// reason. Same return contract as Complete. A failed task always carries a
// human-readable reason in its result.
func (q *Queue) Fail(taskID string, reason string) bool {
	return q.finish(taskID, models.TaskStatusFailed, reason)
}

func (q *Queue) finish(taskID string, status models.TaskStatus, result any) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, ok := q.records[taskID]
	if !ok {
		return false
	}
	if task.Status != models.TaskStatusAssigned {
		return false
	}
	task.Status = status
	task.Result = result
	return true
}

// Get returns the history record for a task ID.
func (q *Queue) Get(taskID string) (*models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task, ok := q.records[taskID]
	return task, ok
}

// Size returns the total number of pending tasks.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sizeLocked()
}

func (q *Queue) sizeLocked() int {
	total := 0
	for _, bucket := range q.buckets {
		total += len(bucket)
	}
	return total
}

// Depths returns the pending count per priority.
func (q *Queue) Depths() map[models.TaskPriority]int {
	q.mu.Lock()
	defer q.mu.Unlock()

	depths := make(map[models.TaskPriority]int, len(models.Priorities))
	for _, p := range models.Priorities {
		depths[p] = len(q.buckets[p])
	}
	return depths
}
