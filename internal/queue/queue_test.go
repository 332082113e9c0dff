package queue

import (
	"testing"

	"github.com/sgarila/dirigent/pkg/models"
)

func TestEnqueueDequeue_PriorityDominatesArrival(t *testing.T) {
	q := New(10)
	low := models.NewTask("low priority job", models.PriorityLow, nil)
	critical := models.NewTask("critical alert", models.PriorityCritical, nil)

	// Low arrives first, critical must still dequeue first.
	if !q.Enqueue(low) || !q.Enqueue(critical) {
		t.Fatal("enqueue under capacity must succeed")
	}

	if got := q.Dequeue(); got != critical {
		t.Fatalf("first dequeue = %v, want the critical task", got)
	}
	if got := q.Dequeue(); got != low {
		t.Fatalf("second dequeue = %v, want the low task", got)
	}
}

func TestDequeue_FIFOWithinBucket(t *testing.T) {
	q := New(10)
	a := models.NewTask("first", models.PriorityMedium, nil)
	b := models.NewTask("second", models.PriorityMedium, nil)
	q.Enqueue(a)
	q.Enqueue(b)

	if got := q.Dequeue(); got != a {
		t.Error("same-priority tasks must dequeue in arrival order")
	}
	if got := q.Dequeue(); got != b {
		t.Error("same-priority tasks must dequeue in arrival order")
	}
}

func TestDequeue_FullPriorityOrder(t *testing.T) {
	q := New(10)
	tasks := map[models.TaskPriority]*models.Task{}
	for _, p := range []models.TaskPriority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical} {
		task := models.NewTask(string(p)+" job", p, nil)
		tasks[p] = task
		q.Enqueue(task)
	}

	want := []models.TaskPriority{models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	for _, p := range want {
		got := q.Dequeue()
		if got != tasks[p] {
			t.Fatalf("dequeue order broken: got %q bucket task, want %q", got.Priority, p)
		}
		if got.Status != models.TaskStatusAssigned {
			t.Errorf("dequeued task status = %q, want assigned", got.Status)
		}
	}
	if q.Dequeue() != nil {
		t.Error("empty queue should dequeue nil")
	}
}

func TestEnqueue_CapacityRejection(t *testing.T) {
	q := New(2)
	if !q.Enqueue(models.NewTask("one", models.PriorityMedium, nil)) {
		t.Fatal("first enqueue should succeed")
	}
	if !q.Enqueue(models.NewTask("two", models.PriorityHigh, nil)) {
		t.Fatal("second enqueue should succeed")
	}
	if q.Enqueue(models.NewTask("three", models.PriorityCritical, nil)) {
		t.Error("enqueue at capacity must be rejected")
	}
	if q.Size() != 2 {
		t.Errorf("Size = %d, want 2", q.Size())
	}

	// Draining frees capacity again.
	q.Dequeue()
	if !q.Enqueue(models.NewTask("four", models.PriorityLow, nil)) {
		t.Error("enqueue after drain should succeed")
	}
}

func TestEnqueue_CoercesUnknownPriority(t *testing.T) {
	q := New(10)
	task := models.NewTask("odd one", models.TaskPriority("urgent"), nil)
	if !q.Enqueue(task) {
		t.Fatal("enqueue should succeed")
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("unknown priority coerced to %q, want medium", task.Priority)
	}
	if q.Depths()[models.PriorityMedium] != 1 {
		t.Error("coerced task should land in the medium bucket")
	}
}

func TestCompleteAndFail(t *testing.T) {
	q := New(10)
	task := models.NewTask("real work", models.PriorityHigh, nil)
	q.Enqueue(task)

	// Completing a task that was never dequeued is a contract misuse.
	if q.Complete(task.ID, "nope") {
		t.Error("Complete before dequeue must return false")
	}

	q.Dequeue()
	if !q.Complete(task.ID, map[string]any{"rows": 42}) {
		t.Fatal("Complete of an assigned task should succeed")
	}
	if task.Status != models.TaskStatusCompleted {
		t.Errorf("status = %q, want completed", task.Status)
	}

	// Terminal transitions are one-shot.
	if q.Complete(task.ID, "again") {
		t.Error("double Complete must return false")
	}
	if q.Fail(task.ID, "too late") {
		t.Error("Fail after Complete must return false")
	}
}

func TestFail_RecordsReason(t *testing.T) {
	q := New(10)
	task := models.NewTask("doomed", models.PriorityMedium, nil)
	q.Enqueue(task)
	q.Dequeue()

	if !q.Fail(task.ID, "no suitable agent found") {
		t.Fatal("Fail of an assigned task should succeed")
	}
	if task.Status != models.TaskStatusFailed {
		t.Errorf("status = %q, want failed", task.Status)
	}
	if task.Result != "no suitable agent found" {
		t.Errorf("failed task result = %v, want the reason string", task.Result)
	}
}

func TestCompleteFail_UnknownID(t *testing.T) {
	q := New(10)
	if q.Complete("task_unknown", nil) {
		t.Error("Complete of unknown ID must return false")
	}
	if q.Fail("task_unknown", "reason") {
		t.Error("Fail of unknown ID must return false")
	}
}

func TestGetAndDepths(t *testing.T) {
	q := New(10)
	task := models.NewTask("inspect me", models.PriorityLow, nil)
	q.Enqueue(task)

	got, ok := q.Get(task.ID)
	if !ok || got != task {
		t.Error("Get should return the admitted task record")
	}
	if _, ok := q.Get("task_missing"); ok {
		t.Error("Get of unknown ID should report absence")
	}

	depths := q.Depths()
	if depths[models.PriorityLow] != 1 || depths[models.PriorityCritical] != 0 {
		t.Errorf("Depths = %v", depths)
	}

	// Dequeued tasks leave the buckets but stay queryable.
	q.Dequeue()
	if q.Size() != 0 {
		t.Errorf("Size after dequeue = %d, want 0", q.Size())
	}
	if _, ok := q.Get(task.ID); !ok {
		t.Error("dequeued task must remain in history")
	}
}
