package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sgarila/dirigent/pkg/models"
)

func TestNew_Defaults(t *testing.T) {
	a := New(models.WorkerType("generic"), "Worker 1", []string{"task_execution"}, nil)

	if !strings.HasPrefix(a.ID(), "agent_") {
		t.Errorf("agent ID %q should have agent_ prefix", a.ID())
	}
	if a.Status() != models.AgentStatusInitializing {
		t.Errorf("new agent status = %q, want initializing", a.Status())
	}
	if a.TaskCount() != 0 || a.ErrorCount() != 0 {
		t.Error("new agent should have zero counters")
	}
}

func TestAgent_ExecuteSuccess(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, task *models.Task) (any, error) {
		return "analysis complete", nil
	})
	a := NewWorker("generic", "Worker 1", exec)
	task := models.NewTask("run data analysis", models.PriorityMedium, nil)

	result := a.Execute(context.Background(), task)

	if !result.Success() {
		t.Fatalf("expected success, got status %q error %q", result.Status, result.Error)
	}
	if result.Output != "analysis complete" {
		t.Errorf("result output = %v, want analysis complete", result.Output)
	}
	if result.TaskID != task.ID || result.AgentID != a.ID() {
		t.Error("result must carry task and agent IDs")
	}
	if a.Status() != models.AgentStatusIdle {
		t.Errorf("agent status after success = %q, want idle", a.Status())
	}
	if a.TaskCount() != 1 || a.ErrorCount() != 0 {
		t.Errorf("counters = (%d tasks, %d errors), want (1, 0)", a.TaskCount(), a.ErrorCount())
	}
}

func TestAgent_ExecuteFailure(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, task *models.Task) (any, error) {
		return nil, errors.New("model unavailable")
	})
	a := NewWorker("generic", "Worker 1", exec)
	task := models.NewTask("run data analysis", models.PriorityMedium, nil)

	result := a.Execute(context.Background(), task)

	if result.Success() {
		t.Fatal("expected failure")
	}
	if result.Status != models.TaskStatusFailed {
		t.Errorf("result status = %q, want failed", result.Status)
	}
	if result.Error != "model unavailable" {
		t.Errorf("result error = %q, want model unavailable", result.Error)
	}
	if a.Status() != models.AgentStatusError {
		t.Errorf("agent status after failure = %q, want error", a.Status())
	}
	if a.TaskCount() != 1 || a.ErrorCount() != 1 {
		t.Errorf("counters = (%d tasks, %d errors), want (1, 1)", a.TaskCount(), a.ErrorCount())
	}
}

func TestAgent_ExecuteHonorsContext(t *testing.T) {
	exec := ExecutorFunc(func(ctx context.Context, task *models.Task) (any, error) {
		return nil, ctx.Err()
	})
	a := NewWorker("generic", "Worker 1", exec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := a.Execute(ctx, models.NewTask("slow job", models.PriorityLow, nil))
	if result.Success() {
		t.Fatal("cancelled execution should fail")
	}
}

func TestBuiltinAgents(t *testing.T) {
	tests := []struct {
		name     string
		agent    *Agent
		wantType models.AgentType
		wantCap  string
	}{
		{"supervisor", NewSupervisor("Main Supervisor", nil), models.AgentTypeSupervisor, "task_decomposition"},
		{"generic worker", NewWorker("generic", "Worker", nil), models.WorkerType("generic"), "task_execution"},
		{"telecom worker", NewWorker("telecom", "Telecom Worker", nil), models.WorkerType("telecom"), "data_analysis"},
		{"evaluator", NewEvaluator("Evaluator", nil), models.AgentTypeEvaluator, "quality_scoring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.agent.Type() != tt.wantType {
				t.Errorf("type = %q, want %q", tt.agent.Type(), tt.wantType)
			}
			found := false
			for _, c := range tt.agent.Capabilities() {
				if c == tt.wantCap {
					found = true
				}
			}
			if !found {
				t.Errorf("capabilities %v missing %q", tt.agent.Capabilities(), tt.wantCap)
			}
		})
	}
}

func TestDecompose(t *testing.T) {
	task := models.NewTask("migrate billing data", models.PriorityMedium, nil)
	subtasks := Decompose(task, 3)

	if len(subtasks) != 3 {
		t.Fatalf("got %d subtasks, want 3", len(subtasks))
	}
	if subtasks[0].Priority != models.PriorityHigh {
		t.Errorf("first subtask priority = %q, want high", subtasks[0].Priority)
	}
	for i, st := range subtasks[1:] {
		if st.Priority != models.PriorityMedium {
			t.Errorf("subtask %d priority = %q, want medium", i+2, st.Priority)
		}
	}
	if !strings.Contains(subtasks[0].Description, task.Description) {
		t.Error("subtask description should reference the parent task")
	}
}

func TestEvaluate(t *testing.T) {
	ok := Evaluate(&Result{TaskID: "task_1", Status: models.TaskStatusCompleted, Output: "done"})
	if ok.Recommendation != "APPROVE" {
		t.Errorf("successful result recommendation = %q, want APPROVE", ok.Recommendation)
	}

	bad := Evaluate(&Result{TaskID: "task_2", Status: models.TaskStatusFailed, Error: "boom"})
	if bad.Recommendation != "REJECT" || bad.QualityScore != 0 {
		t.Errorf("failed result should be rejected with zero score, got %+v", bad)
	}
}

func TestSnapshot(t *testing.T) {
	a := NewEvaluator("Quality Evaluator", nil)
	a.Execute(context.Background(), models.NewTask("check output", models.PriorityLow, nil))

	info := a.Snapshot()
	if info.ID != a.ID() || info.Type != models.AgentTypeEvaluator {
		t.Error("snapshot identity mismatch")
	}
	if info.TaskCount != 1 {
		t.Errorf("snapshot task count = %d, want 1", info.TaskCount)
	}

	// Snapshot capabilities must be an independent copy.
	info.Capabilities[0] = "mutated"
	if a.Capabilities()[0] == "mutated" {
		t.Error("snapshot must not alias the agent's capability slice")
	}
}
