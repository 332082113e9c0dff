package workflow

import (
	"strings"
	"testing"
)

// buildChain creates the three-step workflow used across tests:
// step 1 has no dependencies, step 2 depends on 1, step 3 depends on 1 and 2.
func buildChain(t *testing.T) *Workflow {
	t.Helper()
	w := New("chain")
	if !w.AddStep(1, "a1", "gather input", nil) {
		t.Fatal("add step 1 failed")
	}
	if !w.AddStep(2, "a2", "process input", []int{1}) {
		t.Fatal("add step 2 failed")
	}
	if !w.AddStep(3, "a3", "summarize", []int{1, 2}) {
		t.Fatal("add step 3 failed")
	}
	return w
}

func TestAddStepDuplicateRejected(t *testing.T) {
	w := New("dup")
	if !w.AddStep(1, "a1", "first", nil) {
		t.Fatal("first add should succeed")
	}
	if w.AddStep(1, "a2", "again", nil) {
		t.Error("duplicate step number should be rejected")
	}
}

func TestNextExecutableRespectsDependencies(t *testing.T) {
	w := buildChain(t)

	next := w.NextExecutable()
	if next == nil || next.Step != 1 {
		t.Fatalf("next = %+v, want step 1", next)
	}
	w.Start(1)
	if w.NextExecutable() != nil {
		t.Error("steps 2 and 3 should wait on step 1")
	}
	w.Complete(1, "done")

	next = w.NextExecutable()
	if next == nil || next.Step != 2 {
		t.Fatalf("next after step 1 = %+v, want step 2", next)
	}
	w.Start(2)
	w.Complete(2, "done")

	next = w.NextExecutable()
	if next == nil || next.Step != 3 {
		t.Fatalf("next after step 2 = %+v, want step 3", next)
	}
}

func TestNextExecutableIgnoresUnknownDeps(t *testing.T) {
	w := New("dangling")
	w.AddStep(1, "a1", "only step", []int{99})
	if next := w.NextExecutable(); next == nil || next.Step != 1 {
		t.Error("dependency on an unregistered step should be ignored")
	}
}

func TestStartTransitionsWorkflow(t *testing.T) {
	w := buildChain(t)
	if w.Status() != StatusCreated {
		t.Fatalf("new workflow status = %q, want created", w.Status())
	}
	if !w.Start(1) {
		t.Fatal("start should succeed")
	}
	if w.Status() != StatusInProgress {
		t.Errorf("status after start = %q, want in_progress", w.Status())
	}
	if w.Start(1) {
		t.Error("starting a non-pending step should fail")
	}
}

func TestCompleteAllSteps(t *testing.T) {
	w := buildChain(t)
	for step := 1; step <= 3; step++ {
		w.Start(step)
		if !w.Complete(step, step*10) {
			t.Fatalf("complete step %d failed", step)
		}
	}
	if !w.IsFinished() || w.Status() != StatusCompleted {
		t.Errorf("status = %q, want completed", w.Status())
	}
	p := w.Progress()
	if p.Completed != 3 || p.PercentDone != 100 {
		t.Errorf("progress = %+v, want 3 completed at 100%%", p)
	}
	s, _ := w.Step(2)
	if s.Result != 20 {
		t.Errorf("step 2 result = %v, want 20", s.Result)
	}
}

func TestFailBlocksDependents(t *testing.T) {
	w := buildChain(t)
	w.Start(1)
	if !w.Fail(1, "agent crashed") {
		t.Fatal("fail should succeed on an in-progress step")
	}

	for _, step := range []int{2, 3} {
		s, _ := w.Step(step)
		if s.Status != StepBlocked {
			t.Errorf("step %d status = %q, want blocked", step, s.Status)
		}
	}
	if w.NextExecutable() != nil {
		t.Error("blocked steps must never be scheduled")
	}
	// Blocked steps keep the workflow open rather than settling it failed.
	if w.IsFinished() {
		t.Error("workflow with blocked steps should not be finished")
	}
	s, _ := w.Step(1)
	if !strings.Contains(s.Error, "crashed") {
		t.Errorf("step 1 error = %q, want the failure reason", s.Error)
	}
}

func TestFailLeafSettlesFailed(t *testing.T) {
	w := buildChain(t)
	w.Start(1)
	w.Complete(1, nil)
	w.Start(2)
	w.Complete(2, nil)
	w.Start(3)
	w.Fail(3, "bad output")

	if w.Status() != StatusFailed {
		t.Errorf("status = %q, want failed", w.Status())
	}
	if !w.IsFinished() {
		t.Error("workflow should be finished")
	}
}

func TestCompleteRequiresInProgress(t *testing.T) {
	w := buildChain(t)
	if w.Complete(1, nil) {
		t.Error("completing a pending step should fail")
	}
	if w.Fail(1, "x") {
		t.Error("failing a pending step should fail")
	}
	if w.Complete(99, nil) {
		t.Error("completing an unknown step should fail")
	}
}

func TestProgressCounts(t *testing.T) {
	w := buildChain(t)
	w.Start(1)
	w.Fail(1, "boom")

	p := w.Progress()
	if p.TotalSteps != 3 || p.Failed != 1 || p.Blocked != 2 {
		t.Errorf("progress = %+v, want 1 failed and 2 blocked of 3", p)
	}
	if p.PercentDone != 0 {
		t.Errorf("percent = %v, want 0", p.PercentDone)
	}
}

func TestCoordinatorCreateGetAll(t *testing.T) {
	c := NewCoordinator(nil)
	w1 := c.Create("alpha")
	w2 := c.Create("beta")

	got, ok := c.Get(w1.ID())
	if !ok || got.Name() != "alpha" {
		t.Errorf("get returned %v, want workflow alpha", got)
	}
	if _, ok := c.Get("wf_unknown"); ok {
		t.Error("unknown ID should not be found")
	}
	if c.Count() != 2 || len(c.All()) != 2 {
		t.Errorf("count = %d, want 2", c.Count())
	}
	if w1.ID() == w2.ID() {
		t.Error("workflow IDs should be unique")
	}
}
