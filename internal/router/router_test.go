package router

import (
	"context"
	"testing"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/internal/registry"
	"github.com/sgarila/dirigent/pkg/models"
)

func newTestRouter(t *testing.T) (*Router, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	return New(reg, nil), reg
}

func TestRoute_Hit(t *testing.T) {
	r, reg := newTestRouter(t)
	worker := agent.NewWorker("generic", "Worker", nil)
	reg.Register(worker)

	matched, confidence := r.Route("run data_analysis over results")
	if matched != worker {
		t.Fatal("expected worker to be routed")
	}
	if confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", confidence)
	}

	history := r.History(0)
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].AgentName != "Worker" || history[0].Confidence != confidence {
		t.Errorf("audit record = %+v", history[0])
	}
}

func TestRoute_MissIsNotAnError(t *testing.T) {
	r, reg := newTestRouter(t)
	reg.Register(agent.NewWorker("generic", "Worker", nil))

	matched, confidence := r.Route("recite a limerick")
	if matched != nil || confidence != 0 {
		t.Errorf("miss = (%v, %v), want (nil, 0)", matched, confidence)
	}

	// Misses are still audited, with an empty agent.
	history := r.History(0)
	if len(history) != 1 || history[0].AgentName != "" {
		t.Errorf("miss audit record = %+v", history)
	}
}

func TestRouteByType(t *testing.T) {
	r, reg := newTestRouter(t)
	w1 := agent.NewWorker("telecom", "First", nil)
	w2 := agent.NewWorker("telecom", "Second", nil)
	reg.Register(w1)
	reg.Register(w2)

	if got := r.RouteByType(models.WorkerType("telecom")); got != w1 {
		t.Error("RouteByType should return the first agent of the type")
	}
	if got := r.RouteByType(models.AgentTypeEvaluator); got != nil {
		t.Error("RouteByType for unknown type should return nil")
	}
}

func TestRouteToLeastBusy(t *testing.T) {
	r, reg := newTestRouter(t)
	busy := agent.NewWorker("generic", "Busy", nil)
	idle := agent.NewWorker("generic", "Idle", nil)
	reg.Register(busy)
	reg.Register(idle)

	// Give the first worker some mileage.
	for i := 0; i < 3; i++ {
		busy.Execute(context.Background(), models.NewTask("warmup", models.PriorityLow, nil))
	}

	if got := r.RouteToLeastBusy(models.WorkerType("generic")); got != idle {
		t.Errorf("least busy = %q, want Idle", got.Name())
	}

	// Empty type considers all agents.
	if got := r.RouteToLeastBusy(""); got != idle {
		t.Errorf("least busy across all = %q, want Idle", got.Name())
	}
}

func TestRouteToLeastBusy_TiesKeepRegistrationOrder(t *testing.T) {
	r, reg := newTestRouter(t)
	first := agent.NewWorker("generic", "First", nil)
	second := agent.NewWorker("generic", "Second", nil)
	reg.Register(first)
	reg.Register(second)

	if got := r.RouteToLeastBusy(""); got != first {
		t.Errorf("tie broke to %q, want First", got.Name())
	}
}

func TestRouteToLeastBusy_NoCandidates(t *testing.T) {
	r, _ := newTestRouter(t)
	if got := r.RouteToLeastBusy(""); got != nil {
		t.Error("no candidates should yield nil")
	}
}

func TestStats(t *testing.T) {
	r, reg := newTestRouter(t)
	reg.Register(agent.NewWorker("generic", "Worker", nil))

	r.Route("data_analysis please")
	r.Route("unrelated request")
	r.Route("more data_analysis")

	stats := r.Stats()
	if stats.TotalRoutes != 3 {
		t.Errorf("TotalRoutes = %d, want 3", stats.TotalRoutes)
	}
	if stats.SuccessfulRoutes != 2 {
		t.Errorf("SuccessfulRoutes = %d, want 2", stats.SuccessfulRoutes)
	}
	if want := 2.0 / 3.0; stats.SuccessRate != want {
		t.Errorf("SuccessRate = %v, want %v", stats.SuccessRate, want)
	}
}
