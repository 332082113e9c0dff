package registry

import (
	"testing"

	"github.com/sgarila/dirigent/internal/agent"
	"github.com/sgarila/dirigent/pkg/models"
)

func TestSubstringScorer(t *testing.T) {
	scorer := SubstringScorer{}

	tests := []struct {
		name         string
		capabilities []string
		description  string
		want         float64
	}{
		{"no capabilities", nil, "anything", 0},
		{"no match", []string{"data_analysis"}, "write a poem", 0},
		{"full match", []string{"data_analysis"}, "run data_analysis on KPIs", 1},
		{"half match", []string{"data_analysis", "reporting"}, "need data_analysis now", 0.5},
		{"case insensitive", []string{"Data_Analysis"}, "RUN DATA_ANALYSIS", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scorer.Score(tt.capabilities, tt.description); got != tt.want {
				t.Errorf("Score(%v, %q) = %v, want %v", tt.capabilities, tt.description, got, tt.want)
			}
		})
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := New()
	w := agent.NewWorker("generic", "Worker 1", nil)

	id := r.Register(w)
	if id != w.ID() {
		t.Errorf("Register returned %q, want %q", id, w.ID())
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}

	got, ok := r.Get(id)
	if !ok || got != w {
		t.Error("Get should return the registered agent")
	}

	// Double registration is a no-op.
	r.Register(w)
	if r.Count() != 1 {
		t.Errorf("Count after double register = %d, want 1", r.Count())
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	w := agent.NewWorker("generic", "Worker 1", nil)
	r.Register(w)

	if !r.Unregister(w.ID()) {
		t.Error("Unregister of known agent should return true")
	}
	if r.Count() != 0 {
		t.Errorf("Count after unregister = %d, want 0", r.Count())
	}
	if len(r.GetByType(models.WorkerType("generic"))) != 0 {
		t.Error("type index must be cleaned up on unregister")
	}

	if r.Unregister("agent_unknown") {
		t.Error("Unregister of unknown agent should return false, not error")
	}
}

func TestRegistry_GetByType(t *testing.T) {
	r := New()
	w1 := agent.NewWorker("generic", "Worker 1", nil)
	w2 := agent.NewWorker("generic", "Worker 2", nil)
	sup := agent.NewSupervisor("Supervisor", nil)
	r.Register(w1)
	r.Register(sup)
	r.Register(w2)

	workers := r.GetByType(models.WorkerType("generic"))
	if len(workers) != 2 {
		t.Fatalf("got %d generic workers, want 2", len(workers))
	}
	if workers[0] != w1 || workers[1] != w2 {
		t.Error("GetByType must preserve registration order")
	}

	if len(r.GetByType(models.AgentTypeEvaluator)) != 0 {
		t.Error("unknown type should return empty slice")
	}
}

func TestRegistry_FindBest(t *testing.T) {
	r := New()
	sup := agent.NewSupervisor("Supervisor", nil)
	worker := agent.NewWorker("generic", "Worker", nil)
	r.Register(sup)
	r.Register(worker)

	// Worker capabilities: task_execution, tool_usage, data_analysis,
	// result_formatting. One of four matches.
	best, score := r.FindBest("please run data_analysis on the KPI export")
	if best != worker {
		t.Fatalf("best agent = %v, want the worker", best)
	}
	if score != 0.25 {
		t.Errorf("score = %v, want 0.25", score)
	}
}

func TestRegistry_FindBestNoMatch(t *testing.T) {
	r := New()
	r.Register(agent.NewWorker("generic", "Worker", nil))

	best, score := r.FindBest("completely unrelated request")
	if best != nil || score != 0 {
		t.Errorf("FindBest with no match = (%v, %v), want (nil, 0)", best, score)
	}
}

func TestRegistry_FindBestDeterministicTies(t *testing.T) {
	r := New()
	// Two agents with identical capabilities always tie; the first
	// registered must win, on every call.
	a1 := agent.New(models.WorkerType("generic"), "First", []string{"data_analysis"}, nil)
	a2 := agent.New(models.WorkerType("generic"), "Second", []string{"data_analysis"}, nil)
	r.Register(a1)
	r.Register(a2)

	for i := 0; i < 20; i++ {
		best, score := r.FindBest("data_analysis job")
		if best != a1 {
			t.Fatalf("iteration %d: tie broke to %q, want first-registered %q", i, best.Name(), a1.Name())
		}
		if score != 1.0 {
			t.Fatalf("iteration %d: score = %v, want 1.0", i, score)
		}
	}
}

func TestRegistry_Status(t *testing.T) {
	r := New()
	r.Register(agent.NewSupervisor("Supervisor", nil))
	r.Register(agent.NewWorker("generic", "Worker 1", nil))
	r.Register(agent.NewWorker("telecom", "Worker 2", nil))

	status := r.Status()
	if status.TotalAgents != 3 {
		t.Errorf("TotalAgents = %d, want 3", status.TotalAgents)
	}
	if status.ByType[models.AgentTypeSupervisor] != 1 {
		t.Errorf("supervisor count = %d, want 1", status.ByType[models.AgentTypeSupervisor])
	}
	if len(status.Agents) != 3 {
		t.Errorf("agent snapshots = %d, want 3", len(status.Agents))
	}
	if status.Agents[0].Type != models.AgentTypeSupervisor {
		t.Error("snapshots must preserve registration order")
	}
}
