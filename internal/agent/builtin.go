package agent

import (
	"fmt"

	"github.com/sgarila/dirigent/pkg/models"
)

// NewSupervisor creates a supervisor agent. Supervisors decompose tasks and
// delegate to workers.
func NewSupervisor(name string, executor Executor) *Agent {
	return New(models.AgentTypeSupervisor, name,
		[]string{"task_decomposition", "delegation", "monitoring", "quality_control"},
		executor)
}

// NewWorker creates a worker agent of the given variant
// (e.g. "generic", "telecom").
func NewWorker(variant, name string, executor Executor) *Agent {
	return New(models.WorkerType(variant), name,
		[]string{"task_execution", "tool_usage", "data_analysis", "result_formatting"},
		executor)
}

// NewEvaluator creates an evaluator agent for quality-checking results.
func NewEvaluator(name string, executor Executor) *Agent {
	return New(models.AgentTypeEvaluator, name,
		[]string{"quality_scoring", "validation", "feedback_generation"},
		executor)
}

// Subtask describes one piece of a decomposed task.
type Subtask struct {
	// ID identifies the subtask within its parent.
	ID string `json:"subtask_id"`
	// Description is the subtask description.
	Description string `json:"description"`
	// Priority is the suggested queue priority.
	Priority models.TaskPriority `json:"priority"`
}

// Decompose splits a task into sequential subtasks. The first subtask gets
// high priority, the rest medium. Used by the task-delegation repair
// strategy when a failing task needs to be broken up.
func Decompose(task *models.Task, parts int) []Subtask {
	if parts < 1 {
		parts = 1
	}
	subtasks := make([]Subtask, 0, parts)
	for i := 1; i <= parts; i++ {
		priority := models.PriorityMedium
		if i == 1 {
			priority = models.PriorityHigh
		}
		subtasks = append(subtasks, Subtask{
			ID:          fmt.Sprintf("%s_sub%d", task.ID, i),
			Description: fmt.Sprintf("Step %d: %s", i, task.Description),
			Priority:    priority,
		})
	}
	return subtasks
}

// Evaluation is an evaluator's verdict on a result.
type Evaluation struct {
	// ResultID is the task ID of the evaluated result.
	ResultID string `json:"result_id"`
	// QualityScore is a 0-100 quality estimate.
	QualityScore int `json:"quality_score"`
	// Feedback is a human-readable assessment.
	Feedback string `json:"feedback"`
	// Recommendation is APPROVE or REJECT.
	Recommendation string `json:"recommendation"`
}

// Evaluate scores an execution result. Failed results are rejected outright;
// successful ones pass with a flat score until a model-backed evaluator is
// wired in.
func Evaluate(result *Result) Evaluation {
	if !result.Success() {
		return Evaluation{
			ResultID:       result.TaskID,
			QualityScore:   0,
			Feedback:       fmt.Sprintf("execution failed: %s", result.Error),
			Recommendation: "REJECT",
		}
	}
	return Evaluation{
		ResultID:       result.TaskID,
		QualityScore:   85,
		Feedback:       "Good work",
		Recommendation: "APPROVE",
	}
}
