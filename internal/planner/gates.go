package planner

import (
	"context"

	"github.com/felixgeelhaar/taskplan/internal/plan"
)

// CompletionAttestation carries the two confirmations required before a
// task may be marked completed.
type CompletionAttestation struct {
	TestsPass         bool `json:"tests_pass"`
	CleanupTasksAdded bool `json:"cleanup_tasks_added"`
}

// GateRefusal explains why a completion request was turned down. A refusal
// is a normal result for the caller to act on, not an error.
type GateRefusal struct {
	Reasons []string `json:"reasons"`
}

// CheckCompletionGates evaluates the attestation and returns a refusal when
// any gate is unmet, nil when completion may proceed.
func CheckCompletionGates(att CompletionAttestation) *GateRefusal {
	var reasons []string
	if !att.TestsPass {
		reasons = append(reasons, "tests must pass before the task can be completed")
	}
	if !att.CleanupTasksAdded {
		reasons = append(reasons, "follow-up cleanup tasks must be recorded before the task can be completed")
	}
	if len(reasons) == 0 {
		return nil
	}
	return &GateRefusal{Reasons: reasons}
}

// MarkTaskCompleted runs the completion gates and, when they pass,
// transitions the task to Completed with cascading. On an unmet gate the
// task is untouched and the refusal is returned alongside a nil task.
func (s *Service) MarkTaskCompleted(ctx context.Context, taskID string, att CompletionAttestation) (*plan.Task, *GateRefusal, error) {
	if refusal := CheckCompletionGates(att); refusal != nil {
		s.logger.Info("task completion refused by gates", "task_id", taskID, "reasons", len(refusal.Reasons))
		return nil, refusal, nil
	}

	task, err := s.UpdateTaskStatus(ctx, taskID, plan.StatusCompleted)
	if err != nil {
		return nil, nil, err
	}
	return task, nil, nil
}
