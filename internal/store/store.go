// Package store provides durable persistence for the plan/task forest.
//
// Two backends implement the same contract: a single-document JSON file
// store and a PostgreSQL store. Every mutating operation is a critical
// section over the affected data — a process-wide mutex for the file
// backend, row locks for Postgres — so concurrent callers serialize instead
// of losing updates.
package store

import (
	"context"

	"github.com/felixgeelhaar/taskplan/internal/plan"
)

// Store is the persistence contract shared by all backends.
//
// All returned plans and tasks are independent copies owned by the caller;
// mutating them never affects persisted state. Tasks come back with their
// subtree materialized and children ordered by creation time.
type Store interface {
	// ListPlans returns every plan with its full forest.
	ListPlans(ctx context.Context) ([]*plan.Plan, error)

	// GetPlan returns one plan with its full forest.
	// Fails with ErrCodePlanNotFound when the id is unknown.
	GetPlan(ctx context.Context, planID string) (*plan.Plan, error)

	// CreatePlan inserts a new plan.
	// Fails with ErrCodePlanDuplicate when the id already exists.
	CreatePlan(ctx context.Context, p *plan.Plan) error

	// UpsertPlan inserts the plan or replaces it wholesale, forest included.
	UpsertPlan(ctx context.Context, p *plan.Plan) error

	// AddTask inserts a task into its plan's forest. Fails with
	// ErrCodePlanNotFound when the owning plan is unknown and with
	// ErrCodeParentNotFound when ParentID is set but does not resolve
	// within that plan. Nothing is persisted on failure.
	AddTask(ctx context.Context, t *plan.Task) error

	// FindTask locates a task anywhere in the store and returns it with its
	// subtree. Fails with ErrCodeTaskNotFound when the id is unknown.
	FindTask(ctx context.Context, taskID string) (*plan.Task, error)

	// UpdateTaskStatus transitions a task's status, maintaining the
	// completed-at invariant. A transition into Completed runs cascading
	// completion up the parent chain inside the same critical section, so
	// the cascade commits atomically with the triggering write. Returns the
	// updated task.
	UpdateTaskStatus(ctx context.Context, taskID string, status plan.Status) (*plan.Task, error)
}
