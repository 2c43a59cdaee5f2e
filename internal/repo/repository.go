// Package repo layers collaborator notification and error translation over
// the store. The planner service talks to a Repository, never to a Store
// directly, so every successful mutation funnels through one place that
// knows to announce the change.
package repo

import (
	"context"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/notify"
	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/store"
)

// Repository wraps a Store with post-mutation notification.
type Repository struct {
	store    store.Store
	notifier notify.Notifier
	logger   *log.Logger
}

// New creates a Repository. A nil notifier disables notifications.
func New(s store.Store, notifier notify.Notifier, logger *log.Logger) *Repository {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Repository{
		store:    s,
		notifier: notifier,
		logger:   logger,
	}
}

// ListPlans returns all plans with their forests.
func (r *Repository) ListPlans(ctx context.Context) ([]*plan.Plan, error) {
	return r.store.ListPlans(ctx)
}

// GetPlan returns one plan with its forest.
func (r *Repository) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	return r.store.GetPlan(ctx, planID)
}

// FindTask locates a task with its subtree anywhere in the store.
func (r *Repository) FindTask(ctx context.Context, taskID string) (*plan.Task, error) {
	return r.store.FindTask(ctx, taskID)
}

// CreatePlan persists a new plan and notifies collaborators.
func (r *Repository) CreatePlan(ctx context.Context, p *plan.Plan) error {
	if err := r.store.CreatePlan(ctx, p); err != nil {
		return err
	}
	r.notifyPlanChanged(ctx, p.ID)
	return nil
}

// UpsertPlan persists a whole plan+forest replacement and notifies collaborators.
func (r *Repository) UpsertPlan(ctx context.Context, p *plan.Plan) error {
	if err := r.store.UpsertPlan(ctx, p); err != nil {
		return err
	}
	r.notifyPlanChanged(ctx, p.ID)
	return nil
}

// AddTask persists a new task and notifies collaborators.
func (r *Repository) AddTask(ctx context.Context, t *plan.Task) error {
	if err := r.store.AddTask(ctx, t); err != nil {
		return err
	}
	r.notifyPlanChanged(ctx, t.PlanID)
	return nil
}

// UpdateTaskStatus transitions a task's status (cascading inside the store)
// and notifies collaborators.
func (r *Repository) UpdateTaskStatus(ctx context.Context, taskID string, status plan.Status) (*plan.Task, error) {
	task, err := r.store.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return nil, err
	}
	r.notifyPlanChanged(ctx, task.PlanID)
	return task, nil
}

// notifyPlanChanged fetches the owning plan and hands it to the notifier.
// Failures here never affect the mutation's outcome: notification errors
// are logged and absorbed, and a plan that cannot be read back immediately
// after a successful write is logged as a consistency fault.
func (r *Repository) notifyPlanChanged(ctx context.Context, planID string) {
	p, err := r.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.IsNotFound(err) {
			r.logger.LogError(errors.NewConsistencyError(
				"plan " + planID + " missing immediately after a successful write"))
			return
		}
		r.logger.WithError(err).Error("failed to load plan for notification", "plan_id", planID)
		return
	}

	if err := r.notifier.NotifyPlanChanged(ctx, p); err != nil {
		r.logger.WithError(err).Warn("collaborator notification failed", "plan_id", planID)
	}
}
