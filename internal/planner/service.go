// Package planner implements the application-facing planning operations on
// top of the repository: plan creation, task insertion, status transitions
// with cascading completion, progress math, and next-action selection.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/repo"
	"github.com/felixgeelhaar/taskplan/internal/tree"
)

// Service exposes the planning operations consumed by the MCP and HTTP
// transports.
type Service struct {
	repo   *repo.Repository
	logger *log.Logger
	now    func() time.Time
}

// NewService creates a planner service.
func NewService(r *repo.Repository, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Service{
		repo:   r,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreatePlan validates input, generates identity and timestamps, and
// persists a new empty plan.
func (s *Service) CreatePlan(ctx context.Context, name, description, buildContext, creator string) (*plan.Plan, error) {
	if err := requireFields(errors.ErrCodePlanInvalid, map[string]string{
		"name":          name,
		"description":   description,
		"build_context": buildContext,
		"creator":       creator,
	}); err != nil {
		return nil, err
	}

	now := s.now()
	p := &plan.Plan{
		ID:           plan.NewID(),
		Name:         name,
		Description:  description,
		BuildContext: buildContext,
		Creator:      creator,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreatePlan(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("plan created", "plan_id", p.ID, "name", p.Name)
	return p, nil
}

// AddTaskInput carries the caller-supplied fields for a new task.
// Tags and Groups are comma-separated lists.
type AddTaskInput struct {
	PlanID             string
	Title              string
	Description        string
	AcceptanceCriteria string
	Tags               string
	Groups             string
	ParentID           string
	EstimateHours      float64
}

// AddTask validates input and inserts a task as a root (no parent) or as a
// child of an existing task in the same plan.
func (s *Service) AddTask(ctx context.Context, in AddTaskInput) (*plan.Task, error) {
	if err := requireFields(errors.ErrCodeTaskInvalid, map[string]string{
		"plan_id": in.PlanID,
		"title":   in.Title,
	}); err != nil {
		return nil, err
	}
	if in.EstimateHours < 0 {
		return nil, errors.New(errors.ErrCodeTaskInvalid, "estimate_hours must not be negative")
	}

	now := s.now()
	t := &plan.Task{
		ID:                 plan.NewID(),
		PlanID:             in.PlanID,
		ParentID:           in.ParentID,
		Title:              in.Title,
		Description:        in.Description,
		AcceptanceCriteria: in.AcceptanceCriteria,
		Status:             plan.StatusTodo,
		Tags:               splitList(in.Tags),
		Groups:             splitList(in.Groups),
		EstimateHours:      in.EstimateHours,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.AddTask(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("task added", "task_id", t.ID, "plan_id", t.PlanID, "parent_id", t.ParentID)
	return t, nil
}

// GetTaskWithSubtree returns a task with its children materialized at every
// level, ordered by creation time.
func (s *Service) GetTaskWithSubtree(ctx context.Context, taskID string) (*plan.Task, error) {
	if taskID == "" {
		return nil, errors.New(errors.ErrCodeTaskInvalid, "task_id is required")
	}
	return s.repo.FindTask(ctx, taskID)
}

// GetPlan returns a plan with its full forest.
func (s *Service) GetPlan(ctx context.Context, planID string) (*plan.Plan, error) {
	if planID == "" {
		return nil, errors.New(errors.ErrCodePlanInvalid, "plan_id is required")
	}
	return s.repo.GetPlan(ctx, planID)
}

// UpsertPlan replaces (or creates) a whole plan with its forest.
func (s *Service) UpsertPlan(ctx context.Context, p *plan.Plan) error {
	if err := p.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodePlanInvalid, "invalid plan", err)
	}
	for _, t := range tree.Flatten(p.Tasks) {
		if err := t.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeTaskInvalid, "invalid task "+t.ID, err)
		}
	}
	return s.repo.UpsertPlan(ctx, p)
}

// PlanSummary is the per-plan listing row with derived progress fields.
type PlanSummary struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      plan.Status `json:"status"`

	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`

	PercentComplete   float64 `json:"percent_complete"`
	PercentByEstimate float64 `json:"percent_by_estimate"`

	// EstimateHours is the stored plan estimate when present, otherwise the
	// recursive sum over the forest.
	EstimateHours float64 `json:"estimate_hours"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListPlans returns a summary row per plan. With hideCompleted set, plans
// whose derived status is Completed are excluded from the result; they stay
// in storage untouched.
func (s *Service) ListPlans(ctx context.Context, hideCompleted bool) ([]*PlanSummary, error) {
	plans, err := s.repo.ListPlans(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]*PlanSummary, 0, len(plans))
	for _, p := range plans {
		summary := summarize(p)
		if hideCompleted && summary.Status == plan.StatusCompleted {
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func summarize(p *plan.Plan) *PlanSummary {
	progress := computeProgress(p)

	estimate := p.EstimateHours
	if estimate == 0 {
		estimate = progress.EstimateHoursTotal
	}

	return &PlanSummary{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Status:            derivePlanStatus(p.Tasks),
		Total:             progress.Total,
		Completed:         progress.Completed,
		InProgress:        progress.InProgress,
		Pending:           progress.Pending,
		PercentComplete:   progress.PercentComplete,
		PercentByEstimate: progress.PercentByEstimate,
		EstimateHours:     estimate,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// derivePlanStatus computes the plan-level status from its tasks: Completed
// when every task is done, InProgress as soon as any work started, Todo
// otherwise (including the empty plan).
func derivePlanStatus(forest []*plan.Task) plan.Status {
	total := len(tree.Flatten(forest))
	completed := tree.CountByStatus(forest, plan.StatusCompleted)

	switch {
	case total > 0 && completed == total:
		return plan.StatusCompleted
	case completed > 0 || tree.CountByStatus(forest, plan.StatusInProgress) > 0:
		return plan.StatusInProgress
	default:
		return plan.StatusTodo
	}
}

// GetProgress computes the progress summary for one plan.
func (s *Service) GetProgress(ctx context.Context, planID string) (*plan.ProgressSummary, error) {
	p, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return computeProgress(p), nil
}

func computeProgress(p *plan.Plan) *plan.ProgressSummary {
	flat := tree.Flatten(p.Tasks)
	total := len(flat)
	completed := tree.CountByStatus(p.Tasks, plan.StatusCompleted)
	inProgress := tree.CountByStatus(p.Tasks, plan.StatusInProgress)

	summary := &plan.ProgressSummary{
		PlanID:                 p.ID,
		Total:                  total,
		Completed:              completed,
		InProgress:             inProgress,
		Pending:                total - completed - inProgress,
		EstimateHoursTotal:     tree.SumEstimateHours(p.Tasks),
		EstimateHoursCompleted: tree.SumEstimateHoursByStatus(p.Tasks, plan.StatusCompleted),
		EstimateHoursStored:    p.EstimateHours,
	}

	if total > 0 {
		summary.PercentComplete = plan.Round2(float64(completed) / float64(total) * 100)
	}
	if summary.EstimateHoursTotal > 0 {
		summary.PercentByEstimate = plan.Round2(summary.EstimateHoursCompleted / summary.EstimateHoursTotal * 100)
	}

	return summary
}

// actionablePriority orders outstanding statuses: work in flight first,
// then fresh work, then blocked work.
func actionablePriority(status plan.Status) int {
	switch status {
	case plan.StatusInProgress:
		return 0
	case plan.StatusTodo:
		return 1
	case plan.StatusBlocked:
		return 2
	default:
		return 3
	}
}

// CurrentActionableTask picks the task to work on next: among all
// non-terminal tasks in the plan, the highest-priority status wins and ties
// go to the earliest-created task. Returns nil when everything is done.
func (s *Service) CurrentActionableTask(ctx context.Context, planID string) (*plan.Task, error) {
	p, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	var best *plan.Task
	for _, task := range tree.Flatten(p.Tasks) {
		if task.Status.Terminal() {
			continue
		}
		if best == nil || better(task, best) {
			best = task
		}
	}
	return best, nil
}

func better(candidate, incumbent *plan.Task) bool {
	cp, ip := actionablePriority(candidate.Status), actionablePriority(incumbent.Status)
	if cp != ip {
		return cp < ip
	}
	return candidate.CreatedAt.Before(incumbent.CreatedAt)
}

// CompleteNextLeafResult reports the leaf that was completed and the next
// outstanding leaf after the mutation; either may be nil.
type CompleteNextLeafResult struct {
	CompletedTask *plan.Task `json:"completed_task,omitempty"`
	NextTask      *plan.Task `json:"next_task,omitempty"`
}

// CompleteNextLeaf completes the earliest-created outstanding leaf of the
// plan (triggering cascading completion) and returns it together with the
// next outstanding leaf, re-derived after the mutation.
func (s *Service) CompleteNextLeaf(ctx context.Context, planID string) (*CompleteNextLeafResult, error) {
	p, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	next := earliestOutstandingLeaf(p.Tasks)
	if next == nil {
		return &CompleteNextLeafResult{}, nil
	}

	completed, err := s.repo.UpdateTaskStatus(ctx, next.ID, plan.StatusCompleted)
	if err != nil {
		return nil, err
	}

	after, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	return &CompleteNextLeafResult{
		CompletedTask: completed,
		NextTask:      earliestOutstandingLeaf(after.Tasks),
	}, nil
}

func earliestOutstandingLeaf(forest []*plan.Task) *plan.Task {
	var best *plan.Task
	for _, leaf := range tree.Leaves(forest) {
		if leaf.Status.Terminal() {
			continue
		}
		if best == nil || leaf.CreatedAt.Before(best.CreatedAt) {
			best = leaf
		}
	}
	return best
}

// UpdateTaskStatus transitions a task to a new status. A transition into
// Completed cascades up the parent chain. A task that exists at validation
// time but vanishes before the write is a consistency fault, not a routine
// not-found.
func (s *Service) UpdateTaskStatus(ctx context.Context, taskID string, status plan.Status) (*plan.Task, error) {
	if taskID == "" {
		return nil, errors.New(errors.ErrCodeTaskInvalid, "task_id is required")
	}
	if !status.Valid() {
		return nil, errors.New(errors.ErrCodeTaskInvalid, fmt.Sprintf("unknown status %q", status))
	}

	if _, err := s.repo.FindTask(ctx, taskID); err != nil {
		return nil, err
	}

	task, err := s.repo.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeTaskNotFound {
			fault := errors.NewConsistencyError(
				fmt.Sprintf("task %s existed at validation but vanished before the write", taskID))
			s.logger.LogError(fault)
			return nil, fault
		}
		return nil, err
	}

	s.logger.Info("task status updated", "task_id", taskID, "status", string(status))
	return task, nil
}

func requireFields(code errors.ErrorCode, fields map[string]string) error {
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return errors.New(code, name+" is required")
		}
	}
	return nil
}

// splitList turns comma-separated input into a trimmed, de-duplicated set
// preserving first-seen order.
func splitList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var values []string
	for _, part := range strings.Split(input, ",") {
		value := strings.TrimSpace(part)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		values = append(values, value)
	}
	return values
}
