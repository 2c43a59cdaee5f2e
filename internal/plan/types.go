// Package plan defines the plan and task domain model.
//
// A Plan owns a forest of Tasks. Tasks reference their parent by id rather
// than by pointer; the Children slices are materialized views built on load
// or on demand, never the source of truth for tree shape.
package plan

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Plan represents a project container owning a forest of tasks.
type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	BuildContext string    `json:"build_context,omitempty"`
	Creator      string    `json:"creator,omitempty"`

	// EstimateHours is the stored plan-level estimate. It may be zero, in
	// which case consumers fall back to the recursive sum over the tasks.
	EstimateHours float64 `json:"estimate_hours,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Tasks holds the root-level tasks, each heading its own subtree.
	Tasks []*Task `json:"tasks"`
}

// Task represents one unit of work. Tasks form a tree per plan via ParentID.
type Task struct {
	ID                 string   `json:"id"`
	PlanID             string   `json:"plan_id"`
	ParentID           string   `json:"parent_id,omitempty"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	AcceptanceCriteria string   `json:"acceptance_criteria,omitempty"`
	Status             Status   `json:"status"`
	Tags               []string `json:"tags,omitempty"`
	Groups             []string `json:"groups,omitempty"`
	EstimateHours      float64  `json:"estimate_hours"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Children []*Task `json:"children,omitempty"`
}

// NewID generates a new unique identifier.
func NewID() string {
	return uuid.NewString()
}

// Validate checks the plan's scalar fields.
func (p *Plan) Validate() error {
	if p.ID == "" {
		return errors.New("plan id is required")
	}
	if p.Name == "" {
		return errors.New("plan name is required")
	}
	return nil
}

// Validate checks the task's scalar fields.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.PlanID == "" {
		return errors.New("task plan id is required")
	}
	if t.Title == "" {
		return errors.New("task title is required")
	}
	if t.EstimateHours < 0 {
		return errors.New("estimate hours must not be negative")
	}
	return nil
}

// SetStatus transitions the task to a new status at the given time,
// maintaining the completed-at invariant: CompletedAt is present exactly
// when the status is Completed, and a repeated transition into Completed
// does not overwrite the original completion time.
func (t *Task) SetStatus(status Status, now time.Time) {
	previous := t.Status
	t.Status = status
	t.UpdatedAt = now

	switch {
	case status == StatusCompleted && t.CompletedAt == nil:
		completedAt := now
		t.CompletedAt = &completedAt
	case status != StatusCompleted && previous == StatusCompleted:
		t.CompletedAt = nil
	}
}

// Clone returns a deep copy of the task including its subtree.
// Stores hand out clones so callers own their trees outright and never
// share mutable state with a cached document.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	clone := *t
	clone.Tags = append([]string(nil), t.Tags...)
	clone.Groups = append([]string(nil), t.Groups...)

	if t.CompletedAt != nil {
		completedAt := *t.CompletedAt
		clone.CompletedAt = &completedAt
	}

	if t.Children != nil {
		clone.Children = make([]*Task, 0, len(t.Children))
		for _, child := range t.Children {
			clone.Children = append(clone.Children, child.Clone())
		}
	}

	return &clone
}

// Clone returns a deep copy of the plan and its entire forest.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}

	clone := *p
	if p.Tasks != nil {
		clone.Tasks = make([]*Task, 0, len(p.Tasks))
		for _, task := range p.Tasks {
			clone.Tasks = append(clone.Tasks, task.Clone())
		}
	}
	return &clone
}

// Touch updates the plan's modification timestamp. Any child task mutation
// touches the owning plan.
func (p *Plan) Touch(now time.Time) {
	p.UpdatedAt = now
}
