// Package tree implements the pure operations over a plan's task forest:
// traversal, flattening, hierarchy reconstruction, aggregate math, and
// cascading completion. Functions here never touch storage.
package tree

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/plan"
)

// FindByID performs a depth-first search across all roots and descendants,
// returning the first task with the given id, or nil.
func FindByID(forest []*plan.Task, id string) *plan.Task {
	for _, root := range forest {
		if root.ID == id {
			return root
		}
		if found := FindByID(root.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Flatten returns the forest as a flat slice in pre-order: each task before
// its children, roots in their given order.
func Flatten(forest []*plan.Task) []*plan.Task {
	var flat []*plan.Task
	for _, root := range forest {
		flat = append(flat, root)
		flat = append(flat, Flatten(root.Children)...)
	}
	return flat
}

// BuildHierarchy reconstructs parent/child links from a flat slice of tasks
// carrying ParentID references. Tasks whose parent id does not resolve are
// promoted to roots rather than rejected: hierarchy building runs against
// possibly-already-corrupted persisted data, where dropping or failing on an
// orphan would lose work. Insert-time validation is the strict counterpart.
//
// Children at every level are ordered by CreatedAt ascending. The input
// tasks are linked in place; any pre-existing Children slices are discarded.
func BuildHierarchy(flat []*plan.Task, logger *log.Logger) []*plan.Task {
	if logger == nil {
		logger = log.DefaultLogger()
	}

	index := make(map[string]*plan.Task, len(flat))
	for _, task := range flat {
		task.Children = nil
		index[task.ID] = task
	}

	var roots []*plan.Task
	for _, task := range flat {
		if task.ParentID == "" {
			roots = append(roots, task)
			continue
		}

		parent, ok := index[task.ParentID]
		if !ok {
			logger.Warn("task references missing parent, promoting to root",
				"task_id", task.ID,
				"parent_id", task.ParentID,
				"plan_id", task.PlanID)
			roots = append(roots, task)
			continue
		}
		parent.Children = append(parent.Children, task)
	}

	SortByCreatedAt(roots)
	return roots
}

// SortByCreatedAt orders the forest by CreatedAt ascending, recursively at
// every level.
func SortByCreatedAt(forest []*plan.Task) {
	sort.SliceStable(forest, func(i, j int) bool {
		return forest[i].CreatedAt.Before(forest[j].CreatedAt)
	})
	for _, root := range forest {
		SortByCreatedAt(root.Children)
	}
}

// CountByStatus counts tasks with the given status across the whole forest.
func CountByStatus(forest []*plan.Task, status plan.Status) int {
	count := 0
	for _, root := range forest {
		if root.Status == status {
			count++
		}
		count += CountByStatus(root.Children, status)
	}
	return count
}

// SumEstimateHours sums estimate hours across the whole forest.
func SumEstimateHours(forest []*plan.Task) float64 {
	sum := 0.0
	for _, root := range forest {
		sum += root.EstimateHours
		sum += SumEstimateHours(root.Children)
	}
	return sum
}

// SumEstimateHoursByStatus sums estimate hours over tasks with the given
// status across the whole forest.
func SumEstimateHoursByStatus(forest []*plan.Task, status plan.Status) float64 {
	sum := 0.0
	for _, root := range forest {
		if root.Status == status {
			sum += root.EstimateHours
		}
		sum += SumEstimateHoursByStatus(root.Children, status)
	}
	return sum
}

// Leaves returns the tasks that have no children in the current forest,
// in pre-order.
func Leaves(forest []*plan.Task) []*plan.Task {
	var leaves []*plan.Task
	for _, task := range Flatten(forest) {
		if len(task.Children) == 0 {
			leaves = append(leaves, task)
		}
	}
	return leaves
}

// CascadeCompletion walks up the parent chain after the task with changedID
// transitioned into Completed. Whenever every direct child of the immediate
// parent is Completed and the parent itself is not, the parent is completed
// too, and the walk continues to the grandparent. The walk stops at a root,
// at an already-completed parent, or as soon as a sibling is outstanding.
//
// Returns the ids of tasks auto-completed, in bottom-up order. The forest
// must have its hierarchy materialized.
func CascadeCompletion(forest []*plan.Task, changedID string, now time.Time) []string {
	index := make(map[string]*plan.Task)
	for _, task := range Flatten(forest) {
		index[task.ID] = task
	}

	changed, ok := index[changedID]
	if !ok || changed.Status != plan.StatusCompleted {
		return nil
	}

	var completed []string
	current := changed
	for current.ParentID != "" {
		parent, ok := index[current.ParentID]
		if !ok || parent.Status == plan.StatusCompleted {
			break
		}

		if !allChildrenCompleted(parent) {
			break
		}

		parent.SetStatus(plan.StatusCompleted, now)
		completed = append(completed, parent.ID)
		current = parent
	}

	return completed
}

func allChildrenCompleted(parent *plan.Task) bool {
	for _, child := range parent.Children {
		if child.Status != plan.StatusCompleted {
			return false
		}
	}
	return len(parent.Children) > 0
}
