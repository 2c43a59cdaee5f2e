package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/planner"
)

// AddTaskTool inserts a task into a plan, as a root or under a parent.
type AddTaskTool struct {
	toolDeps
}

func (t *AddTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("add_task_to_plan",
		mcp.WithDescription("Add a task to a plan. Omit parent_id for a root task; set it to nest the task under an existing one in the same plan."),
		mcp.WithString("plan_id",
			mcp.Required(),
			mcp.Description("ID of the plan the task belongs to"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Short task title"),
		),
		mcp.WithString("description",
			mcp.Description("What the task involves"),
		),
		mcp.WithString("acceptance_criteria",
			mcp.Description("How to tell the task is done"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags, e.g. \"backend,api\""),
		),
		mcp.WithString("groups",
			mcp.Description("Comma-separated group names"),
		),
		mcp.WithString("parent_id",
			mcp.Description("ID of the parent task; must already exist in the same plan"),
		),
		mcp.WithNumber("estimate_hours",
			mcp.Description("Estimated effort in hours, must not be negative"),
		),
	)
}

func (t *AddTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	planID, err := req.RequireString("plan_id")
	if err != nil {
		return t.invalid(err), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return t.invalid(err), nil
	}

	task, err := t.svc.AddTask(ctx, planner.AddTaskInput{
		PlanID:             planID,
		Title:              title,
		Description:        req.GetString("description", ""),
		AcceptanceCriteria: req.GetString("acceptance_criteria", ""),
		Tags:               req.GetString("tags", ""),
		Groups:             req.GetString("groups", ""),
		ParentID:           req.GetString("parent_id", ""),
		EstimateHours:      req.GetFloat("estimate_hours", 0),
	})
	if err != nil {
		return t.failure(err), nil
	}
	return t.success(map[string]any{"success": true, "task": task}), nil
}

// GetTaskTool returns one task with its full subtree.
type GetTaskTool struct {
	toolDeps
}

func (t *GetTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("get_task_with_children",
		mcp.WithDescription("Get a task and all of its descendants, nested and ordered by creation time."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task"),
		),
	)
}

func (t *GetTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return t.invalid(err), nil
	}

	task, err := t.svc.GetTaskWithSubtree(ctx, taskID)
	if err != nil {
		return t.failure(err), nil
	}
	return t.success(map[string]any{"success": true, "task": task}), nil
}

// MarkCompletedTool completes a task behind the quality gates.
type MarkCompletedTool struct {
	toolDeps
}

func (t *MarkCompletedTool) Definition() mcp.Tool {
	return mcp.NewTool("mark_task_completed",
		mcp.WithDescription("Mark a task completed. Requires attesting that tests pass and that follow-up cleanup tasks were recorded; without both the request is refused and the task is untouched. Completing the last outstanding child auto-completes its parent, recursively."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task to complete"),
		),
		mcp.WithBoolean("tests_pass",
			mcp.Required(),
			mcp.Description("Attestation that the relevant tests pass"),
		),
		mcp.WithBoolean("cleanup_tasks_added",
			mcp.Required(),
			mcp.Description("Attestation that follow-up cleanup tasks were recorded"),
		),
	)
}

func (t *MarkCompletedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return t.invalid(err), nil
	}

	att := planner.CompletionAttestation{
		TestsPass:         req.GetBool("tests_pass", false),
		CleanupTasksAdded: req.GetBool("cleanup_tasks_added", false),
	}

	task, refusal, err := t.svc.MarkTaskCompleted(ctx, taskID, att)
	if err != nil {
		return t.failure(err), nil
	}
	if refusal != nil {
		return t.success(map[string]any{
			"success": false,
			"refused": true,
			"reasons": refusal.Reasons,
		}), nil
	}
	return t.success(map[string]any{"success": true, "task": task}), nil
}

// UpdateStatusTool transitions a task to an arbitrary valid status.
type UpdateStatusTool struct {
	toolDeps
}

func (t *UpdateStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task_status",
		mcp.WithDescription("Set a task's status to one of: todo, in_progress, completed, blocked, cancelled. A transition to completed cascades to fully-completed parents."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task"),
		),
		mcp.WithString("status",
			mcp.Required(),
			mcp.Description("New status: todo, in_progress, completed, blocked or cancelled"),
		),
	)
}

func (t *UpdateStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := req.RequireString("task_id")
	if err != nil {
		return t.invalid(err), nil
	}
	raw, err := req.RequireString("status")
	if err != nil {
		return t.invalid(err), nil
	}

	status, err := plan.ParseStatus(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	task, err := t.svc.UpdateTaskStatus(ctx, taskID, status)
	if err != nil {
		return t.failure(err), nil
	}
	return t.success(map[string]any{"success": true, "task": task}), nil
}

// NextTaskTool completes the next outstanding leaf and reports what follows.
type NextTaskTool struct {
	toolDeps
}

func (t *NextTaskTool) Definition() mcp.Tool {
	return mcp.NewTool("next_task_from_plan",
		mcp.WithDescription("Complete the earliest outstanding leaf task of a plan (cascading to parents) and return it together with the next outstanding leaf. With complete=false, only report the current actionable task without changing anything."),
		mcp.WithString("plan_id",
			mcp.Required(),
			mcp.Description("ID of the plan"),
		),
		mcp.WithBoolean("complete",
			mcp.Description("Complete the next leaf (default true); false only peeks at the current actionable task"),
		),
	)
}

func (t *NextTaskTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	planID, err := req.RequireString("plan_id")
	if err != nil {
		return t.invalid(err), nil
	}

	if !req.GetBool("complete", true) {
		task, err := t.svc.CurrentActionableTask(ctx, planID)
		if err != nil {
			return t.failure(err), nil
		}
		return t.success(map[string]any{"success": true, "current_task": task}), nil
	}

	result, err := t.svc.CompleteNextLeaf(ctx, planID)
	if err != nil {
		return t.failure(err), nil
	}
	return t.success(map[string]any{
		"success":        true,
		"completed_task": result.CompletedTask,
		"next_task":      result.NextTask,
	}), nil
}
