package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// NewPlanTool creates a new empty plan.
type NewPlanTool struct {
	toolDeps
}

func (t *NewPlanTool) Definition() mcp.Tool {
	return mcp.NewTool("new_plan",
		mcp.WithDescription("Create a new task plan. All four fields are required; the plan starts with no tasks."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Short human-readable plan name"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What the plan is meant to accomplish"),
		),
		mcp.WithString("build_context",
			mcp.Required(),
			mcp.Description("Environment and codebase context the plan executes in"),
		),
		mcp.WithString("creator",
			mcp.Required(),
			mcp.Description("Who or what is creating the plan"),
		),
	)
}

func (t *NewPlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return t.invalid(err), nil
	}
	description, err := req.RequireString("description")
	if err != nil {
		return t.invalid(err), nil
	}
	buildContext, err := req.RequireString("build_context")
	if err != nil {
		return t.invalid(err), nil
	}
	creator, err := req.RequireString("creator")
	if err != nil {
		return t.invalid(err), nil
	}

	p, err := t.svc.CreatePlan(ctx, name, description, buildContext, creator)
	if err != nil {
		return t.failure(err), nil
	}
	return t.success(map[string]any{"success": true, "plan": p}), nil
}

// ListPlansTool lists all plans with derived progress.
type ListPlansTool struct {
	toolDeps
}

func (t *ListPlansTool) Definition() mcp.Tool {
	return mcp.NewTool("list_plans",
		mcp.WithDescription("List all plans with per-plan progress summaries. Completed plans can be filtered out of the listing; they are never deleted."),
		mcp.WithBoolean("hide_completed",
			mcp.Description("When true, omit plans whose every task is completed"),
		),
	)
}

func (t *ListPlansTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	hideCompleted := req.GetBool("hide_completed", false)

	summaries, err := t.svc.ListPlans(ctx, hideCompleted)
	if err != nil {
		return t.failure(err), nil
	}
	return t.success(map[string]any{"success": true, "plans": summaries}), nil
}

// GetTasksTool returns a plan's full task forest.
type GetTasksTool struct {
	toolDeps
}

func (t *GetTasksTool) Definition() mcp.Tool {
	return mcp.NewTool("get_tasks_from_plan",
		mcp.WithDescription("Get the full task tree of a plan, children nested under parents and ordered by creation time."),
		mcp.WithString("plan_id",
			mcp.Required(),
			mcp.Description("ID of the plan"),
		),
	)
}

func (t *GetTasksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	planID, err := req.RequireString("plan_id")
	if err != nil {
		return t.invalid(err), nil
	}

	p, err := t.svc.GetPlan(ctx, planID)
	if err != nil {
		return t.failure(err), nil
	}
	return t.success(map[string]any{"success": true, "plan_id": p.ID, "tasks": p.Tasks}), nil
}
