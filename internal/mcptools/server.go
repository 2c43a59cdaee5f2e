package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/felixgeelhaar/taskplan/internal/log"
	"github.com/felixgeelhaar/taskplan/internal/planner"
	"github.com/felixgeelhaar/taskplan/internal/version"
)

// Options tunes the MCP surface.
type Options struct {
	// StrictErrors surfaces planner failures as protocol-level tool errors
	// instead of structured success=false payloads.
	StrictErrors bool
}

// NewServer wires every planner tool into an MCP server. This is the
// composition root of the MCP surface; no planning logic lives here.
func NewServer(svc *planner.Service, logger *log.Logger, opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		"taskplan",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	deps := newToolDeps(svc, logger, opts.StrictErrors)

	newPlan := &NewPlanTool{deps}
	s.AddTool(newPlan.Definition(), newPlan.Handle)

	listPlans := &ListPlansTool{deps}
	s.AddTool(listPlans.Definition(), listPlans.Handle)

	getTasks := &GetTasksTool{deps}
	s.AddTool(getTasks.Definition(), getTasks.Handle)

	addTask := &AddTaskTool{deps}
	s.AddTool(addTask.Definition(), addTask.Handle)

	getTask := &GetTaskTool{deps}
	s.AddTool(getTask.Definition(), getTask.Handle)

	markCompleted := &MarkCompletedTool{deps}
	s.AddTool(markCompleted.Definition(), markCompleted.Handle)

	updateStatus := &UpdateStatusTool{deps}
	s.AddTool(updateStatus.Definition(), updateStatus.Handle)

	nextTask := &NextTaskTool{deps}
	s.AddTool(nextTask.Definition(), nextTask.Handle)

	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func serverInstructions() string {
	return `You have access to taskplan, a hierarchical task planning server.

Plans hold trees of tasks. Tasks nest via parent_id, and completing the
last outstanding child of a parent completes the parent automatically,
all the way up the tree.

Typical workflow:
1. new_plan to create a plan, then add_task_to_plan for each task.
   Break large tasks into children by passing parent_id.
2. list_plans / get_tasks_from_plan to review state.
3. next_task_from_plan with complete=false to see what to work on.
4. When a task is done, call mark_task_completed. You must attest that
   tests pass and that follow-up cleanup tasks were recorded; otherwise
   the completion is refused and you should finish those first.
5. update_task_status for other transitions (in_progress, blocked,
   cancelled).

Statuses: todo, in_progress, completed, blocked, cancelled. Cancellation
is the only way to retire a task; nothing is ever deleted.`
}
