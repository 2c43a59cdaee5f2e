package planner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskplan/internal/errors"
	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/repo"
	"github.com/felixgeelhaar/taskplan/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "taskplan.json"), nil)
	svc := NewService(repo.New(fs, nil, nil), nil)

	// Deterministic, strictly increasing clock so creation-time ordering
	// is stable in tests.
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	svc.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
	return svc
}

func mustCreatePlan(t *testing.T, svc *Service) *plan.Plan {
	t.Helper()
	p, err := svc.CreatePlan(context.Background(), "release", "ship 2.0", "monorepo, Go services", "alice")
	require.NoError(t, err)
	return p
}

func mustAddTask(t *testing.T, svc *Service, planID, parentID, title string) *plan.Task {
	t.Helper()
	task, err := svc.AddTask(context.Background(), AddTaskInput{
		PlanID:   planID,
		ParentID: parentID,
		Title:    title,
	})
	require.NoError(t, err)
	return task
}

func TestService_CreatePlan(t *testing.T) {
	svc := newTestService(t)

	p := mustCreatePlan(t, svc)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "release", p.Name)
	assert.Equal(t, "alice", p.Creator)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := svc.GetPlan(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestService_CreatePlanRequiresAllFields(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name, description, buildContext, creator string
	}{
		{"", "d", "b", "c"},
		{"n", "", "b", "c"},
		{"n", "d", "", "c"},
		{"n", "d", "b", ""},
		{"n", "d", "b", "   "},
	}
	for _, tc := range cases {
		_, err := svc.CreatePlan(ctx, tc.name, tc.description, tc.buildContext, tc.creator)
		assert.Error(t, err)
	}
}

func TestService_AddTaskValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)

	_, err := svc.AddTask(ctx, AddTaskInput{PlanID: "", Title: "x"})
	assert.Error(t, err)

	_, err = svc.AddTask(ctx, AddTaskInput{PlanID: p.ID, Title: ""})
	assert.Error(t, err)

	_, err = svc.AddTask(ctx, AddTaskInput{PlanID: p.ID, Title: "x", EstimateHours: -1})
	assert.Equal(t, errors.ErrCodeTaskInvalid, errors.CodeOf(err))

	_, err = svc.AddTask(ctx, AddTaskInput{PlanID: "ghost", Title: "x"})
	assert.Equal(t, errors.ErrCodePlanNotFound, errors.CodeOf(err))
}

func TestService_AddTaskSplitsTagsAndGroups(t *testing.T) {
	svc := newTestService(t)
	p := mustCreatePlan(t, svc)

	task, err := svc.AddTask(context.Background(), AddTaskInput{
		PlanID: p.ID,
		Title:  "wire the API",
		Tags:   "backend, api ,backend,,  urgent",
		Groups: "sprint-1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"backend", "api", "urgent"}, task.Tags)
	assert.Equal(t, []string{"sprint-1"}, task.Groups)
	assert.Equal(t, plan.StatusTodo, task.Status)
}

func TestService_GetTaskWithSubtree(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)

	root := mustAddTask(t, svc, p.ID, "", "root")
	child := mustAddTask(t, svc, p.ID, root.ID, "child")
	mustAddTask(t, svc, p.ID, child.ID, "grandchild")

	got, err := svc.GetTaskWithSubtree(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, got.Children, 1)
	require.Len(t, got.Children[0].Children, 1)
	assert.Equal(t, "grandchild", got.Children[0].Children[0].Title)
}

func TestService_ListPlansDerivedStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	empty := mustCreatePlan(t, svc)

	active, err := svc.CreatePlan(ctx, "active", "d", "b", "c")
	require.NoError(t, err)
	at := mustAddTask(t, svc, active.ID, "", "in flight")
	_, err = svc.UpdateTaskStatus(ctx, at.ID, plan.StatusInProgress)
	require.NoError(t, err)

	done, err := svc.CreatePlan(ctx, "done", "d", "b", "c")
	require.NoError(t, err)
	dt := mustAddTask(t, svc, done.ID, "", "finished")
	_, err = svc.UpdateTaskStatus(ctx, dt.ID, plan.StatusCompleted)
	require.NoError(t, err)

	summaries, err := svc.ListPlans(ctx, false)
	require.NoError(t, err)
	byID := make(map[string]*PlanSummary)
	for _, s := range summaries {
		byID[s.ID] = s
	}
	require.Len(t, byID, 3)
	assert.Equal(t, plan.StatusTodo, byID[empty.ID].Status)
	assert.Equal(t, plan.StatusInProgress, byID[active.ID].Status)
	assert.Equal(t, plan.StatusCompleted, byID[done.ID].Status)

	// hideCompleted filters the listing only; the plan stays stored.
	filtered, err := svc.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	for _, s := range filtered {
		assert.NotEqual(t, done.ID, s.ID)
	}
	_, err = svc.GetPlan(ctx, done.ID)
	assert.NoError(t, err)
}

func TestService_GetProgress(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)

	a, err := svc.AddTask(ctx, AddTaskInput{PlanID: p.ID, Title: "a", EstimateHours: 3})
	require.NoError(t, err)
	_, err = svc.AddTask(ctx, AddTaskInput{PlanID: p.ID, Title: "b", EstimateHours: 5})
	require.NoError(t, err)
	c, err := svc.AddTask(ctx, AddTaskInput{PlanID: p.ID, Title: "c", ParentID: a.ID, EstimateHours: 1})
	require.NoError(t, err)

	_, err = svc.UpdateTaskStatus(ctx, c.ID, plan.StatusCompleted)
	require.NoError(t, err)

	progress, err := svc.GetProgress(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, 1, progress.Completed)
	assert.Equal(t, 2, progress.Pending)
	assert.InDelta(t, 33.33, progress.PercentComplete, 0.001)
	assert.InDelta(t, 9.0, progress.EstimateHoursTotal, 0.001)
	assert.InDelta(t, 1.0, progress.EstimateHoursCompleted, 0.001)
	assert.InDelta(t, 11.11, progress.PercentByEstimate, 0.001)
}

func TestService_GetProgressEmptyPlan(t *testing.T) {
	svc := newTestService(t)
	p := mustCreatePlan(t, svc)

	progress, err := svc.GetProgress(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.Total)
	assert.Zero(t, progress.PercentComplete)
	assert.Zero(t, progress.PercentByEstimate)
}

func TestService_CurrentActionableTask(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)

	first := mustAddTask(t, svc, p.ID, "", "first todo")
	blocked := mustAddTask(t, svc, p.ID, "", "stuck")
	_, err := svc.UpdateTaskStatus(ctx, blocked.ID, plan.StatusBlocked)
	require.NoError(t, err)

	// No in-progress work yet: the earliest todo wins over the blocked task.
	got, err := svc.CurrentActionableTask(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)

	// In-progress work takes priority even when created later.
	later := mustAddTask(t, svc, p.ID, "", "later")
	_, err = svc.UpdateTaskStatus(ctx, later.ID, plan.StatusInProgress)
	require.NoError(t, err)

	got, err = svc.CurrentActionableTask(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, later.ID, got.ID)
}

func TestService_CurrentActionableTaskNoneLeft(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)

	task := mustAddTask(t, svc, p.ID, "", "only")
	_, err := svc.UpdateTaskStatus(ctx, task.ID, plan.StatusCancelled)
	require.NoError(t, err)

	got, err := svc.CurrentActionableTask(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_CompleteNextLeafCascades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)

	root := mustAddTask(t, svc, p.ID, "", "root")
	leafA := mustAddTask(t, svc, p.ID, root.ID, "leaf a")
	leafB := mustAddTask(t, svc, p.ID, root.ID, "leaf b")

	result, err := svc.CompleteNextLeaf(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, result.CompletedTask)
	assert.Equal(t, leafA.ID, result.CompletedTask.ID)
	require.NotNil(t, result.NextTask)
	assert.Equal(t, leafB.ID, result.NextTask.ID)

	// Completing the last leaf cascades to the root and empties the queue.
	result, err = svc.CompleteNextLeaf(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, leafB.ID, result.CompletedTask.ID)
	assert.Nil(t, result.NextTask)

	got, err := svc.GetTaskWithSubtree(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
}

func TestService_CompleteNextLeafEmptyPlan(t *testing.T) {
	svc := newTestService(t)
	p := mustCreatePlan(t, svc)

	result, err := svc.CompleteNextLeaf(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, result.CompletedTask)
	assert.Nil(t, result.NextTask)
}

func TestService_UpdateTaskStatusValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateTaskStatus(ctx, "", plan.StatusCompleted)
	assert.Equal(t, errors.ErrCodeTaskInvalid, errors.CodeOf(err))

	_, err = svc.UpdateTaskStatus(ctx, "t1", plan.Status("bogus"))
	assert.Equal(t, errors.ErrCodeTaskInvalid, errors.CodeOf(err))

	_, err = svc.UpdateTaskStatus(ctx, "ghost", plan.StatusCompleted)
	assert.Equal(t, errors.ErrCodeTaskNotFound, errors.CodeOf(err))
}

func TestService_MarkTaskCompletedGateRefusal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)
	task := mustAddTask(t, svc, p.ID, "", "guarded")

	cases := []struct {
		att     CompletionAttestation
		reasons int
	}{
		{CompletionAttestation{}, 2},
		{CompletionAttestation{TestsPass: true}, 1},
		{CompletionAttestation{CleanupTasksAdded: true}, 1},
	}
	for _, tc := range cases {
		got, refusal, err := svc.MarkTaskCompleted(ctx, task.ID, tc.att)
		require.NoError(t, err)
		assert.Nil(t, got)
		require.NotNil(t, refusal)
		assert.Len(t, refusal.Reasons, tc.reasons)
	}

	// The refused task is untouched.
	unchanged, err := svc.GetTaskWithSubtree(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.StatusTodo, unchanged.Status)
}

func TestService_MarkTaskCompletedPassesGates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustCreatePlan(t, svc)
	task := mustAddTask(t, svc, p.ID, "", "guarded")

	got, refusal, err := svc.MarkTaskCompleted(ctx, task.ID, CompletionAttestation{
		TestsPass:         true,
		CleanupTasksAdded: true,
	})
	require.NoError(t, err)
	assert.Nil(t, refusal)
	require.NotNil(t, got)
	assert.Equal(t, plan.StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}
