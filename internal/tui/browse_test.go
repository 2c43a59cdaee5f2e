package tui

import (
	"context"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskplan/internal/plan"
	"github.com/felixgeelhaar/taskplan/internal/planner"
	"github.com/felixgeelhaar/taskplan/internal/repo"
	"github.com/felixgeelhaar/taskplan/internal/store"
)

func newBrowseFixture(t *testing.T) (*planner.Service, BrowseModel) {
	t.Helper()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "taskplan.json"), nil)
	svc := planner.NewService(repo.New(fs, nil, nil), nil)

	m := NewBrowseModel(svc)
	m.width = 100
	m.height = 30
	return svc, m
}

func seedPlan(t *testing.T, svc *planner.Service, name string) *plan.Plan {
	t.Helper()
	p, err := svc.CreatePlan(context.Background(), name, "desc", "ctx", "tester")
	require.NoError(t, err)
	return p
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestBrowse_EmptyState(t *testing.T) {
	_, m := newBrowseFixture(t)

	msg := m.Init()()
	updated, _ := m.Update(msg)
	m = updated.(BrowseModel)

	view := m.View()
	assert.Contains(t, view, "No plans yet")
}

func TestBrowse_ListsPlansAndMovesCursor(t *testing.T) {
	svc, m := newBrowseFixture(t)
	seedPlan(t, svc, "alpha")
	seedPlan(t, svc, "beta")

	updated, _ := m.Update(m.loadPlans())
	m = updated.(BrowseModel)
	require.Len(t, m.plans, 2)
	assert.Equal(t, 0, m.cursor)

	view := m.View()
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "beta")

	updated, _ = m.Update(keyMsg("down"))
	m = updated.(BrowseModel)
	assert.Equal(t, 1, m.cursor)

	// Cursor is clamped at the last row.
	updated, _ = m.Update(keyMsg("j"))
	m = updated.(BrowseModel)
	assert.Equal(t, 1, m.cursor)

	updated, _ = m.Update(keyMsg("up"))
	m = updated.(BrowseModel)
	assert.Equal(t, 0, m.cursor)
}

func TestBrowse_OpenAndCloseDetail(t *testing.T) {
	svc, m := newBrowseFixture(t)
	p := seedPlan(t, svc, "alpha")
	_, err := svc.AddTask(context.Background(), planner.AddTaskInput{
		PlanID: p.ID, Title: "first task",
	})
	require.NoError(t, err)

	updated, _ := m.Update(m.loadPlans())
	m = updated.(BrowseModel)

	_, cmd := m.Update(keyMsg("enter"))
	require.NotNil(t, cmd)

	updated, _ = m.Update(cmd())
	m = updated.(BrowseModel)
	assert.Equal(t, viewPlanDetail, m.state)
	assert.Contains(t, m.View(), "first task")

	updated, cmd = m.Update(keyMsg("esc"))
	m = updated.(BrowseModel)
	assert.Equal(t, viewPlanList, m.state)
	assert.NotNil(t, cmd)
}

func TestBrowse_QuitKeys(t *testing.T) {
	_, m := newBrowseFixture(t)

	for _, key := range []string{"q", "ctrl+c"} {
		msg := keyMsg(key)
		if key == "ctrl+c" {
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		}
		_, cmd := m.Update(msg)
		require.NotNil(t, cmd, "key %q should quit", key)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestRenderTaskTree(t *testing.T) {
	p := &plan.Plan{
		ID:   "p1",
		Name: "plan",
		Tasks: []*plan.Task{
			{
				ID: "t1", Title: "root", Status: plan.StatusInProgress, EstimateHours: 2,
				Children: []*plan.Task{
					{ID: "t2", Title: "child", Status: plan.StatusCompleted},
				},
			},
		},
	}

	out := renderTaskTree(p)
	assert.Contains(t, out, "root")
	assert.Contains(t, out, "  ✓ child")
	assert.Contains(t, out, "2.0h")
}
