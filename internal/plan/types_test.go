package plan

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{"todo", StatusTodo, false},
		{"In_Progress", StatusInProgress, false},
		{"in-progress", StatusInProgress, false},
		{"in progress", StatusInProgress, false},
		{"COMPLETED", StatusCompleted, false},
		{"blocked", StatusBlocked, false},
		{"cancelled", StatusCancelled, false},
		{"done", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Status
	}{
		{"symbolic name", `"completed"`, StatusCompleted},
		{"numeric legacy value", `1`, StatusInProgress},
		{"quoted numeric", `"3"`, StatusBlocked},
		{"out of range number", `42`, StatusTodo},
		{"unknown string falls back to first value", `"nonsense"`, StatusTodo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Status
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &s))
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestStatusRoundTrip(t *testing.T) {
	data, err := json.Marshal(StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, `"in_progress"`, string(data))
}

func TestTaskSetStatus_CompletedAtInvariant(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	task := &Task{ID: "t1", PlanID: "p1", Title: "work", Status: StatusTodo}

	task.SetStatus(StatusCompleted, now)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)

	// Repeated completion must not overwrite the original timestamp.
	later := now.Add(time.Hour)
	task.SetStatus(StatusCompleted, later)
	assert.Equal(t, now, *task.CompletedAt)
	assert.Equal(t, later, task.UpdatedAt)

	// Leaving Completed clears the timestamp.
	task.SetStatus(StatusInProgress, later)
	assert.Nil(t, task.CompletedAt)

	task.SetStatus(StatusCompleted, later)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, later, *task.CompletedAt)
}

func TestTaskValidate(t *testing.T) {
	valid := &Task{ID: "t1", PlanID: "p1", Title: "work"}
	assert.NoError(t, valid.Validate())

	missingTitle := &Task{ID: "t1", PlanID: "p1"}
	assert.Error(t, missingTitle.Validate())

	negativeEstimate := &Task{ID: "t1", PlanID: "p1", Title: "work", EstimateHours: -1}
	assert.Error(t, negativeEstimate.Validate())
}

func TestPlanValidate(t *testing.T) {
	assert.NoError(t, (&Plan{ID: "p1", Name: "n"}).Validate())
	assert.Error(t, (&Plan{Name: "n"}).Validate())
	assert.Error(t, (&Plan{ID: "p1"}).Validate())
}

func TestTaskClone_Independence(t *testing.T) {
	completedAt := time.Now().UTC()
	original := &Task{
		ID:          "root",
		PlanID:      "p1",
		Title:       "root",
		Status:      StatusCompleted,
		Tags:        []string{"a"},
		CompletedAt: &completedAt,
		Children: []*Task{
			{ID: "child", PlanID: "p1", ParentID: "root", Title: "child"},
		},
	}

	clone := original.Clone()
	clone.Title = "changed"
	clone.Tags[0] = "b"
	clone.Children[0].Title = "changed child"
	*clone.CompletedAt = completedAt.Add(time.Hour)

	assert.Equal(t, "root", original.Title)
	assert.Equal(t, "a", original.Tags[0])
	assert.Equal(t, "child", original.Children[0].Title)
	assert.Equal(t, completedAt, *original.CompletedAt)
}

func TestPlanClone_Independence(t *testing.T) {
	original := &Plan{
		ID:    "p1",
		Name:  "plan",
		Tasks: []*Task{{ID: "t1", PlanID: "p1", Title: "task"}},
	}

	clone := original.Clone()
	clone.Tasks[0].Title = "changed"
	clone.Name = "changed"

	assert.Equal(t, "plan", original.Name)
	assert.Equal(t, "task", original.Tasks[0].Title)
}

func TestNewID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusTodo.Terminal())
	assert.False(t, StatusBlocked.Terminal())
	assert.False(t, StatusInProgress.Terminal())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, Round2(200.0/3.0))
	assert.Equal(t, 100.0, Round2(100.0))
	assert.Equal(t, 0.0, Round2(0))
}
