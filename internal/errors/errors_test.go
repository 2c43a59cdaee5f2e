package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlannerError_Error(t *testing.T) {
	err := New(ErrCodePlanNotFound, "plan not found: p-1")
	assert.Contains(t, err.Error(), "[PLAN-001]")
	assert.Contains(t, err.Error(), "plan not found: p-1")
}

func TestPlannerError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCodeStoreSave, "failed to persist", cause)

	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestPlannerError_ErrorWithSuggestions(t *testing.T) {
	err := New(ErrCodeConfigInvalid, "bad config").
		WithSuggestion("check the yaml syntax")

	assert.Contains(t, err.Error(), "Suggestions:")
	assert.Contains(t, err.Error(), "check the yaml syntax")
}

func TestCodeOf(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		assert.Equal(t, ErrCodeTaskNotFound, CodeOf(NewTaskNotFoundError("t-1")))
	})

	t.Run("wrapped with fmt", func(t *testing.T) {
		inner := NewPlanNotFoundError("p-1")
		outer := fmt.Errorf("listing plans: %w", inner)
		assert.Equal(t, ErrCodePlanNotFound, CodeOf(outer))
	})

	t.Run("not a planner error", func(t *testing.T) {
		assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, ErrorCode(""), CodeOf(nil))
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NewPlanNotFoundError("p")))
	assert.True(t, IsNotFound(NewTaskNotFoundError("t")))
	assert.True(t, IsNotFound(NewParentNotFoundError("parent", "p")))
	assert.False(t, IsNotFound(NewPlanDuplicateError("p")))
	assert.False(t, IsNotFound(nil))
}

func TestErrorsAsThroughChain(t *testing.T) {
	cause := stderrors.New("io failure")
	err := NewStoreLoadError(cause)

	var pe *PlannerError
	require.True(t, stderrors.As(err, &pe))
	assert.Equal(t, ErrCodeStoreLoad, pe.Code)
	assert.True(t, stderrors.Is(err, cause))
}
