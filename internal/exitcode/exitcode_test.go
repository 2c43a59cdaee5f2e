package exitcode

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/taskplan/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, Success},
		{"plan not found", errors.NewPlanNotFoundError("p1"), NotFound},
		{"task not found", errors.NewTaskNotFoundError("t1"), NotFound},
		{"parent not found", errors.NewParentNotFoundError("t0", "p1"), NotFound},
		{"invalid task", errors.New(errors.ErrCodeTaskInvalid, "title is required"), UsageError},
		{"duplicate plan", errors.NewPlanDuplicateError("p1"), Conflict},
		{"store save", errors.NewStoreSaveError(stderrors.New("disk full")), StoreError},
		{"consistency fault", errors.NewConsistencyError("task vanished"), StoreError},
		{"config invalid", errors.New(errors.ErrCodeConfigInvalid, "bad backend"), ConfigError},
		{"plain error", stderrors.New("boom"), GeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineExitCode(tt.err))
		})
	}
}
