package exitcode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	builderrors "github.com/gt-coar/coarbuild/internal/errors"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"plain error", fmt.Errorf("boom"), GeneralError},
		{"exhausted retries", builderrors.NewTestExhaustedError(3), TestFailure},
		{"interrupted tests", builderrors.New(builderrors.ErrCodeTestInterrupted, "x"), Interrupted},
		{"task failure", builderrors.New(builderrors.ErrCodeTaskFailed, "x"), TaskFailure},
		{"task cycle", builderrors.NewTaskCycleError("lock"), TaskFailure},
		{"unknown task", builderrors.New(builderrors.ErrCodeTaskUnknown, "x"), TaskFailure},
		{"bad config", builderrors.New(builderrors.ErrCodeConfigBadValue, "x"), UsageError},
		{"lock failure", builderrors.NewLockToolError("cpu:linux-64", fmt.Errorf("exit 2")), GeneralError},
		{
			"wrapped build error",
			fmt.Errorf("run failed: %w", builderrors.New(builderrors.ErrCodeTaskFailed, "x")),
			TaskFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineExitCode(tt.err))
		})
	}
}

func TestGetExitCodeDescription(t *testing.T) {
	assert.Equal(t, "Success", GetExitCodeDescription(Success))
	assert.Equal(t, "Task failure", GetExitCodeDescription(TaskFailure))
	assert.Equal(t, "Unknown error", GetExitCodeDescription(99))
}
