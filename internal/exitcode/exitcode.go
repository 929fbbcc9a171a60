package exitcode

import (
	"errors"
	"os"

	builderrors "github.com/gt-coar/coarbuild/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// TaskFailure indicates one or more pipeline tasks failed
	TaskFailure = 3

	// TestFailure indicates the installer test driver exhausted its retries
	TestFailure = 4

	// Interrupted indicates the operator cancelled the run
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var buildErr *builderrors.BuildError
	if errors.As(err, &buildErr) {
		switch buildErr.Code {
		case builderrors.ErrCodeTestExhausted:
			return TestFailure
		case builderrors.ErrCodeTestInterrupted:
			return Interrupted
		case builderrors.ErrCodeTaskFailed, builderrors.ErrCodeTaskCycle,
			builderrors.ErrCodeTaskUnknown, builderrors.ErrCodeTaskDepMissing:
			return TaskFailure
		case builderrors.ErrCodeConfigNotFound, builderrors.ErrCodeConfigInvalid,
			builderrors.ErrCodeConfigBadValue:
			return UsageError
		}
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags, arguments, or configuration)"
	case TaskFailure:
		return "Task failure"
	case TestFailure:
		return "Installer tests failed after all retries"
	case Interrupted:
		return "Interrupted by operator"
	default:
		return "Unknown error"
	}
}
