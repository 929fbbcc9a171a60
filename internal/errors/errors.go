package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Spec file errors (SPEC-001 to SPEC-099)
	ErrCodeSpecNotFound  ErrorCode = "SPEC-001"
	ErrCodeSpecInvalid   ErrorCode = "SPEC-002"
	ErrCodeSpecUnmarshal ErrorCode = "SPEC-003"

	// Lock errors (LOCK-001 to LOCK-099)
	ErrCodeLockToolFailed   ErrorCode = "LOCK-001"
	ErrCodeLockNotFound     ErrorCode = "LOCK-002"
	ErrCodeLockNoExplicit   ErrorCode = "LOCK-003"
	ErrCodeLockEmptyPackage ErrorCode = "LOCK-004"

	// Construct errors (CONSTRUCT-001 to CONSTRUCT-099)
	ErrCodeConstructTemplate    ErrorCode = "CONSTRUCT-001"
	ErrCodeConstructToolFailed  ErrorCode = "CONSTRUCT-002"
	ErrCodeConstructNoInstaller ErrorCode = "CONSTRUCT-003"

	// Test driver errors (TEST-001 to TEST-099)
	ErrCodeTestRunnerFailed ErrorCode = "TEST-001"
	ErrCodeTestExhausted    ErrorCode = "TEST-002"
	ErrCodeTestReportMerge  ErrorCode = "TEST-003"
	ErrCodeTestInterrupted  ErrorCode = "TEST-004"

	// Task engine errors (TASK-001 to TASK-099)
	ErrCodeTaskUnknown    ErrorCode = "TASK-001"
	ErrCodeTaskCycle      ErrorCode = "TASK-002"
	ErrCodeTaskFailed     ErrorCode = "TASK-003"
	ErrCodeTaskDepMissing ErrorCode = "TASK-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigNotFound ErrorCode = "CONFIG-001"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG-002"
	ErrCodeConfigBadValue ErrorCode = "CONFIG-003"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeDirectoryFailed ErrorCode = "IO-004"
)

// BuildError represents an enhanced error with code, suggestions, and documentation
type BuildError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// New creates a new BuildError
func New(code ErrorCode, message string) *BuildError {
	return &BuildError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new BuildError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *BuildError {
	return &BuildError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *BuildError) WithSuggestion(suggestion string) *BuildError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *BuildError) WithSuggestions(suggestions ...string) *BuildError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *BuildError) WithDocs(url string) *BuildError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewSpecNotFoundError creates a spec file not found error
func NewSpecNotFoundError(path string) *BuildError {
	return New(ErrCodeSpecNotFound, fmt.Sprintf("specification file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Specs live under specs/ as <variant>-<platform>.yml")
}

// NewLockToolError creates a lock tool invocation error
func NewLockToolError(pair string, cause error) *BuildError {
	return Wrap(ErrCodeLockToolFailed, fmt.Sprintf("lock tool failed for %s", pair), cause).
		WithSuggestion("Check that conda-lock is installed and on PATH").
		WithSuggestion("Inspect the captured tool output above for solver errors")
}

// NewLockNoExplicitError creates an error for a lock file missing its explicit section
func NewLockNoExplicitError(path string) *BuildError {
	return New(ErrCodeLockNoExplicit, fmt.Sprintf("lock file has no @EXPLICIT section: %s", path)).
		WithSuggestion("Regenerate the lock file with 'coarbuild lock'").
		WithSuggestion("The lock file may be truncated or hand-edited")
}

// NewConstructToolError creates a constructor invocation error
func NewConstructToolError(pair string, cause error) *BuildError {
	return Wrap(ErrCodeConstructToolFailed, fmt.Sprintf("constructor failed for %s", pair), cause).
		WithSuggestion("Check that constructor is installed and on PATH")
}

// NewTestExhaustedError creates a retries-exhausted error
func NewTestExhaustedError(attempts int) *BuildError {
	return New(ErrCodeTestExhausted, fmt.Sprintf("installer tests failed after %d attempts", attempts)).
		WithSuggestion("See the combined report for per-case failures").
		WithSuggestion("Raise COARBUILD_TEST_RETRIES to allow more attempts")
}

// NewTaskCycleError creates a dependency cycle error
func NewTaskCycleError(task string) *BuildError {
	return New(ErrCodeTaskCycle, fmt.Sprintf("dependency cycle involving task: %s", task)).
		WithSuggestion("Review the file_dep/target wiring between tasks")
}

// NewFileNotFoundError creates a file not found error
func NewFileNotFoundError(path string) *BuildError {
	return New(ErrCodeFileNotFound, fmt.Sprintf("file not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Verify the file exists and you have read permissions")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *BuildError {
	return Wrap(ErrCodeSpecUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
