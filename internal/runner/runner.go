package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Command describes one external tool invocation
type Command struct {
	// Argv is the full command line, program first
	Argv []string
	// Dir is the working directory; empty means the caller's
	Dir string
	// Env is the child environment; nil inherits the parent's
	Env []string
	// Stream mirrors child output to this writer as it arrives
	Stream io.Writer
}

// Result captures the outcome of one invocation
type Result struct {
	// ExitCode is the child's exit status; -1 if it never ran
	ExitCode int
	// Output is the combined stdout and stderr
	Output string
	// Duration is the wall-clock run time
	Duration time.Duration
	// Interrupted reports whether the context was cancelled while
	// the child was running
	Interrupted bool
}

// Runner executes external commands. The single implementation shells
// out; tests substitute their own.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands via os/exec, killing the child when the
// context is cancelled.
type ExecRunner struct{}

// New creates an ExecRunner
func New() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and waits for it to finish. A non-zero exit
// is reported through Result.ExitCode, not through the error return;
// the error is reserved for failures to launch or observe the child.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	var buf bytes.Buffer
	if cmd.Stream != nil {
		w := io.MultiWriter(&buf, cmd.Stream)
		c.Stdout = w
		c.Stderr = w
	} else {
		c.Stdout = &buf
		c.Stderr = &buf
	}

	start := time.Now()
	err := c.Run()
	result := &Result{
		ExitCode:    0,
		Output:      buf.String(),
		Duration:    time.Since(start),
		Interrupted: ctx.Err() != nil,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if result.Interrupted {
			// CommandContext killed the child; surface it as a
			// failed run rather than a launch error.
			result.ExitCode = -1
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("run %s: %w", cmd.Argv[0], err)
	}

	return result, nil
}

// Argv composes a tool's configured command line with extra arguments
func Argv(tool []string, args ...string) []string {
	argv := make([]string, 0, len(tool)+len(args))
	argv = append(argv, tool...)
	argv = append(argv, args...)
	return argv
}

// Compile-time verification that ExecRunner implements Runner
var _ Runner = (*ExecRunner)(nil)
