// Package testdriver runs the installer acceptance suite with bounded
// retries. The first attempt runs the full suite; each retry reruns
// only the cases the previous attempt's report marks failed. Whatever
// happens, every attempt report is merged into one combined report.
package testdriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gt-coar/coarbuild/internal/errors"
	"github.com/gt-coar/coarbuild/internal/log"
	"github.com/gt-coar/coarbuild/internal/runner"
)

// Driver drives the external acceptance-test runner
type Driver struct {
	// Tool is the test runner command line prefix
	Tool []string
	// ExtraArgs are forwarded to every attempt
	ExtraArgs []string
	// Retries is the retry budget; the runner is invoked at most
	// Retries+1 times
	Retries int
	// ReportsDir receives per-attempt and combined reports
	ReportsDir string
	// Dir is the runner's working directory
	Dir string
	// Env is the patched child environment
	Env []string
	// Runner executes the tool
	Runner runner.Runner
	// Logger for per-attempt progress
	Logger *log.Logger
}

// Attempt records one runner invocation
type Attempt struct {
	// Index is the zero-based attempt number
	Index int
	// ExitCode is the runner's exit status
	ExitCode int
	// Report is the attempt's result file path
	Report string
	// RerunFailed reports whether this attempt was filtered to the
	// previous attempt's failures
	RerunFailed bool
	// Interrupted reports whether the operator cancelled this attempt
	Interrupted bool
}

// Outcome is the driver's aggregate result
type Outcome struct {
	Attempts []Attempt
	Passed   bool
	// Combined is the merged report; set whenever at least one
	// attempt produced a report
	Combined     *TestSuites
	CombinedPath string
}

// reportPath names an attempt's result file
func (d *Driver) reportPath(attempt int) string {
	return filepath.Join(d.ReportsDir, fmt.Sprintf("attempt-%d.xml", attempt))
}

// CombinedPath names the merged report file
func (d *Driver) CombinedPath() string {
	return filepath.Join(d.ReportsDir, "combined.xml")
}

// Run executes the retry loop and then merges reports exactly once,
// regardless of pass/fail outcome. An operator interrupt kills the
// running attempt and counts it as failed; the driver then stops
// without launching further attempts.
func (d *Driver) Run(ctx context.Context) (*Outcome, error) {
	if err := os.MkdirAll(d.ReportsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}

	// Attempt reports from a previous run would satisfy the rerun-filter
	// stat check; clear them so only this run's reports are consulted.
	stale, err := filepath.Glob(filepath.Join(d.ReportsDir, "attempt-*.xml"))
	if err != nil {
		return nil, fmt.Errorf("scan reports directory: %w", err)
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("remove stale report %s: %w", path, err)
		}
	}

	outcome := &Outcome{}
	attempts := d.Retries + 1

	for i := 0; i < attempts; i++ {
		attempt, err := d.runAttempt(ctx, i)
		if err != nil {
			// Launch failures are not retryable; still aggregate
			// whatever earlier attempts produced.
			d.merge(outcome)
			return outcome, err
		}
		outcome.Attempts = append(outcome.Attempts, *attempt)

		if attempt.ExitCode == 0 && !attempt.Interrupted {
			outcome.Passed = true
			break
		}
		if attempt.Interrupted {
			break
		}
	}

	mergeErr := d.merge(outcome)
	if mergeErr != nil {
		return outcome, mergeErr
	}

	if !outcome.Passed {
		last := outcome.Attempts[len(outcome.Attempts)-1]
		if last.Interrupted {
			return outcome, errors.New(errors.ErrCodeTestInterrupted,
				fmt.Sprintf("installer tests interrupted during attempt %d", last.Index+1))
		}
		return outcome, errors.NewTestExhaustedError(len(outcome.Attempts))
	}

	return outcome, nil
}

// runAttempt launches one runner invocation. Attempts after the first
// rerun only previously-failed cases when the prior report exists, and
// raise verbosity; without a prior report the full suite reruns.
func (d *Driver) runAttempt(ctx context.Context, index int) (*Attempt, error) {
	report := d.reportPath(index)

	args := append([]string{}, d.ExtraArgs...)
	rerun := false
	if index > 0 {
		prev := d.reportPath(index - 1)
		if _, err := os.Stat(prev); err == nil {
			args = append(args, "--rerun-failed", prev, "-v")
			rerun = true
		}
	}
	args = append(args, "--junitxml", report)

	if d.Logger != nil {
		d.Logger.Info("running installer tests",
			"attempt", index+1, "max_attempts", d.Retries+1, "rerun_failed", rerun)
	}

	result, err := d.Runner.Run(ctx, runner.Command{
		Argv: runner.Argv(d.Tool, args...),
		Dir:  d.Dir,
		Env:  d.Env,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTestRunnerFailed,
			fmt.Sprintf("launch test runner (attempt %d)", index+1), err)
	}

	attempt := &Attempt{
		Index:       index,
		ExitCode:    result.ExitCode,
		Report:      report,
		RerunFailed: rerun,
		Interrupted: result.Interrupted,
	}

	if d.Logger != nil {
		d.Logger.Info("installer test attempt finished",
			"attempt", index+1, "exit_code", result.ExitCode,
			"interrupted", result.Interrupted, "duration", result.Duration)
	}

	return attempt, nil
}

// merge aggregates all attempt reports into the combined report. It is
// called exactly once per Run, on every path out of the retry loop.
func (d *Driver) merge(outcome *Outcome) error {
	var paths []string
	for _, a := range outcome.Attempts {
		paths = append(paths, a.Report)
	}
	if len(paths) == 0 {
		return nil
	}

	combined, err := MergeReports(paths, d.CombinedPath())
	if err != nil {
		return err
	}
	outcome.Combined = combined
	outcome.CombinedPath = d.CombinedPath()

	if d.Logger != nil {
		d.Logger.Info("combined test report written",
			"path", outcome.CombinedPath, "tests", combined.Tests,
			"failures", combined.Failures, "errors", combined.Errors)
	}
	return nil
}
