package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gt-coar/coarbuild/internal/task"
	"github.com/gt-coar/coarbuild/internal/testdriver"
)

// captureStdout runs fn and returns what it printed
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	w.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func TestPrintTestSummary(t *testing.T) {
	outcome := &testdriver.Outcome{
		Attempts:     []testdriver.Attempt{{Index: 0, ExitCode: 1}, {Index: 1, ExitCode: 0}},
		Passed:       true,
		Combined:     &testdriver.TestSuites{Tests: 12, Failures: 0, Errors: 0, Skipped: 1},
		CombinedPath: "build/reports/combined.xml",
	}

	out := captureStdout(t, func() { printTestSummary(outcome) })
	for _, want := range []string{"Attempts:", "2", "passed", "combined.xml", "12 tests"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
}

func TestPrintTestSummaryFailedWithoutReports(t *testing.T) {
	outcome := &testdriver.Outcome{
		Attempts: []testdriver.Attempt{{Index: 0, ExitCode: 1}},
	}

	out := captureStdout(t, func() { printTestSummary(outcome) })
	if !strings.Contains(out, "failed") {
		t.Errorf("summary missing failure marker in:\n%s", out)
	}
	if strings.Contains(out, "Aggregate:") {
		t.Errorf("summary shows aggregate counts with no combined report:\n%s", out)
	}
}

func TestPrintSummary(t *testing.T) {
	result := &task.RunResult{
		Completed: 3,
		Cached:    2,
		Failed:    1,
		Skipped:   4,
		Duration:  1234 * time.Millisecond,
	}

	out := captureStdout(t, func() { printSummary(result) })
	for _, want := range []string{"Completed:", "Up to date:", "Failed:", "Skipped:", "Duration:"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q in:\n%s", want, out)
		}
	}
}
