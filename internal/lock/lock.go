package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gt-coar/coarbuild/internal/envspec"
	"github.com/gt-coar/coarbuild/internal/errors"
	"github.com/gt-coar/coarbuild/internal/log"
	"github.com/gt-coar/coarbuild/internal/runner"
	"github.com/gt-coar/coarbuild/internal/variant"
)

// Orchestrator drives the external lock tool: for each buildable pair
// it composes the ordered spec-file list and produces a fully pinned
// lock file under LocksDir.
type Orchestrator struct {
	// Layout locates the specification files
	Layout variant.Layout
	// LocksDir is where lock files are written
	LocksDir string
	// Tool is the lock tool command line prefix
	Tool []string
	// Env is the patched child environment
	Env []string
	// Runner executes the tool
	Runner runner.Runner
	// Logger for per-pair progress
	Logger *log.Logger
}

// Path returns the lock file path for a pair
func (o *Orchestrator) Path(pair variant.Pair) string {
	return filepath.Join(o.LocksDir, pair.Slug()+".conda.lock")
}

// Lock generates the lock file for one pair by invoking the external
// lock tool against the composed spec list. The tool's non-zero exit
// propagates as a task failure.
func (o *Orchestrator) Lock(ctx context.Context, pair variant.Pair) error {
	specs := o.Layout.ComposedSpecs(pair)

	// The pair spec gates the whole pipeline; the rest must exist and
	// parse once the pair is buildable.
	deps := 0
	for _, spec := range specs {
		parsed, err := envspec.Load(spec)
		if err != nil {
			return err
		}
		if err := parsed.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeSpecInvalid,
				fmt.Sprintf("invalid spec file %s", spec), err)
		}
		deps += len(parsed.Dependencies)
	}
	if deps == 0 {
		return errors.New(errors.ErrCodeSpecInvalid,
			fmt.Sprintf("composed specs for %s declare no dependencies", pair.String()))
	}

	if err := os.MkdirAll(o.LocksDir, 0o755); err != nil {
		return fmt.Errorf("create locks directory: %w", err)
	}

	args := []string{"--platform", string(pair.Platform)}
	for _, spec := range specs {
		abs, err := filepath.Abs(spec)
		if err != nil {
			return fmt.Errorf("resolve spec path %s: %w", spec, err)
		}
		args = append(args, "--file", abs)
	}
	args = append(args, "--filename-template", string(pair.Variant)+"-{platform}.conda.lock")

	if o.Logger != nil {
		o.Logger.Info("locking environment", "pair", pair.String(), "specs", len(specs))
	}

	result, err := o.Runner.Run(ctx, runner.Command{
		Argv: runner.Argv(o.Tool, args...),
		Dir:  o.LocksDir,
		Env:  o.Env,
	})
	if err != nil {
		return errors.NewLockToolError(pair.String(), err)
	}
	if result.ExitCode != 0 {
		return errors.NewLockToolError(pair.String(),
			fmt.Errorf("exit code %d\n%s", result.ExitCode, result.Output))
	}

	if _, err := os.Stat(o.Path(pair)); err != nil {
		return errors.New(errors.ErrCodeLockNotFound,
			fmt.Sprintf("lock tool succeeded but %s was not produced", o.Path(pair)))
	}

	if o.Logger != nil {
		o.Logger.Info("locked environment", "pair", pair.String(),
			"lockfile", o.Path(pair), "duration", result.Duration)
	}
	return nil
}
