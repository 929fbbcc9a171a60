// Package lint shells out to the repository's format and lint tools.
// The tools are opaque collaborators; a non-zero exit is a lint
// failure, nothing more is parsed out of them.
package lint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gt-coar/coarbuild/internal/log"
	"github.com/gt-coar/coarbuild/internal/runner"
)

// Linter runs the configured lint tool set over the repository's
// YAML and config sources.
type Linter struct {
	// Root is the repository root
	Root string
	// Prettier is the formatter command line prefix
	Prettier []string
	// YamlLint is the YAML linter command line prefix
	YamlLint []string
	// Env is the patched child environment
	Env []string
	// Runner executes the tools
	Runner runner.Runner
	// Logger for per-tool progress
	Logger *log.Logger
}

// Result is one lint tool's outcome
type Result struct {
	Tool   string
	Passed bool
	Output string
}

// yamlFiles globs the lintable YAML sources under root
func yamlFiles(root string) ([]string, error) {
	patterns := []string{
		filepath.Join(root, "specs", "*.yml"),
		filepath.Join(root, ".github", "workflows", "*.yml"),
		filepath.Join(root, "*.yml"),
	}

	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// Run formats then lints; formatting runs first so the linter sees
// canonical output, matching the checked-in style gate.
func (l *Linter) Run(ctx context.Context) ([]Result, error) {
	files, err := yamlFiles(l.Root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	var results []Result
	for _, tool := range []struct {
		name   string
		prefix []string
		argv   []string
	}{
		{"prettier", l.Prettier, runner.Argv(l.Prettier, append([]string{"--list-different", "--write"}, files...)...)},
		{"yamllint", l.YamlLint, runner.Argv(l.YamlLint, files...)},
	} {
		if len(tool.prefix) == 0 {
			continue
		}
		res, err := l.runTool(ctx, tool.name, tool.argv)
		if err != nil {
			return results, err
		}
		results = append(results, *res)
		if !res.Passed {
			return results, fmt.Errorf("%s reported issues:\n%s", tool.name, res.Output)
		}
	}

	return results, nil
}

// runTool invokes one lint tool and maps its exit status
func (l *Linter) runTool(ctx context.Context, name string, argv []string) (*Result, error) {
	if l.Logger != nil {
		l.Logger.Info("linting", "tool", name)
	}

	result, err := l.Runner.Run(ctx, runner.Command{
		Argv:   argv,
		Dir:    l.Root,
		Env:    l.Env,
		Stream: os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}

	return &Result{
		Tool:   name,
		Passed: result.ExitCode == 0,
		Output: result.Output,
	}, nil
}
