package construct

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gt-coar/coarbuild/internal/errors"
	"github.com/gt-coar/coarbuild/internal/log"
	"github.com/gt-coar/coarbuild/internal/runner"
	"github.com/gt-coar/coarbuild/internal/variant"
)

// Builder invokes the external constructor tool against a rendered
// construct directory and publishes the resulting installer plus its
// checksum sidecar.
type Builder struct {
	// Tool is the constructor command line prefix
	Tool []string
	// DistDir receives the built installers
	DistDir string
	// Env is the patched child environment
	Env []string
	// Runner executes the tool
	Runner runner.Runner
	// Logger for per-pair progress
	Logger *log.Logger
}

// BuildResult describes one produced installer
type BuildResult struct {
	Installer string
	Checksums *Checksums
	Sidecar   string
}

// Build runs the constructor for one pair and checksums the result
func (b *Builder) Build(ctx context.Context, pair variant.Pair, constructDir string) (*BuildResult, error) {
	if err := os.MkdirAll(b.DistDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dist directory: %w", err)
	}

	absDist, err := filepath.Abs(b.DistDir)
	if err != nil {
		return nil, fmt.Errorf("resolve dist path: %w", err)
	}

	if b.Logger != nil {
		b.Logger.Info("building installer", "pair", pair.String(), "construct", constructDir)
	}

	result, err := b.Runner.Run(ctx, runner.Command{
		Argv: runner.Argv(b.Tool, ".", "--output-dir", absDist),
		Dir:  constructDir,
		Env:  b.Env,
	})
	if err != nil {
		return nil, errors.NewConstructToolError(pair.String(), err)
	}
	if result.ExitCode != 0 {
		return nil, errors.NewConstructToolError(pair.String(),
			fmt.Errorf("exit code %d\n%s", result.ExitCode, result.Output))
	}

	installer, err := b.Installer(pair)
	if err != nil {
		return nil, err
	}

	sums, err := ChecksumFile(installer)
	if err != nil {
		return nil, err
	}
	sidecar, err := WriteChecksumFile(installer, sums)
	if err != nil {
		return nil, err
	}

	if b.Logger != nil {
		b.Logger.Info("built installer", "pair", pair.String(),
			"installer", installer, "sha256", sums.SHA256, "duration", result.Duration)
	}

	return &BuildResult{Installer: installer, Checksums: sums, Sidecar: sidecar}, nil
}

// Installer locates the constructor's output for a pair. The
// constructor names files itself, so match on product name and the
// platform extension and take the lexically newest.
func (b *Builder) Installer(pair variant.Pair) (string, error) {
	pattern := filepath.Join(b.DistDir, Name(pair)+"*"+pair.Platform.InstallerExt())
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("glob installers: %w", err)
	}
	if len(matches) == 0 {
		return "", errors.New(errors.ErrCodeConstructNoInstaller,
			fmt.Sprintf("constructor succeeded but no installer matches %s", pattern))
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}
