package construct

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/gt-coar/coarbuild/internal/errors"
	"github.com/gt-coar/coarbuild/internal/runner"
	"github.com/gt-coar/coarbuild/internal/variant"
)

type fakeRunner struct {
	commands []runner.Command
	onRun    func(cmd runner.Command) (*runner.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	f.commands = append(f.commands, cmd)
	if f.onRun != nil {
		return f.onRun(cmd)
	}
	return &runner.Result{ExitCode: 0}, nil
}

func TestBuildProducesChecksummedInstaller(t *testing.T) {
	pair := variant.Pair{Variant: variant.VariantCPU, Platform: variant.PlatformLinux64}
	distDir := t.TempDir()
	payload := []byte("fake installer payload")

	fake := &fakeRunner{
		onRun: func(cmd runner.Command) (*runner.Result, error) {
			installer := filepath.Join(distDir, "GTCOARLab-CPU-2026.08-Linux-x86_64.sh")
			require.NoError(t, os.WriteFile(installer, payload, 0o755))
			return &runner.Result{ExitCode: 0}, nil
		},
	}

	constructDir := t.TempDir()
	b := &Builder{
		Tool:    []string{"constructor"},
		DistDir: distDir,
		Runner:  fake,
	}

	result, err := b.Build(context.Background(), pair, constructDir)
	require.NoError(t, err)

	require.Len(t, fake.commands, 1)
	assert.Equal(t, constructDir, fake.commands[0].Dir)
	assert.Equal(t, "constructor", fake.commands[0].Argv[0])
	assert.Equal(t, ".", fake.commands[0].Argv[1])
	assert.Contains(t, fake.commands[0].Argv, "--output-dir")

	assert.Equal(t, filepath.Join(distDir, "GTCOARLab-CPU-2026.08-Linux-x86_64.sh"), result.Installer)
	assert.Equal(t, fmt.Sprintf("%x", sha256.Sum256(payload)), result.Checksums.SHA256)
	assert.NotEmpty(t, result.Checksums.BLAKE3)

	sidecar, err := os.ReadFile(result.Sidecar)
	require.NoError(t, err)
	assert.Equal(t,
		result.Checksums.SHA256+"  GTCOARLab-CPU-2026.08-Linux-x86_64.sh\n",
		string(sidecar))
}

func TestBuildToolFailurePropagates(t *testing.T) {
	pair := variant.Pair{Variant: variant.VariantGPU, Platform: variant.PlatformLinux64}
	fake := &fakeRunner{
		onRun: func(cmd runner.Command) (*runner.Result, error) {
			return &runner.Result{ExitCode: 1, Output: "missing construct.yaml"}, nil
		},
	}

	b := &Builder{Tool: []string{"constructor"}, DistDir: t.TempDir(), Runner: fake}

	_, err := b.Build(context.Background(), pair, t.TempDir())
	require.Error(t, err)

	var buildErr *builderrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, builderrors.ErrCodeConstructToolFailed, buildErr.Code)
}

func TestBuildNoInstallerProduced(t *testing.T) {
	pair := variant.Pair{Variant: variant.VariantCPU, Platform: variant.PlatformWin64}
	b := &Builder{Tool: []string{"constructor"}, DistDir: t.TempDir(), Runner: &fakeRunner{}}

	_, err := b.Build(context.Background(), pair, t.TempDir())
	require.Error(t, err)

	var buildErr *builderrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, builderrors.ErrCodeConstructNoInstaller, buildErr.Code)
}

func TestInstallerPicksLexicallyNewest(t *testing.T) {
	pair := variant.Pair{Variant: variant.VariantCPU, Platform: variant.PlatformWin64}
	distDir := t.TempDir()
	for _, name := range []string{
		"GTCOARLab-CPU-2026.07-Windows-x86_64.exe",
		"GTCOARLab-CPU-2026.08-Windows-x86_64.exe",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(distDir, name), []byte("x"), 0o644))
	}
	// Installers for the other variant must not match.
	require.NoError(t, os.WriteFile(
		filepath.Join(distDir, "GTCOARLab-GPU-2026.09-Windows-x86_64.exe"), []byte("x"), 0o644))

	b := &Builder{DistDir: distDir}
	installer, err := b.Installer(pair)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(distDir, "GTCOARLab-CPU-2026.08-Windows-x86_64.exe"), installer)
}
