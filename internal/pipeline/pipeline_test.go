package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gt-coar/coarbuild/internal/config"
	"github.com/gt-coar/coarbuild/internal/runner"
	"github.com/gt-coar/coarbuild/internal/variant"
)

// seedRepo creates a repository with spec files for the given pairs
func seedRepo(t *testing.T, pairs ...variant.Pair) *config.Config {
	t.Helper()
	root := t.TempDir()
	specs := filepath.Join(root, "specs")
	require.NoError(t, os.MkdirAll(specs, 0o755))

	for _, name := range []string{"_base.yml", "core.yml"} {
		require.NoError(t, os.WriteFile(filepath.Join(specs, name), []byte("dependencies: [python]\n"), 0o644))
	}
	platforms := map[variant.Platform]bool{}
	for _, pair := range pairs {
		platforms[pair.Platform] = true
		require.NoError(t, os.WriteFile(filepath.Join(specs, pair.Slug()+".yml"),
			[]byte("dependencies: []\n"), 0o644))
	}
	for platform := range platforms {
		require.NoError(t, os.WriteFile(filepath.Join(specs, string(platform)+".yml"),
			[]byte("dependencies: []\n"), 0o644))
	}

	return config.Default(root)
}

func TestGraphWiresPerPairChains(t *testing.T) {
	host := HostPlatform()
	cfg := seedRepo(t,
		variant.Pair{Variant: variant.VariantCPU, Platform: host},
		variant.Pair{Variant: variant.VariantGPU, Platform: host},
	)
	p := New(cfg, nil)

	g, err := p.Graph()
	require.NoError(t, err)

	names := g.Names()
	assert.Contains(t, names, "lint")
	assert.Contains(t, names, "ci")
	for _, pairName := range []string{"cpu:" + string(host), "gpu:" + string(host)} {
		assert.Contains(t, names, "lock:"+pairName)
		assert.Contains(t, names, "construct:"+pairName)
		assert.Contains(t, names, "build:"+pairName)
		assert.Contains(t, names, "test:"+pairName)
	}

	build, ok := g.Get("build:cpu:" + string(host))
	require.True(t, ok)
	assert.Equal(t, []string{"construct:cpu:" + string(host)}, build.DependsOn)

	ci, ok := g.Get("ci")
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]string{"lock:cpu:" + string(host), "lock:gpu:" + string(host)},
		ci.DependsOn)
}

func TestGraphOmitsTestsForOtherPlatforms(t *testing.T) {
	// Pick a platform that is never the host in this test process.
	other := variant.PlatformWin64
	if HostPlatform() == variant.PlatformWin64 {
		other = variant.PlatformLinux64
	}

	cfg := seedRepo(t, variant.Pair{Variant: variant.VariantCPU, Platform: other})
	p := New(cfg, nil)

	g, err := p.Graph()
	require.NoError(t, err)

	assert.Contains(t, g.Names(), "build:cpu:"+string(other))
	assert.NotContains(t, g.Names(), "test:cpu:"+string(other))
}

func TestGraphSkipLint(t *testing.T) {
	cfg := seedRepo(t, variant.Pair{Variant: variant.VariantCPU, Platform: HostPlatform()})
	cfg.SkipLint = true
	p := New(cfg, nil)

	g, err := p.Graph()
	require.NoError(t, err)
	assert.NotContains(t, g.Names(), "lint")
}

func TestGraphNoSpecsMeansNoPairTasks(t *testing.T) {
	cfg := config.Default(t.TempDir())
	p := New(cfg, nil)

	g, err := p.Graph()
	require.NoError(t, err)

	// Only lint and ci remain when no pair spec exists.
	assert.Equal(t, []string{"ci", "lint"}, g.Names())
}

// lockToolRunner emulates the lock tool writing its output into the cwd
type lockToolRunner struct{}

func (lockToolRunner) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	var platform, template string
	for i, a := range cmd.Argv {
		switch a {
		case "--platform":
			platform = cmd.Argv[i+1]
		case "--filename-template":
			template = cmd.Argv[i+1]
		}
	}
	name := strings.ReplaceAll(template, "{platform}", platform)
	if err := os.WriteFile(filepath.Join(cmd.Dir, name), []byte("@EXPLICIT\nhttps://pkg\n"), 0o644); err != nil {
		return nil, err
	}
	return &runner.Result{ExitCode: 0}, nil
}

func TestCITaskReRendersWhenPairSetChanges(t *testing.T) {
	cpu := variant.Pair{Variant: variant.VariantCPU, Platform: variant.PlatformLinux64}
	gpu := variant.Pair{Variant: variant.VariantGPU, Platform: variant.PlatformLinux64}
	cfg := seedRepo(t, cpu)

	templatePath := filepath.Join(cfg.Root, "templates", "ci.yml.tmpl")
	require.NoError(t, os.MkdirAll(filepath.Dir(templatePath), 0o755))
	require.NoError(t, os.WriteFile(templatePath, []byte(
		"jobs:\n{{- range .Matrix}}\n  - {{.Slug}}\n{{- end}}\n"), 0o644))

	runCI := func() {
		p := New(cfg, nil)
		p.Runner = lockToolRunner{}
		g, err := p.Graph()
		require.NoError(t, err)
		e, err := p.Executor(g)
		require.NoError(t, err)
		_, err = e.Run(context.Background(), []string{"ci"})
		require.NoError(t, err)
	}

	workflow := cfg.Abs(cfg.Paths.Workflow)
	runCI()
	first, err := os.ReadFile(workflow)
	require.NoError(t, err)
	assert.Contains(t, string(first), "cpu-linux-64")
	assert.NotContains(t, string(first), "gpu-linux-64")

	// A new pair spec appears; the next run must not treat ci as fresh.
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Root, "specs", gpu.Slug()+".yml"),
		[]byte("dependencies: [cudatoolkit]\n"), 0o644))

	runCI()
	second, err := os.ReadFile(workflow)
	require.NoError(t, err)
	assert.Contains(t, string(second), "gpu-linux-64")
}

func TestLockTaskDeclaresFreshnessInputs(t *testing.T) {
	host := HostPlatform()
	pair := variant.Pair{Variant: variant.VariantCPU, Platform: host}
	cfg := seedRepo(t, pair)
	p := New(cfg, nil)

	g, err := p.Graph()
	require.NoError(t, err)

	lockTask, ok := g.Get("lock:" + pair.String())
	require.True(t, ok)
	assert.Len(t, lockTask.FileDeps, 4, "base, core, platform, and pair specs")
	assert.Equal(t, []string{p.Locker().Path(pair)}, lockTask.Targets)
}
