// Package pipeline wires the build components into the task graph:
// lint, then per-pair lock -> construct -> build chains, the CI
// workflow render, and installer tests for the host platform.
package pipeline

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/gt-coar/coarbuild/internal/ci"
	"github.com/gt-coar/coarbuild/internal/config"
	"github.com/gt-coar/coarbuild/internal/construct"
	"github.com/gt-coar/coarbuild/internal/lint"
	"github.com/gt-coar/coarbuild/internal/lock"
	"github.com/gt-coar/coarbuild/internal/log"
	"github.com/gt-coar/coarbuild/internal/runner"
	"github.com/gt-coar/coarbuild/internal/task"
	"github.com/gt-coar/coarbuild/internal/testdriver"
	"github.com/gt-coar/coarbuild/internal/variant"
	"github.com/gt-coar/coarbuild/internal/version"
)

// Pipeline assembles the task graph from the configuration
type Pipeline struct {
	Config *config.Config
	Logger *log.Logger
	Runner runner.Runner
}

// New creates a Pipeline with the default subprocess runner
func New(cfg *config.Config, logger *log.Logger) *Pipeline {
	return &Pipeline{Config: cfg, Logger: logger, Runner: runner.New()}
}

// Layout returns the spec-file layout
func (p *Pipeline) Layout() variant.Layout {
	return variant.Layout{SpecsDir: p.Config.Abs(p.Config.Paths.Specs)}
}

// Pairs returns the buildable pairs: the enumeration cross-product
// filtered by spec-file existence
func (p *Pipeline) Pairs() []variant.Pair {
	return p.Layout().ExistingPairs()
}

// HostPlatform maps the running OS to a build platform
func HostPlatform() variant.Platform {
	switch runtime.GOOS {
	case "darwin":
		return variant.PlatformOSX64
	case "windows":
		return variant.PlatformWin64
	default:
		return variant.PlatformLinux64
	}
}

// Locker builds the lock orchestrator
func (p *Pipeline) Locker() *lock.Orchestrator {
	return &lock.Orchestrator{
		Layout:   p.Layout(),
		LocksDir: p.Config.Abs(p.Config.Paths.Locks),
		Tool:     p.Config.Tools.Lock,
		Env:      p.Config.ChildEnv(),
		Runner:   p.Runner,
		Logger:   p.Logger,
	}
}

// Renderer builds the construct renderer
func (p *Pipeline) Renderer() *construct.Renderer {
	return &construct.Renderer{
		TemplatesDir: filepath.Join(p.Config.Abs(p.Config.Paths.Templates), "construct"),
		Version:      version.GetInfo().Short(),
	}
}

// Builder builds the installer builder
func (p *Pipeline) Builder() *construct.Builder {
	return &construct.Builder{
		Tool:    p.Config.Tools.Constructor,
		DistDir: p.Config.Abs(p.Config.Paths.Dist),
		Env:     p.Config.ChildEnv(),
		Runner:  p.Runner,
		Logger:  p.Logger,
	}
}

// CIRenderer builds the workflow renderer
func (p *Pipeline) CIRenderer() *ci.Renderer {
	return &ci.Renderer{
		TemplatePath: filepath.Join(p.Config.Abs(p.Config.Paths.Templates), "ci.yml.tmpl"),
		OutputPath:   p.Config.Abs(p.Config.Paths.Workflow),
		Version:      version.GetInfo().Short(),
	}
}

// Linter builds the lint orchestrator
func (p *Pipeline) Linter() *lint.Linter {
	return &lint.Linter{
		Root:     p.Config.Root,
		Prettier: p.Config.Tools.Prettier,
		YamlLint: p.Config.Tools.YamlLint,
		Env:      p.Config.ChildEnv(),
		Runner:   p.Runner,
		Logger:   p.Logger,
	}
}

// TestDriver builds the installer test driver. The installer path
// reaches the runner through its environment.
func (p *Pipeline) TestDriver(installer string) *testdriver.Driver {
	env := p.Config.ChildEnv()
	if installer != "" {
		env = append(env, "COARBUILD_INSTALLER="+installer)
	}
	return &testdriver.Driver{
		Tool:       p.Config.Tools.TestRunner,
		ExtraArgs:  p.Config.TestArgs,
		Retries:    p.Config.TestRetries,
		ReportsDir: p.Config.Abs(p.Config.Paths.Reports),
		Dir:        p.Config.Root,
		Env:        env,
		Runner:     p.Runner,
		Logger:     p.Logger,
	}
}

// constructDir names the rendered construct directory for a pair
func (p *Pipeline) constructDir(pair variant.Pair) string {
	return filepath.Join(p.Config.Abs(p.Config.Paths.Build), "constructs", pair.Slug())
}

// Graph assembles the full task graph. Pairs without a spec file on
// disk contribute no tasks at all.
func (p *Pipeline) Graph() (*task.Graph, error) {
	b := task.NewBuilder()
	layout := p.Layout()
	pairs := p.Pairs()
	host := HostPlatform()

	if !p.Config.SkipLint {
		linter := p.Linter()
		b.Add(task.Task{
			Name: "lint",
			Doc:  "format and lint YAML sources",
			Action: func(ctx context.Context) error {
				_, err := linter.Run(ctx)
				return err
			},
		})
	}

	locker := p.Locker()
	renderer := p.Renderer()
	builder := p.Builder()

	ciRenderer := p.CIRenderer()
	var ciDeps []string
	// The pair-spec files are freshness inputs of the ci task: a pair
	// appearing or vanishing changes the declared set and so the hash.
	ciFileDeps := []string{ciRenderer.TemplatePath}
	for _, pair := range pairs {
		ciFileDeps = append(ciFileDeps, layout.PairSpec(pair))
		lockName := "lock:" + pair.String()
		constructName := "construct:" + pair.String()
		buildName := "build:" + pair.String()
		ciDeps = append(ciDeps, lockName)

		b.Add(task.Task{
			Name:     lockName,
			Doc:      "pin the " + pair.Slug() + " environment",
			FileDeps: layout.ComposedSpecs(pair),
			Targets:  []string{locker.Path(pair)},
			Action: func(ctx context.Context) error {
				return locker.Lock(ctx, pair)
			},
		})

		b.Add(task.Task{
			Name:      constructName,
			Doc:       "render constructor inputs for " + pair.Slug(),
			DependsOn: []string{lockName},
			FileDeps:  []string{locker.Path(pair)},
			Action: func(ctx context.Context) error {
				return renderer.Render(pair, locker.Path(pair), p.constructDir(pair))
			},
		})

		b.Add(task.Task{
			Name:      buildName,
			Doc:       "build the " + pair.Slug() + " installer",
			DependsOn: []string{constructName},
			Action: func(ctx context.Context) error {
				_, err := builder.Build(ctx, pair, p.constructDir(pair))
				return err
			},
		})

		if pair.Platform == host {
			b.Add(task.Task{
				Name:      "test:" + pair.String(),
				Doc:       "test the " + pair.Slug() + " installer",
				DependsOn: []string{buildName},
				Action: func(ctx context.Context) error {
					installer, err := builder.Installer(pair)
					if err != nil {
						return err
					}
					_, err = p.TestDriver(installer).Run(ctx)
					return err
				},
			})
		}
	}

	b.Add(task.Task{
		Name:      "ci",
		Doc:       "render the CI workflow from buildable pairs",
		DependsOn: ciDeps,
		FileDeps:  ciFileDeps,
		Targets:   []string{ciRenderer.OutputPath},
		Action: func(ctx context.Context) error {
			return ciRenderer.Render(pairs)
		},
	})

	return b.Build()
}

// Executor assembles the task executor over the graph
func (p *Pipeline) Executor(g *task.Graph) (*task.Executor, error) {
	store, err := task.OpenStore(filepath.Join(p.Config.Abs(p.Config.Paths.Cache), "tasks.json"))
	if err != nil {
		return nil, err
	}
	return &task.Executor{
		Graph:       g,
		Store:       store,
		ManifestDir: filepath.Join(p.Config.Abs(p.Config.Paths.Cache), "runs"),
		Workers:     p.Config.Workers(),
		Logger:      p.Logger,
	}, nil
}
