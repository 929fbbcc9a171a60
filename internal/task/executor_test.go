package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builderrors "github.com/gt-coar/coarbuild/internal/errors"
)

// recorder tracks action invocation order across workers
type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) action(name string, err error) Action {
	return func(ctx context.Context) error {
		r.mu.Lock()
		r.order = append(r.order, name)
		r.mu.Unlock()
		return err
	}
}

func (r *recorder) ran(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.order {
		if n == name {
			return true
		}
	}
	return false
}

func (r *recorder) indexOf(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestRunRespectsDependencyOrder(t *testing.T) {
	rec := &recorder{}
	g := buildGraph(t,
		Task{Name: "lock", Action: rec.action("lock", nil)},
		Task{Name: "construct", DependsOn: []string{"lock"}, Action: rec.action("construct", nil)},
		Task{Name: "build", DependsOn: []string{"construct"}, Action: rec.action("build", nil)},
	)

	e := &Executor{Graph: g, Workers: 4}
	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Completed)
	assert.Less(t, rec.indexOf("lock"), rec.indexOf("construct"))
	assert.Less(t, rec.indexOf("construct"), rec.indexOf("build"))
}

func TestRunFailureSkipsDependentsOnly(t *testing.T) {
	rec := &recorder{}
	boom := fmt.Errorf("solver blew up")
	g := buildGraph(t,
		Task{Name: "lock:cpu", Action: rec.action("lock:cpu", boom)},
		Task{Name: "build:cpu", DependsOn: []string{"lock:cpu"}, Action: rec.action("build:cpu", nil)},
		Task{Name: "test:cpu", DependsOn: []string{"build:cpu"}, Action: rec.action("test:cpu", nil)},
		Task{Name: "lock:gpu", Action: rec.action("lock:gpu", nil)},
		Task{Name: "build:gpu", DependsOn: []string{"lock:gpu"}, Action: rec.action("build:gpu", nil)},
	)

	e := &Executor{Graph: g, Workers: 2}
	result, err := e.Run(context.Background(), nil)
	require.Error(t, err)

	var buildErr *builderrors.BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, builderrors.ErrCodeTaskFailed, buildErr.Code)

	assert.Equal(t, StateFailed, result.States["lock:cpu"])
	assert.Equal(t, StateSkipped, result.States["build:cpu"])
	assert.Equal(t, StateSkipped, result.States["test:cpu"], "skip propagates transitively")
	assert.Equal(t, StateCompleted, result.States["lock:gpu"], "independent branch keeps going")
	assert.Equal(t, StateCompleted, result.States["build:gpu"])

	assert.False(t, rec.ran("build:cpu"))
	assert.False(t, rec.ran("test:cpu"))
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	assert.ErrorIs(t, result.Errors["lock:cpu"], boom)
}

func TestRunSelectsRequestedClosure(t *testing.T) {
	rec := &recorder{}
	g := buildGraph(t,
		Task{Name: "lock", Action: rec.action("lock", nil)},
		Task{Name: "build", DependsOn: []string{"lock"}, Action: rec.action("build", nil)},
		Task{Name: "lint", Action: rec.action("lint", nil)},
	)

	e := &Executor{Graph: g, Workers: 1}
	result, err := e.Run(context.Background(), []string{"build"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Completed)
	assert.False(t, rec.ran("lint"), "unrequested tasks stay out of the run")
}

func TestRunSkipsUpToDateTasks(t *testing.T) {
	dir := t.TempDir()
	dep := filepath.Join(dir, "spec.yml")
	target := filepath.Join(dir, "out.lock")
	require.NoError(t, os.WriteFile(dep, []byte("dependencies: [python]\n"), 0o644))

	runs := 0
	lockTask := Task{
		Name:     "lock",
		FileDeps: []string{dep},
		Targets:  []string{target},
		Action: func(ctx context.Context) error {
			runs++
			return os.WriteFile(target, []byte("@EXPLICIT\n"), 0o644)
		},
	}

	store, err := OpenStore(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)

	g := buildGraph(t, lockTask)
	e := &Executor{Graph: g, Store: store, Workers: 1}

	first, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Completed)
	assert.Equal(t, 1, runs)

	// Nothing changed, so the second run comes from cache.
	second, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Cached)
	assert.Equal(t, 1, runs)

	// Touching the dep forces a rebuild.
	require.NoError(t, os.WriteFile(dep, []byte("dependencies: [python, numpy]\n"), 0o644))
	third, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Completed)
	assert.Equal(t, 2, runs)
}

func TestForgetForcesRerun(t *testing.T) {
	dir := t.TempDir()
	dep := filepath.Join(dir, "spec.yml")
	target := filepath.Join(dir, "out.lock")
	require.NoError(t, os.WriteFile(dep, []byte("x\n"), 0o644))

	runs := 0
	g := buildGraph(t, Task{
		Name:     "lock",
		FileDeps: []string{dep},
		Targets:  []string{target},
		Action: func(ctx context.Context) error {
			runs++
			return os.WriteFile(target, []byte("y\n"), 0o644)
		},
	})

	store, err := OpenStore(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	e := &Executor{Graph: g, Store: store, Workers: 1}

	_, err = e.Run(context.Background(), nil)
	require.NoError(t, err)

	second, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Cached)
	assert.Equal(t, 1, runs)

	store.Forget("lock")
	third, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Completed)
	assert.Equal(t, 2, runs, "a forgotten task runs even with unchanged inputs")
}

func TestRunMissingTargetForcesRerun(t *testing.T) {
	dir := t.TempDir()
	dep := filepath.Join(dir, "spec.yml")
	target := filepath.Join(dir, "out.lock")
	require.NoError(t, os.WriteFile(dep, []byte("x\n"), 0o644))

	runs := 0
	g := buildGraph(t, Task{
		Name:     "lock",
		FileDeps: []string{dep},
		Targets:  []string{target},
		Action: func(ctx context.Context) error {
			runs++
			return os.WriteFile(target, []byte("y\n"), 0o644)
		},
	})

	store, err := OpenStore(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	e := &Executor{Graph: g, Store: store, Workers: 1}

	_, err = e.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, os.Remove(target))

	result, err := e.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 2, runs, "a vanished target invalidates the cache entry")
}

func TestRunWritesManifests(t *testing.T) {
	manifestDir := t.TempDir()
	g := buildGraph(t,
		Task{Name: "ok", Action: func(ctx context.Context) error { return nil }},
		Task{Name: "bad", Action: func(ctx context.Context) error { return fmt.Errorf("nope") }},
	)

	e := &Executor{Graph: g, ManifestDir: manifestDir, Workers: 2}
	_, err := e.Run(context.Background(), nil)
	require.Error(t, err)

	entries, err := os.ReadDir(manifestDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one manifest per executed task")
}

func TestRunInterruptedContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := buildGraph(t, Task{Name: "lock", Action: func(ctx context.Context) error { return nil }})
	e := &Executor{Graph: g, Workers: 1}

	result, err := e.Run(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateSkipped, result.States["lock"])
}

func TestDepHashDetectsChangeAndAbsence(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yml")
	require.NoError(t, os.WriteFile(a, []byte("one"), 0o644))

	h1, err := DepHash([]string{a})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(a, []byte("two"), 0o644))
	h2, err := DepHash([]string{a})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)

	require.NoError(t, os.Remove(a))
	h3, err := DepHash([]string{a})
	require.NoError(t, err)
	assert.NotEqual(t, h2, h3, "a missing dep hashes differently from any content")
}
