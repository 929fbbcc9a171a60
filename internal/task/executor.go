package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gt-coar/coarbuild/internal/errors"
	"github.com/gt-coar/coarbuild/internal/log"
)

// Executor schedules a graph: tasks run when every dependency is
// completed or cached, independent tasks run in parallel up to the
// worker bound, and a failure skips its dependents while unrelated
// branches keep going.
type Executor struct {
	Graph *Graph
	// Store is the freshness store; nil disables up-to-date skipping
	Store *Store
	// ManifestDir receives per-invocation run manifests; empty disables
	ManifestDir string
	// Workers bounds parallelism; values below 1 mean serial
	Workers int
	// Logger for per-task progress
	Logger *log.Logger
}

// RunResult aggregates one execution
type RunResult struct {
	States    map[string]State
	Errors    map[string]error
	Completed int
	Cached    int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// Run executes the requested tasks (empty means all) and their
// transitive dependencies. The returned error summarizes failures; the
// RunResult is always populated.
func (e *Executor) Run(ctx context.Context, requested []string) (*RunResult, error) {
	selected, err := e.Graph.Resolve(requested)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &RunResult{
		States: make(map[string]State, len(selected)),
		Errors: make(map[string]error),
	}
	for _, name := range selected {
		result.States[name] = StatePending
	}

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	var mu sync.Mutex

	for {
		if ctx.Err() != nil {
			break
		}

		ready := e.readyTasks(selected, result, &mu)
		if len(ready) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(workers)
		for _, name := range ready {
			name := name
			mu.Lock()
			result.States[name] = StateRunning
			mu.Unlock()

			g.Go(func() error {
				state, taskErr := e.runOne(ctx, name)
				mu.Lock()
				result.States[name] = state
				if taskErr != nil {
					result.Errors[name] = taskErr
				}
				mu.Unlock()
				return nil
			})
		}
		// Task failures land in result.Errors, never in the group.
		_ = g.Wait()

		e.propagateSkips(selected, result, &mu)
	}

	// Anything still pending was blocked by a failure or the interrupt.
	mu.Lock()
	for _, name := range selected {
		if result.States[name] == StatePending {
			result.States[name] = StateSkipped
		}
	}
	for _, name := range selected {
		switch result.States[name] {
		case StateCompleted:
			result.Completed++
		case StateCached:
			result.Cached++
		case StateFailed:
			result.Failed++
		case StateSkipped:
			result.Skipped++
		}
	}
	mu.Unlock()
	result.Duration = time.Since(start)

	if e.Store != nil {
		if err := e.Store.Save(); err != nil {
			return result, err
		}
	}

	if ctx.Err() != nil {
		return result, fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	if result.Failed > 0 {
		return result, errors.New(errors.ErrCodeTaskFailed,
			fmt.Sprintf("%d task(s) failed, %d skipped", result.Failed, result.Skipped))
	}
	return result, nil
}

// readyTasks returns pending tasks whose dependencies are all
// successful, in canonical order
func (e *Executor) readyTasks(selected []string, result *RunResult, mu *sync.Mutex) []string {
	mu.Lock()
	defer mu.Unlock()

	var ready []string
	for _, name := range selected {
		if result.States[name] != StatePending {
			continue
		}
		t, _ := e.Graph.Get(name)
		ok := true
		for _, dep := range t.DependsOn {
			if !result.States[dep].successful() {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, name)
		}
	}
	return ready
}

// runOne executes a single task: freshness check, action, record
func (e *Executor) runOne(ctx context.Context, name string) (State, error) {
	t, _ := e.Graph.Get(name)

	if e.Store != nil {
		fresh, err := e.Store.UpToDate(t)
		if err != nil {
			return StateFailed, err
		}
		if fresh {
			if e.Logger != nil {
				e.Logger.Debug("task up to date", "task", name)
			}
			return StateCached, nil
		}
	}

	var manifest *RunManifest
	if e.ManifestDir != "" {
		manifest = NewManifest(name)
	}

	if e.Logger != nil {
		e.Logger.Info("task starting", "task", name, "doc", t.Doc)
	}

	err := t.Action(ctx)
	state := StateCompleted
	if err != nil {
		state = StateFailed
	}

	if manifest != nil {
		manifest.Finish(state, err)
		if saveErr := manifest.Save(e.ManifestDir); saveErr != nil && e.Logger != nil {
			e.Logger.Warn("failed to save run manifest", "task", name, "error", saveErr.Error())
		}
	}

	if err != nil {
		if e.Logger != nil {
			e.Logger.WithError(err).Error("task failed", "task", name)
		}
		return StateFailed, err
	}

	if e.Store != nil && len(t.FileDeps) > 0 {
		if recErr := e.Store.Record(t); recErr != nil {
			return StateFailed, recErr
		}
	}

	if e.Logger != nil {
		e.Logger.Info("task completed", "task", name)
	}
	return StateCompleted, nil
}

// propagateSkips transitively marks pending dependents of failed or
// skipped tasks as skipped
func (e *Executor) propagateSkips(selected []string, result *RunResult, mu *sync.Mutex) {
	mu.Lock()
	defer mu.Unlock()

	var queue []string
	for _, name := range selected {
		if st := result.States[name]; st == StateFailed || st == StateSkipped {
			queue = append(queue, name)
		}
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, dependent := range e.Graph.dependents(name) {
			if st, tracked := result.States[dependent]; tracked && st == StatePending {
				result.States[dependent] = StateSkipped
				queue = append(queue, dependent)
			}
		}
	}
}
