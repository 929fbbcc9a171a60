// Package task is the file-dependency task graph the pipeline hangs
// off: tasks declare file deps, targets, and task dependencies; the
// executor topologically schedules them, skips up-to-date tasks, and
// runs independent branches in parallel.
package task

import (
	"context"
	"fmt"
	"sort"

	"github.com/gt-coar/coarbuild/internal/errors"
)

// Action is a task's body. It runs only after every declared
// dependency succeeded.
type Action func(ctx context.Context) error

// Task is one node in the graph
type Task struct {
	// Name is the unique task identifier, e.g. "lock:cpu:linux-64"
	Name string
	// Doc is the one-line task description
	Doc string
	// FileDeps are the input files whose content decides freshness
	FileDeps []string
	// Targets are the files the task produces
	Targets []string
	// DependsOn names tasks that must succeed first
	DependsOn []string
	// Action does the work
	Action Action
}

// Graph is a validated task DAG. Build it with the Builder; a built
// Graph is safe for concurrent read access.
type Graph struct {
	byName map[string]*Task
	names  []string // canonical (sorted) order
}

// Builder accumulates tasks before validation
type Builder struct {
	tasks []Task
}

// NewBuilder creates an empty Builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Add registers a task
func (b *Builder) Add(t Task) *Builder {
	b.tasks = append(b.tasks, t)
	return b
}

// Build validates the accumulated tasks and returns the graph.
// It rejects empty or duplicate names, unknown dependencies, and
// cycles.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{byName: make(map[string]*Task, len(b.tasks))}

	for i := range b.tasks {
		t := &b.tasks[i]
		if t.Name == "" {
			return nil, fmt.Errorf("task name is required")
		}
		if _, exists := g.byName[t.Name]; exists {
			return nil, fmt.Errorf("duplicate task name: %q", t.Name)
		}
		g.byName[t.Name] = t
		g.names = append(g.names, t.Name)
	}
	sort.Strings(g.names)

	for _, name := range g.names {
		for _, dep := range g.byName[name].DependsOn {
			if dep == name {
				return nil, fmt.Errorf("self-loop: %q depends on itself", name)
			}
			if _, ok := g.byName[dep]; !ok {
				return nil, errors.New(errors.ErrCodeTaskDepMissing,
					fmt.Sprintf("task %q depends on unknown task %q", name, dep))
			}
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

// checkAcyclic rejects any dependency cycle via coloring DFS
func (g *Graph) checkAcyclic() error {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.names))

	var visit func(name string) error
	visit = func(name string) error {
		switch color[name] {
		case gray:
			return errors.NewTaskCycleError(name)
		case black:
			return nil
		}
		color[name] = gray
		deps := append([]string{}, g.byName[name].DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	for _, name := range g.names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns every task name in canonical order
func (g *Graph) Names() []string {
	return append([]string{}, g.names...)
}

// Get returns a task by name
func (g *Graph) Get(name string) (*Task, bool) {
	t, ok := g.byName[name]
	return t, ok
}

// Resolve expands the requested names to their transitive dependency
// closure, in canonical order. An empty request selects every task.
func (g *Graph) Resolve(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return g.Names(), nil
	}

	selected := make(map[string]bool)
	var mark func(name string) error
	mark = func(name string) error {
		t, ok := g.byName[name]
		if !ok {
			return errors.New(errors.ErrCodeTaskUnknown,
				fmt.Sprintf("unknown task: %q", name))
		}
		if selected[name] {
			return nil
		}
		selected[name] = true
		for _, dep := range t.DependsOn {
			if err := mark(dep); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range requested {
		if err := mark(name); err != nil {
			return nil, err
		}
	}

	var names []string
	for _, name := range g.names {
		if selected[name] {
			names = append(names, name)
		}
	}
	return names, nil
}

// dependents returns the direct reverse edges of name, in canonical order
func (g *Graph) dependents(name string) []string {
	var out []string
	for _, candidate := range g.names {
		for _, dep := range g.byName[candidate].DependsOn {
			if dep == name {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}
