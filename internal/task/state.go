package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// State is a task's scheduling state
type State int

const (
	// StatePending means the task has not started
	StatePending State = iota
	// StateRunning means the task's action is executing
	StateRunning
	// StateCompleted means the action succeeded
	StateCompleted
	// StateCached means the task was up to date and skipped
	StateCached
	// StateFailed means the action returned an error
	StateFailed
	// StateSkipped means a dependency failed upstream
	StateSkipped
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCached:
		return "cached"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// successful reports whether the state satisfies dependents
func (s State) successful() bool {
	return s == StateCompleted || s == StateCached
}

// Store persists per-task freshness hashes between runs, so unchanged
// tasks are skipped. It is a plain JSON file under the cache directory.
// Safe for concurrent use by executor workers.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]storeEntry
}

type storeEntry struct {
	DepHash string    `json:"dep_hash"`
	RunAt   time.Time `json:"run_at"`
}

// OpenStore loads (or initializes) the freshness store at path
func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, entries: make(map[string]storeEntry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read task state: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		// A corrupt state file only costs a rebuild; start fresh.
		s.entries = make(map[string]storeEntry)
	}
	return s, nil
}

// Save writes the store back to disk
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write task state: %w", err)
	}
	return nil
}

// DepHash computes the content hash over a task's declared file deps.
// Paths are hashed in sorted order together with their contents, so
// the hash changes when any input file changes, appears, or vanishes.
func DepHash(fileDeps []string) (string, error) {
	paths := append([]string{}, fileDeps...)
	sort.Strings(paths)

	hasher := blake3.New()
	for _, path := range paths {
		fmt.Fprintf(hasher, "%s\x00", path)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				hasher.Write([]byte("\x00absent\x00"))
				continue
			}
			return "", fmt.Errorf("hash dep %s: %w", path, err)
		}
		hasher.Write(data)
		hasher.Write([]byte{0})
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// UpToDate reports whether a task can be skipped: it has declared
// deps and targets, every target exists, and the dep hash matches the
// stored one. Tasks without targets always run.
func (s *Store) UpToDate(t *Task) (bool, error) {
	if len(t.Targets) == 0 || len(t.FileDeps) == 0 {
		return false, nil
	}
	for _, target := range t.Targets {
		if _, err := os.Stat(target); err != nil {
			return false, nil
		}
	}

	s.mu.Lock()
	entry, ok := s.entries[t.Name]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}

	hash, err := DepHash(t.FileDeps)
	if err != nil {
		return false, err
	}
	return hash == entry.DepHash, nil
}

// Record stores the task's current dep hash after a successful run
func (s *Store) Record(t *Task) error {
	hash, err := DepHash(t.FileDeps)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[t.Name] = storeEntry{DepHash: hash, RunAt: time.Now().UTC()}
	s.mu.Unlock()
	return nil
}

// Forget drops a task's freshness entry, forcing its next run
func (s *Store) Forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}
