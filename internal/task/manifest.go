package task

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunManifest is the audit record of one task invocation
type RunManifest struct {
	ID        string    `json:"id"`
	Task      string    `json:"task"`
	State     string    `json:"state"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Error     string    `json:"error,omitempty"`
}

// NewManifest creates a manifest for a starting task
func NewManifest(taskName string) *RunManifest {
	return &RunManifest{
		ID:        uuid.New().String(),
		Task:      taskName,
		StartTime: time.Now().UTC(),
	}
}

// Finish stamps the terminal state onto the manifest
func (m *RunManifest) Finish(state State, err error) {
	m.EndTime = time.Now().UTC()
	m.State = state.String()
	if err != nil {
		m.Error = err.Error()
	}
}

// Save writes the manifest as JSON under dir, named by its ID
func (m *RunManifest) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(dir, m.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
