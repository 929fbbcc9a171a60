package envspec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	builderrors "github.com/gt-coar/coarbuild/internal/errors"
)

// EnvSpec is one declarative environment specification file: an
// abstract dependency list the lock tool resolves into pinned packages.
type EnvSpec struct {
	Name         string   `yaml:"name,omitempty"`
	Channels     []string `yaml:"channels,omitempty"`
	Dependencies []string `yaml:"dependencies"`
}

// Repository loads EnvSpec files
type Repository interface {
	// Load reads an EnvSpec from a file
	Load(path string) (*EnvSpec, error)
}

// FileRepository implements Repository for file-based storage
type FileRepository struct{}

// NewFileRepository creates a new file-based spec repository
func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

// Load reads an EnvSpec from a YAML file
func (r *FileRepository) Load(path string) (*EnvSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, builderrors.NewSpecNotFoundError(path)
		}
		return nil, fmt.Errorf("read spec file: %w", err)
	}

	var spec EnvSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, builderrors.NewFileUnmarshalError(path, "YAML", err)
	}

	return &spec, nil
}

// Validate checks structural requirements common to all spec files.
// An empty dependency list is legal for a single file; base files may
// carry only channels. The composed spec list must still declare at
// least one dependency overall, which the caller checks.
func (s *EnvSpec) Validate() error {
	for i, dep := range s.Dependencies {
		if dep == "" {
			return builderrors.New(builderrors.ErrCodeSpecInvalid,
				fmt.Sprintf("dependency %d is empty", i))
		}
	}
	return nil
}

// Default instance for package-level functions
var defaultRepository = NewFileRepository()

// Load reads an EnvSpec from a YAML file using the default repository.
func Load(path string) (*EnvSpec, error) {
	return defaultRepository.Load(path)
}

// Compile-time verification that FileRepository implements Repository
var _ Repository = (*FileRepository)(nil)
