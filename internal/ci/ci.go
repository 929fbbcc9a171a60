// Package ci renders the continuous-integration workflow from the set
// of buildable (variant, platform) pairs, so CI always matches what the
// specs on disk can actually build.
package ci

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/gt-coar/coarbuild/internal/variant"
)

// MatrixEntry is one CI job matrix row
type MatrixEntry struct {
	Variant  string
	Platform string
	Slug     string
	// RunsOn maps the build platform to a CI runner label
	RunsOn string
}

// Data is the variable set available to the workflow template
type Data struct {
	Version string
	Matrix  []MatrixEntry
}

// Renderer renders the CI workflow file
type Renderer struct {
	// TemplatePath is the workflow template
	TemplatePath string
	// OutputPath is the rendered workflow destination
	OutputPath string
	// Version is stamped into the workflow header
	Version string
}

// runnerLabels maps build platforms to CI runner labels
var runnerLabels = map[variant.Platform]string{
	variant.PlatformLinux64: "ubuntu-latest",
	variant.PlatformOSX64:   "macos-latest",
	variant.PlatformWin64:   "windows-latest",
}

// Render renders the workflow for the given pairs and writes it to
// OutputPath. Rendering is deterministic: pairs arrive in enumeration
// order and the template uses plain variable substitution.
func (r *Renderer) Render(pairs []variant.Pair) error {
	data := Data{Version: r.Version}
	for _, pair := range pairs {
		data.Matrix = append(data.Matrix, MatrixEntry{
			Variant:  string(pair.Variant),
			Platform: string(pair.Platform),
			Slug:     pair.Slug(),
			RunsOn:   runnerLabels[pair.Platform],
		})
	}

	raw, err := os.ReadFile(r.TemplatePath)
	if err != nil {
		return fmt.Errorf("read workflow template: %w", err)
	}

	tmpl, err := template.New(filepath.Base(r.TemplatePath)).
		Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return fmt.Errorf("parse workflow template: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Errorf("execute workflow template: %w", err)
	}

	// The rendered document must at least be well-formed YAML before
	// it replaces the checked-in workflow.
	var doc map[string]interface{}
	if err := yaml.Unmarshal([]byte(b.String()), &doc); err != nil {
		return fmt.Errorf("rendered workflow is not valid YAML: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.OutputPath), 0o755); err != nil {
		return fmt.Errorf("create workflow directory: %w", err)
	}
	if err := os.WriteFile(r.OutputPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write workflow: %w", err)
	}

	return nil
}
