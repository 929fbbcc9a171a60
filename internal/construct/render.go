package construct

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"github.com/gt-coar/coarbuild/internal/errors"
	"github.com/gt-coar/coarbuild/internal/lock"
	"github.com/gt-coar/coarbuild/internal/variant"
)

// Data is the variable set available to construct templates
type Data struct {
	// Name is the installer product name, e.g. GTCOARLab-CPU
	Name string
	// Version is the distribution version stamped into the installer
	Version string
	// Variant and Platform identify the pair being built
	Variant  string
	Platform string
	// Packages is the pinned package URL list from the lock file
	Packages []string
}

// Renderer turns a lock file plus a template directory into a construct
// directory: the complete input set for the installer builder.
type Renderer struct {
	// TemplatesDir holds the construct templates
	TemplatesDir string
	// Version is stamped into rendered recipes
	Version string
}

// Name returns the installer product name for a pair
func Name(pair variant.Pair) string {
	return "GTCOARLab-" + strings.ToUpper(string(pair.Variant))
}

// Render renders every template under TemplatesDir into outDir with the
// pair's data. Files are walked in sorted order and rendered with plain
// variable substitution, so identical inputs produce byte-identical
// output directories.
func (r *Renderer) Render(pair variant.Pair, lockPath, outDir string) error {
	explicit, err := lock.ParseExplicit(lockPath)
	if err != nil {
		return err
	}

	data := Data{
		Name:     Name(pair),
		Version:  r.Version,
		Variant:  string(pair.Variant),
		Platform: string(pair.Platform),
		Packages: explicit.Packages,
	}

	names, err := templateNames(r.TemplatesDir)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return errors.New(errors.ErrCodeConstructTemplate,
			fmt.Sprintf("no templates found under %s", r.TemplatesDir))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create construct directory: %w", err)
	}

	for _, name := range names {
		src := filepath.Join(r.TemplatesDir, name)
		dst := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))

		if err := renderFile(src, dst, data); err != nil {
			return errors.Wrap(errors.ErrCodeConstructTemplate,
				fmt.Sprintf("render template %s", name), err)
		}
	}

	return nil
}

// templateNames walks the template directory and returns relative file
// names in sorted order
func templateNames(dir string) ([]string, error) {
	var names []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		names = append(names, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk templates: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// renderFile renders a single template to dst, creating parent
// directories as needed
func renderFile(src, dst string, data Data) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	tmpl, err := template.New(filepath.Base(src)).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	if err := os.WriteFile(dst, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write rendered file: %w", err)
	}
	return nil
}
