package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Environment variable names consumed by coarbuild.
const (
	EnvCI          = "CI"
	EnvSkipLint    = "COARBUILD_SKIP_LINT"
	EnvTestRetries = "COARBUILD_TEST_RETRIES"
	EnvTestArgs    = "COARBUILD_TEST_ARGS"
	EnvJobs        = "COARBUILD_JOBS"
	EnvLogLevel    = "COARBUILD_LOG_LEVEL"
)

// Config represents the complete coarbuild configuration.
// Values load from an optional coarbuild.yml, then environment
// variables; environment always wins.
type Config struct {
	// Root is the repository root all relative paths hang off
	Root string `yaml:"-"`

	// CI switches to non-interactive, machine-readable output
	CI bool `yaml:"ci"`

	// SkipLint disables the lint tasks
	SkipLint bool `yaml:"skip_lint"`

	// TestRetries is the installer test retry budget (attempts = retries+1)
	TestRetries int `yaml:"test_retries"`

	// TestArgs are extra arguments forwarded to the test runner
	TestArgs []string `yaml:"test_args"`

	// Jobs bounds parallel task execution; 0 means GOMAXPROCS
	Jobs int `yaml:"jobs"`

	// LogLevel is the minimum log level (debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	Paths Paths `yaml:"paths"`
	Tools Tools `yaml:"tools"`
}

// Paths configures the repository layout
type Paths struct {
	Specs     string `yaml:"specs"`
	Locks     string `yaml:"locks"`
	Templates string `yaml:"templates"`
	Build     string `yaml:"build"`
	Dist      string `yaml:"dist"`
	Reports   string `yaml:"reports"`
	Cache     string `yaml:"cache"`
	Workflow  string `yaml:"workflow"`
	CondaRC   string `yaml:"condarc"`
}

// Tools configures the external tool command lines
type Tools struct {
	Lock        []string `yaml:"lock"`
	Constructor []string `yaml:"constructor"`
	TestRunner  []string `yaml:"test_runner"`
	Prettier    []string `yaml:"prettier"`
	YamlLint    []string `yaml:"yamllint"`
}

// Default returns the configuration used when no file or environment
// overrides are present, rooted at root.
func Default(root string) *Config {
	return &Config{
		Root:        root,
		TestRetries: 1,
		LogLevel:    "info",
		Paths: Paths{
			Specs:     "specs",
			Locks:     "locks",
			Templates: "templates",
			Build:     "build",
			Dist:      "dist",
			Reports:   filepath.Join("build", "reports"),
			Cache:     filepath.Join("build", ".cache"),
			Workflow:  filepath.Join(".github", "workflows", "ci.yml"),
			CondaRC:   filepath.Join(".github", ".condarc"),
		},
		Tools: Tools{
			Lock:        []string{"conda-lock", "--mamba"},
			Constructor: []string{"constructor"},
			TestRunner:  []string{"pytest"},
			Prettier:    []string{"yarn", "--silent", "prettier"},
			YamlLint:    []string{"yamllint"},
		},
	}
}

// Load builds the configuration for root: defaults, then coarbuild.yml
// if present, then environment variables.
func Load(root string) (*Config, error) {
	cfg := Default(root)

	path := filepath.Join(root, "coarbuild.yml")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if cfg.TestRetries < 0 {
		return nil, fmt.Errorf("test_retries must be >= 0, got %d", cfg.TestRetries)
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration
func (c *Config) applyEnv() {
	c.CI = GetBoolEnv(EnvCI, c.CI)
	c.SkipLint = GetBoolEnv(EnvSkipLint, c.SkipLint)
	c.TestRetries = GetIntEnv(EnvTestRetries, c.TestRetries)
	c.Jobs = GetIntEnv(EnvJobs, c.Jobs)
	c.LogLevel = GetEnv(EnvLogLevel, c.LogLevel)

	if extra := GetListEnv(EnvTestArgs); extra != nil {
		c.TestArgs = append(c.TestArgs, extra...)
	}
}

// Abs resolves a configured path against the repository root
func (c *Config) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, rel)
}

// Workers returns the effective parallel worker count
func (c *Config) Workers() int {
	if c.Jobs > 0 {
		return c.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// ChildEnv returns the patched environment for child subprocesses:
// the current environment plus the package-manager overrides every
// task in the pipeline expects.
func (c *Config) ChildEnv() []string {
	env := os.Environ()
	env = append(env,
		"PYTHONIOENCODING=utf-8",
		"PYTHONUNBUFFERED=1",
		"MAMBA_NO_BANNER=1",
		"CONDARC="+c.Abs(c.Paths.CondaRC),
	)
	return env
}
