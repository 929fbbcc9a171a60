package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gt-coar/coarbuild/internal/config"
	"github.com/gt-coar/coarbuild/internal/log"
	"github.com/gt-coar/coarbuild/internal/pipeline"
)

var rootCmd = &cobra.Command{
	Use:   "coarbuild",
	Short: "Build automation for the GTCOARLab distribution",
	Long: `coarbuild orchestrates the GTCOARLab build pipeline: it pins
environments into lock files, renders constructor inputs, builds platform
installers, regenerates the CI workflow, and drives installer acceptance
tests with bounded retries. Tasks declare file dependencies and targets;
up-to-date tasks are skipped and independent tasks run in parallel.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootFlags struct {
	root     string
	logLevel string
}

// ExecuteContext runs the root command under ctx
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlags.root, "root", ".", "repository root")
	rootCmd.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
}

// setup loads configuration, builds the logger, and assembles the
// pipeline. Every subcommand starts here.
func setup() (*config.Config, *log.Logger, *pipeline.Pipeline, error) {
	cfg, err := config.Load(rootFlags.root)
	if err != nil {
		return nil, nil, nil, err
	}

	logCfg := log.DefaultConfig()
	if cfg.CI {
		logCfg = log.CIConfig()
	}
	level := cfg.LogLevel
	if rootFlags.logLevel != "" {
		level = rootFlags.logLevel
	}
	logCfg.Level = log.ParseLevel(level)

	logger := log.New(logCfg)
	log.SetDefaultLogger(logger)

	return cfg, logger, pipeline.New(cfg, logger), nil
}
