package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Format and lint YAML sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, p, err := setup()
		if err != nil {
			return err
		}

		if cfg.SkipLint {
			logger.Info("lint skipped by configuration")
			return nil
		}

		results, err := p.Linter().Run(cmd.Context())
		for _, res := range results {
			if res.Passed {
				fmt.Println(okStyle.Render("✓"), res.Tool)
			} else {
				fmt.Println(failStyle.Render("✗"), res.Tool)
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
}
