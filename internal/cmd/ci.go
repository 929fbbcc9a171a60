package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ciCmd = &cobra.Command{
	Use:   "ci",
	Short: "Render the CI workflow from buildable pairs",
	Long: `Regenerate the continuous-integration workflow file from the set of
(variant, platform) pairs whose specification files exist on disk, so CI
always matches what the repository can actually build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, p, err := setup()
		if err != nil {
			return err
		}

		renderer := p.CIRenderer()
		if err := renderer.Render(p.Pairs()); err != nil {
			return err
		}
		fmt.Println(okStyle.Render("✓"), "rendered", renderer.OutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ciCmd)
}
