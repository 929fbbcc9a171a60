package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var constructCmd = &cobra.Command{
	Use:   "construct",
	Short: "Render constructor inputs and build installers",
	Long: `For each selected pair, render the construct directory from the
pair's lock file and the construct templates, then invoke the constructor
to produce the platform installer and its checksum sidecar. Lock files
must already exist; run 'coarbuild lock' first or use 'coarbuild run'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, p, err := setup()
		if err != nil {
			return err
		}

		pairs, err := selectPairs(cmd, p)
		if err != nil {
			return err
		}
		if len(pairs) == 0 {
			logger.Warn("no buildable pairs matched")
			return nil
		}

		renderOnly, _ := cmd.Flags().GetBool("render-only")

		locker := p.Locker()
		renderer := p.Renderer()
		builder := p.Builder()

		for _, pair := range pairs {
			outDir := filepath.Join(cfg.Abs(cfg.Paths.Build), "constructs", pair.Slug())
			if err := renderer.Render(pair, locker.Path(pair), outDir); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("✓"), "rendered", pair.String())

			if renderOnly {
				continue
			}

			result, err := builder.Build(cmd.Context(), pair, outDir)
			if err != nil {
				return err
			}
			fmt.Println(okStyle.Render("✓"), "built", result.Installer)
			fmt.Println("  sha256:", result.Checksums.SHA256)
		}
		return nil
	},
}

func init() {
	addPairFlags(constructCmd)
	constructCmd.Flags().Bool("render-only", false, "render construct directories without building installers")
	rootCmd.AddCommand(constructCmd)
}
