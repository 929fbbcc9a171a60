package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Generate lock files for buildable pairs",
	Long: `Generate fully pinned lock files for every (variant, platform) pair
with a specification file on disk. Pairs without a spec file are silently
skipped. Use --variant and --platform to narrow the selection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, p, err := setup()
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

		locker := p.Locker()
		for _, pair := range pairs {
			if err := locker.Lock(cmd.Context(), pair); err != nil {
				return err
			}
			fmt.Println(okStyle.Render("✓"), "locked", pair.String())
		}
		return nil
	},
}

func init() {
	addPairFlags(lockCmd)
	rootCmd.AddCommand(lockCmd)
}
