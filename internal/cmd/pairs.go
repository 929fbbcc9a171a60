package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gt-coar/coarbuild/internal/pipeline"
	"github.com/gt-coar/coarbuild/internal/variant"
)

// addPairFlags registers the shared pair-selection flags
func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().String("variant", "", "only this variant (cpu, gpu)")
	cmd.Flags().String("platform", "", "only this platform (linux-64, osx-64, win-64)")
}

// selectPairs resolves the pair-selection flags against the pairs that
// exist on disk
func selectPairs(cmd *cobra.Command, p *pipeline.Pipeline) ([]variant.Pair, error) {
	variantFlag, _ := cmd.Flags().GetString("variant")
	platformFlag, _ := cmd.Flags().GetString("platform")

	if variantFlag != "" {
		if _, err := variant.ParseVariant(variantFlag); err != nil {
			return nil, err
		}
	}
	if platformFlag != "" {
		if _, err := variant.ParsePlatform(platformFlag); err != nil {
			return nil, err
		}
	}

	return variant.FilterPairs(p.Pairs(), variantFlag, platformFlag), nil
}
