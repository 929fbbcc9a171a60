package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gt-coar/coarbuild/internal/testdriver"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run installer acceptance tests with bounded retries",
	Long: `Drive the acceptance-test runner against an installer: the first
attempt runs the full suite, each retry reruns only the cases the previous
attempt's report marks failed, and every attempt report is merged into one
combined report whatever the outcome. The retry budget comes from
COARBUILD_TEST_RETRIES (attempts = retries + 1).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, p, err := setup()
		if err != nil {
			return err
		}

		installer, _ := cmd.Flags().GetString("installer")
		driver := p.TestDriver(installer)

		outcome, runErr := driver.Run(cmd.Context())
		if outcome != nil {
			printTestSummary(outcome)
		}
		return runErr
	},
}

func init() {
	testCmd.Flags().String("installer", "", "installer under test (exported to the runner)")
	rootCmd.AddCommand(testCmd)
}

// printTestSummary renders the driver outcome
func printTestSummary(outcome *testdriver.Outcome) {
	fmt.Println()
	fmt.Println(summaryTitle.Render("Installer Test Summary"))
	fmt.Printf("%s %d\n", summaryLabel.Render("Attempts:"), len(outcome.Attempts))
	if outcome.Passed {
		fmt.Println(okStyle.Render("✓ passed"))
	} else {
		fmt.Println(failStyle.Render("✗ failed"))
	}
	if outcome.CombinedPath != "" {
		fmt.Printf("%s %s\n", summaryLabel.Render("Combined report:"), outcome.CombinedPath)
	}
	if outcome.Combined != nil {
		fmt.Printf("%s %d tests, %d failures, %d errors, %d skipped\n",
			summaryLabel.Render("Aggregate:"),
			outcome.Combined.Tests, outcome.Combined.Failures,
			outcome.Combined.Errors, outcome.Combined.Skipped)
	}
}
