package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gt-coar/coarbuild/internal/task"
)

var runCmd = &cobra.Command{
	Use:   "run [TASKS...]",
	Short: "Execute the task graph",
	Long: `Execute the named tasks and their transitive dependencies, or the
whole graph when no task is named. Tasks whose file dependencies and targets
are unchanged since the last run are skipped; independent tasks run in
parallel up to the configured job count.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, p, err := setup()
		if err != nil {
			return err
		}

		g, err := p.Graph()
		if err != nil {
			return err
		}

		listTasks, _ := cmd.Flags().GetBool("list")
		if listTasks {
			for _, name := range g.Names() {
				t, _ := g.Get(name)
				fmt.Printf("%-28s %s\n", name, t.Doc)
			}
			return nil
		}

		executor, err := p.Executor(g)
		if err != nil {
			return err
		}

		force, _ := cmd.Flags().GetBool("force")
		if force {
			names, err := g.Resolve(args)
			if err != nil {
				return err
			}
			for _, name := range names {
				executor.Store.Forget(name)
			}
		}

		result, runErr := executor.Run(cmd.Context(), args)
		if result != nil {
			printSummary(result)
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().Bool("list", false, "list tasks instead of running them")
	runCmd.Flags().Bool("force", false, "drop freshness entries for the selected tasks before running")
	rootCmd.AddCommand(runCmd)
}

// printSummary renders the execution summary table
func printSummary(r *task.RunResult) {
	fmt.Println()
	fmt.Println(summaryTitle.Render("Pipeline Summary"))
	fmt.Printf("%s %d\n", summaryLabel.Render("Completed:"), r.Completed)
	fmt.Printf("%s %d\n", summaryLabel.Render("Up to date:"), r.Cached)
	if r.Failed > 0 {
		fmt.Printf("%s %d\n", failStyle.Render("Failed:"), r.Failed)
	}
	if r.Skipped > 0 {
		fmt.Printf("%s %d\n", warnStyle.Render("Skipped:"), r.Skipped)
	}
	fmt.Printf("%s %v\n", summaryLabel.Render("Duration:"), r.Duration.Round(summaryRound))
}
