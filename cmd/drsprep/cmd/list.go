package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [roots...]",
	Short: "List scanned datasets and their pending decisions",
	Long: `Scans the given roots, groups files into datasets, and shows what an
upgrade would do to each one. Nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := buildRunner(args, true)
		if err != nil {
			return err
		}

		plan, err := runner.Plan(cmd.Context())
		if err != nil {
			return err
		}

		for _, d := range plan.Decisions {
			info("%s %s  %s  (%d reused, %d new, %d removed)",
				outcomeGlyph(decisionOutcome(d.Kind)), d.Dataset, d.Version,
				len(d.Reused), len(d.New), len(d.Removed))
			if d.Incomplete {
				info("    incomplete: some files were dropped by checksum errors")
			}
		}
		for _, f := range plan.Failures {
			errorf("%s", f)
		}
		for _, e := range plan.Scan.Errors {
			errorf("%s: %s", e.Path, e)
		}

		info("")
		info("%d dataset(s), %d file(s) matched, %d filtered, %d duplicate(s), %d error(s).",
			len(plan.Decisions), plan.Scan.Matched, plan.Scan.Filtered,
			plan.Scan.Duplicates, len(plan.Scan.Errors))

		if len(plan.Failures) > 0 || len(plan.Scan.Errors) > 0 {
			return fmt.Errorf("%d dataset(s) and %d file(s) failed",
				len(plan.Failures), len(plan.Scan.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
