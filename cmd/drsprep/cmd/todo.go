package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drstools/drsprep/internal/reconcile"
)

var todoCmd = &cobra.Command{
	Use:   "todo [roots...]",
	Short: "List the file operations an upgrade would perform",
	Long: `Scans the given roots and prints every file operation an upgrade would
perform, one line per file. Nothing is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := buildRunner(args, true)
		if err != nil {
			return err
		}

		plan, err := runner.Plan(cmd.Context())
		if err != nil {
			return err
		}

		ops := 0
		for _, d := range plan.Decisions {
			if d.Kind == reconcile.KindUpToDate {
				detail("%s: up to date at %s", d.Dataset, d.Version)
				continue
			}
			info("%s -> %s", d.Dataset, d.Version)
			for _, leaf := range d.Reused {
				info("    link  %s (from %s)", leaf, d.Previous)
				ops++
			}
			for _, leaf := range d.New {
				info("    %-5s %s", mode, leaf)
				ops++
			}
			for _, leaf := range d.Removed {
				info("    drop  %s", leaf)
			}
		}
		for _, f := range plan.Failures {
			errorf("%s", f)
		}
		for _, e := range plan.Scan.Errors {
			errorf("%s: %s", e.Path, e)
		}

		info("")
		info("%d file operation(s) pending.", ops)

		if len(plan.Failures) > 0 || len(plan.Scan.Errors) > 0 {
			return fmt.Errorf("%d dataset(s) and %d file(s) failed",
				len(plan.Failures), len(plan.Scan.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(todoCmd)
}
