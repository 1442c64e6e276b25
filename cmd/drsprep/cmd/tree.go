package cmd

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/drstools/drsprep/internal/reconcile"
)

var treeCmd = &cobra.Command{
	Use:   "tree [roots...]",
	Short: "Preview the DRS layout an upgrade would produce",
	Long: `Scans the given roots and prints the version directories and files an
upgrade would leave under the DRS root. Nothing is written.`,
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
			if d.Kind == reconcile.KindUpToDate {
				detail("%s/%s (unchanged)", d.DatasetPath, d.Version)
				continue
			}
			info("%s/%s", d.DatasetPath, d.Version)
			for _, leaf := range d.Reused {
				info("    %s  <- %s", leaf, path.Join(d.DatasetPath, d.Previous, leaf))
			}
			for _, leaf := range d.New {
				info("    %s", leaf)
			}
			info("    latest -> %s", d.Version)
		}
		for _, f := range plan.Failures {
			errorf("%s", f)
		}
		for _, e := range plan.Scan.Errors {
			errorf("%s: %s", e.Path, e)
		}

		if len(plan.Failures) > 0 || len(plan.Scan.Errors) > 0 {
			return fmt.Errorf("%d dataset(s) and %d file(s) failed",
				len(plan.Failures), len(plan.Scan.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(treeCmd)
}
