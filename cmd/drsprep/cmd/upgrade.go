package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drstools/drsprep/pkg/drsprep"
)

var upgradeDryRun bool

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [roots...]",
	Short: "Publish new dataset versions under the DRS root",
	Long: `Scans the given roots, reconciles every dataset against the tree, and
materializes a new version directory for each changed dataset. Unchanged
files are hard-linked from the previous version; new files are brought in
with the configured transfer mode. Mapfiles are emitted when --mapfile-dir
is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := buildRunner(args, true)
		if err != nil {
			return err
		}

		opts := drsprep.RunOptions{
			DryRun:        upgradeDryRun,
			WriteMapfiles: mapfileDir != "",
		}
		res, err := runner.Run(cmd.Context(), opts)
		if err != nil {
			return err
		}

		if upgradeDryRun {
			info("Dry run — nothing written.")
		}
		for _, d := range res.Datasets {
			info("%s %s  %s  (%d reused, %d new, %d removed)",
				outcomeGlyph(d.Outcome), d.Dataset, d.Version, d.Reused, d.New, d.Removed)
			if d.Outcome == drsprep.OutcomeFailed {
				errorf("%s: %s", d.Dataset, d.Reason)
			}
		}
		for _, e := range res.FileErrors {
			errorf("%s: %s", e.Path, e)
		}
		for _, p := range res.Mapfiles {
			detail("mapfile %s", p)
		}

		upToDate, initialized, upgraded, failed := res.Counts()
		info("")
		info("Upgrade complete: %d up to date, %d initialized, %d upgraded, %d failed, %d file error(s).",
			upToDate, initialized, upgraded, failed, len(res.FileErrors))

		if res.Failed() {
			return fmt.Errorf("%d dataset(s) and %d file(s) failed", failed, len(res.FileErrors))
		}
		return nil
	},
}

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeDryRun, "dry-run", false, "decide everything but write nothing")
	rootCmd.AddCommand(upgradeCmd)
}
