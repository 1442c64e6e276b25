package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mapfileCmd = &cobra.Command{
	Use:   "mapfile",
	Short: "Emit mapfiles from the published DRS tree",
	Long: `Walks the DRS root and serializes every dataset's latest published
version (or the version pinned with --version-id) into mapfiles. No source
directories are scanned.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, err := buildRunner(nil, false)
		if err != nil {
			return err
		}
		if runner.MapfileDir == "" {
			runner.MapfileDir = "."
		}

		res, err := runner.MapfilesFromTree(cmd.Context())
		if err != nil {
			return err
		}

		for _, p := range res.Mapfiles {
			info("%s", p)
		}
		for _, f := range res.Failures {
			errorf("%s: %s", f.Dataset, f.Reason)
		}

		info("")
		info("%d dataset(s), %d mapfile(s) written, %d failed.",
			res.Datasets, len(res.Mapfiles), len(res.Failures))

		if len(res.Failures) > 0 {
			return fmt.Errorf("%d dataset(s) failed", len(res.Failures))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mapfileCmd)
}
