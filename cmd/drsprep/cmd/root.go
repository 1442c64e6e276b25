package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drstools/drsprep/internal/log"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	projectID string
	configDir string
	drsRoot   string

	versionID string
	mode      string
	threads   int

	includePattern  string
	excludePattern  string
	ignoreDirs      []string
	mapfileDir      string
	combinedMapfile bool

	logLevel string
	logJSON  bool
	verbose  bool
	quiet    bool
)

// usageError marks flag and argument mistakes, which exit with code 99
// instead of the generic failure code.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

var rootCmd = &cobra.Command{
	Use:   "drsprep",
	Short: "Build and upgrade versioned DRS trees from NetCDF archives",
	Long: `drsprep scans incoming NetCDF files, derives their place in a Data
Reference Syntax (DRS) tree from per-project rules, and reconciles each
dataset against the versions already published under the tree. Unchanged
datasets are left alone; changed ones get a new version directory that
hard-links unchanged files and transfers the rest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		if projectID == "" {
			return usageErrorf("--project is required")
		}
		if quiet && verbose {
			return usageErrorf("--quiet and --verbose are mutually exclusive")
		}

		level, err := parseLevel(logLevel)
		if err != nil {
			return &usageError{err: err}
		}
		log.Setup(log.Options{Level: level, JSON: logJSON})
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("drsprep %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&projectID, "project", "p", "", "project identifier, selects <config-dir>/<project>.yaml")
	pf.StringVar(&configDir, "config-dir", "", "directory holding project rule files")
	pf.StringVar(&drsRoot, "root", ".", "DRS tree root")
	pf.StringVar(&versionID, "version-id", "", "pin the target version (vYYYYMMDD or digits)")
	pf.StringVar(&mode, "mode", "link", "file transfer mode: link, copy or move")
	pf.IntVar(&threads, "threads", 0, "worker count (0 uses the default)")
	pf.StringVar(&includePattern, "include", "", "regexp a filename must match to be scanned")
	pf.StringVar(&excludePattern, "exclude", "", "regexp excluding filenames from the scan")
	pf.StringSliceVar(&ignoreDirs, "ignore-dir", nil, "regexp for directory names the walk skips (repeatable)")
	pf.StringVar(&mapfileDir, "mapfile-dir", "", "directory for emitted mapfiles")
	pf.BoolVar(&combinedMapfile, "combined-mapfile", false, "emit one mapfile for the whole run")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.BoolVar(&logJSON, "log-json", false, "emit logs as JSON")
	pf.BoolVar(&verbose, "verbose", false, "detailed output")
	pf.BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and maps the outcome to an exit code:
// 0 success, 1 run failure, 99 flag or argument mistakes.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	errorf("%s", err)

	var ue *usageError
	if errors.As(err, &ue) {
		return 99
	}
	return 1
}
