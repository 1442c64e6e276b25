package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/drstools/drsprep/internal/index"
	"github.com/drstools/drsprep/internal/project"
	"github.com/drstools/drsprep/internal/reconcile"
	"github.com/drstools/drsprep/internal/scan"
	"github.com/drstools/drsprep/pkg/drsprep"
)

// parseLevel validates the --log-level value.
func parseLevel(s string) (string, error) {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "error":
		return s, nil
	}
	return "", fmt.Errorf("invalid log level '%s' (expected debug, info, warn or error)", s)
}

// loadRules resolves the config directory and loads the project rules.
func loadRules() (*project.Rules, error) {
	dir, err := project.DiscoverConfigDir(configDir)
	if err != nil {
		return nil, err
	}
	return project.Load(dir, projectID)
}

// buildFilter layers CLI overrides on top of the project's filter
// overrides, which in turn layer on the built-in defaults.
func buildFilter(rules *project.Rules) (scan.Filter, error) {
	include := includePattern
	if include == "" {
		include = rules.Filters.Include
	}
	exclude := excludePattern
	if exclude == "" {
		exclude = rules.Filters.Exclude
	}
	dirs := ignoreDirs
	if len(dirs) == 0 {
		dirs = rules.Filters.IgnoreDirs
	}
	f, err := scan.NewFilter(include, exclude, dirs)
	if err != nil {
		return scan.Filter{}, &usageError{err: err}
	}
	return f, nil
}

// buildRunner assembles the pipeline from the global flags. The positional
// arguments are the scan roots; commands that scan require at least one.
func buildRunner(args []string, needRoots bool) (*drsprep.Runner, error) {
	if needRoots && len(args) == 0 {
		return nil, usageErrorf("at least one scan root is required")
	}

	explicit := ""
	if versionID != "" {
		v, err := index.Normalize(versionID)
		if err != nil {
			return nil, &usageError{err: err}
		}
		explicit = v
	}

	rules, err := loadRules()
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(rules)
	if err != nil {
		return nil, err
	}

	return &drsprep.Runner{
		Rules:           rules,
		Roots:           args,
		DRSRoot:         drsRoot,
		Filter:          filter,
		Workers:         threads,
		Mode:            mode,
		ExplicitVersion: explicit,
		MapfileDir:      mapfileDir,
		CombinedMapfile: combinedMapfile,
	}, nil
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// decisionOutcome maps a reconciliation kind onto the outcome it would
// produce if applied.
func decisionOutcome(k reconcile.Kind) drsprep.Outcome {
	switch k {
	case reconcile.KindInitialize:
		return drsprep.OutcomeInitialized
	case reconcile.KindUpgrade:
		return drsprep.OutcomeUpgraded
	default:
		return drsprep.OutcomeUpToDate
	}
}

// outcomeGlyph renders a dataset outcome for the per-dataset listings.
func outcomeGlyph(o drsprep.Outcome) string {
	switch o {
	case drsprep.OutcomeUpToDate:
		return "="
	case drsprep.OutcomeInitialized:
		return "+"
	case drsprep.OutcomeUpgraded:
		return "^"
	case drsprep.OutcomeFailed:
		return "!"
	}
	return "?"
}
