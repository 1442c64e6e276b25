package drsprep

import (
	"github.com/drstools/drsprep/internal/scan"
)

// Outcome is the end state of one dataset after a run.
type Outcome string

const (
	OutcomeUpToDate    Outcome = "up-to-date"
	OutcomeInitialized Outcome = "initialized"
	OutcomeUpgraded    Outcome = "upgraded"
	OutcomeFailed      Outcome = "failed"
)

// DatasetResult summarizes one dataset's fate.
type DatasetResult struct {
	Dataset string
	Path    string
	Outcome Outcome

	// Version is the dataset's resulting version (target version for
	// failed datasets that had one decided).
	Version string

	Reused  int
	New     int
	Removed int

	// Incomplete marks datasets that lost files to checksum errors.
	Incomplete bool

	// Reason is the failure reason for OutcomeFailed.
	Reason string
}

// RunResult is the aggregate outcome of one pipeline run.
type RunResult struct {
	RunID   string
	Project string
	DryRun  bool

	// Datasets is sorted by dataset identifier.
	Datasets []DatasetResult

	// FileErrors are the collected per-file scan failures.
	FileErrors []scan.FileError

	Matched    int64
	Filtered   int64
	Duplicates int64

	// Mapfiles are the paths of written mapfile artifacts.
	Mapfiles []string
}

// Counts tallies datasets per outcome.
func (r *RunResult) Counts() (upToDate, initialized, upgraded, failed int) {
	for _, d := range r.Datasets {
		switch d.Outcome {
		case OutcomeUpToDate:
			upToDate++
		case OutcomeInitialized:
			initialized++
		case OutcomeUpgraded:
			upgraded++
		case OutcomeFailed:
			failed++
		}
	}
	return
}

// Failed reports whether the run must exit non-zero: at least one failed
// dataset or recorded per-file error.
func (r *RunResult) Failed() bool {
	if len(r.FileErrors) > 0 {
		return true
	}
	for _, d := range r.Datasets {
		if d.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}
