package reconcile

import (
	"fmt"
	"strings"
)

// Kind is the category of a reconciliation decision.
type Kind string

const (
	// KindUpToDate means the candidate file set equals the latest
	// published version; nothing to do.
	KindUpToDate Kind = "up-to-date"

	// KindInitialize means the dataset has no published version yet.
	KindInitialize Kind = "initialize"

	// KindUpgrade means a new version will be materialized, reusing
	// unchanged files.
	KindUpgrade Kind = "upgrade"
)

// Decision is the per-dataset outcome of reconciliation. Decisions for
// independent datasets are order-independent.
type Decision struct {
	Dataset     string
	DatasetPath string
	Kind        Kind

	// Version is the target version for Initialize/Upgrade, or the
	// current latest for UpToDate.
	Version string

	// Previous is the latest published version, empty when none exists.
	Previous string

	// Disjoint file sets, sorted. Reused ∪ New ∪ Removed partitions the
	// union of candidate and latest manifest filenames.
	Reused  []string
	New     []string
	Removed []string

	// Incomplete is carried from the scan: at least one of the dataset's
	// files failed checksumming and is absent from the candidate set.
	Incomplete bool
}

// VersionConflictError reports an explicit version identifier that is not
// strictly greater than the dataset's latest published version.
type VersionConflictError struct {
	Dataset   string
	Requested string
	Latest    string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("dataset %s: requested version %s is not greater than latest published version %s",
		e.Dataset, e.Requested, e.Latest)
}

// DuplicateFileError reports scanned files mapping to the same relative
// DRS path with differing content. The engine refuses to pick a winner.
type DuplicateFileError struct {
	Dataset string
	Leaf    string
	Paths   []string
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("dataset %s: %d scanned files map to '%s' with differing content: %s",
		e.Dataset, len(e.Paths), e.Leaf, strings.Join(e.Paths, ", "))
}

// Failure records a dataset whose reconciliation failed. Failures on one
// dataset never block other datasets.
type Failure struct {
	Dataset string
	Err     error
}

func (f Failure) Error() string {
	return f.Dataset + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error {
	return f.Err
}
