package scan

import (
	"sort"
	"time"

	"github.com/drstools/drsprep/internal/classify"
)

// Candidate is a file emitted by the walk, before classification.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FileRecord is a classified, checksummed scanned file.
type FileRecord struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Checksum string
	Class    *classify.Classification
}

// Conflict records two or more scanned files that map to the same relative
// DRS path with differing content.
type Conflict struct {
	Leaf  string
	Paths []string
}

// Dataset accumulates the candidate manifest for one dataset.
type Dataset struct {
	ID   string
	Path string // version-less DRS path

	// Files maps leaf name to its record.
	Files map[string]FileRecord

	// Incomplete is set when at least one of the dataset's files failed
	// checksumming and was excluded.
	Incomplete bool

	Conflicts []Conflict
}

// ErrorKind classifies per-file scan failures.
type ErrorKind string

const (
	KindClassification ErrorKind = "classification"
	KindChecksum       ErrorKind = "checksum"
)

// FileError is a recorded per-file failure. It never aborts the batch.
type FileError struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e FileError) Error() string {
	return string(e.Kind) + " error: " + e.Err.Error()
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Result is the aggregate outcome of one scan.
type Result struct {
	Datasets map[string]*Dataset

	// Matched counts files that passed the filters and were scheduled.
	Matched int64

	// Filtered counts files dropped silently by the filters.
	Filtered int64

	// Duplicates counts identical files discovered more than once.
	Duplicates int64

	Errors []FileError
}

// DatasetIDs returns the dataset identifiers in sorted order.
func (r *Result) DatasetIDs() []string {
	ids := make([]string, 0, len(r.Datasets))
	for id := range r.Datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LeafNames returns the dataset's file names in sorted order.
func (d *Dataset) LeafNames() []string {
	names := make([]string, 0, len(d.Files))
	for name := range d.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
