package project

import "regexp"

// Rules holds the facet-extraction rules for one project. Loaded once at
// startup and immutable for the duration of a run.
type Rules struct {
	Version int    `yaml:"version"`
	Project string `yaml:"project"`

	// Facets in dataset-identifier assembly order.
	Facets []string `yaml:"facets"`

	// FilenamePattern is an anchored regular expression with named capture
	// groups, applied to the base filename of each scanned file.
	FilenamePattern string `yaml:"filename_pattern"`

	// DirectoryFormat is the version-less DRS path template, using
	// %(facet)s placeholders.
	DirectoryFormat string `yaml:"directory_format"`

	// DatasetID is the dataset identifier template, using %(facet)s
	// placeholders.
	DatasetID string `yaml:"dataset_id"`

	// Defaults supplies fixed facet values not derivable from filenames
	// (e.g. the project name itself).
	Defaults map[string]string `yaml:"defaults,omitempty"`

	// Checksum names the digest algorithm for this project. Empty means
	// the tool default.
	Checksum string `yaml:"checksum,omitempty"`

	// Filters optionally override the default scan filters.
	Filters Filters `yaml:"filters,omitempty"`

	pattern *regexp.Regexp
}

// Filters are the scan-time path predicates, as regular expression sources.
// Empty fields keep the built-in defaults.
type Filters struct {
	Include    string   `yaml:"include,omitempty"`
	Exclude    string   `yaml:"exclude,omitempty"`
	IgnoreDirs []string `yaml:"ignore_dirs,omitempty"`
}

// Pattern returns the compiled filename pattern. Only valid after Load.
func (r *Rules) Pattern() *regexp.Regexp {
	return r.pattern
}
