// Package classify derives dataset identity from scanned file paths using
// project facet-extraction rules.
package classify

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/drstools/drsprep/internal/project"
)

// Classification is the outcome of classifying one scanned file.
type Classification struct {
	// DatasetID is the normalized dataset identifier.
	DatasetID string

	// Facets maps facet name to extracted value. Ordering is carried by
	// the project rules, not the map.
	Facets map[string]string

	// DatasetPath is the version-less DRS directory path for the dataset,
	// relative to the DRS root, using forward slashes.
	DatasetPath string

	// LeafName is the file's name inside a version directory.
	LeafName string
}

// PatternError reports a file that passed the scan filters but does not
// match the project's filename pattern.
type PatternError struct {
	Path    string
	Pattern string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("%s: filename does not match project pattern %s", e.Path, e.Pattern)
}

// Classify extracts facets from the base name of p and assembles the
// dataset identifier and version-less DRS path.
func Classify(p string, rules *project.Rules) (*Classification, error) {
	name := filepath.Base(p)

	re := rules.Pattern()
	m := re.FindStringSubmatch(name)
	if m == nil {
		return nil, &PatternError{Path: p, Pattern: rules.FilenamePattern}
	}

	facets := make(map[string]string, len(rules.Facets))
	for k, v := range rules.Defaults {
		facets[k] = v
	}
	for i, group := range re.SubexpNames() {
		if group != "" && m[i] != "" {
			facets[group] = m[i]
		}
	}

	id, err := project.Expand(rules.DatasetID, facets)
	if err != nil {
		return nil, fmt.Errorf("%s: assembling dataset id: %w", p, err)
	}
	dir, err := project.Expand(rules.DirectoryFormat, facets)
	if err != nil {
		return nil, fmt.Errorf("%s: assembling DRS path: %w", p, err)
	}

	return &Classification{
		DatasetID:   id,
		Facets:      facets,
		DatasetPath: path.Clean(dir),
		LeafName:    name,
	}, nil
}
