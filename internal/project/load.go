package project

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/drstools/drsprep/internal/checksum"
)

// Load reads and validates the rules file for a project from configDir.
// The file is named <project>.yaml.
func Load(configDir, projectID string) (*Rules, error) {
	path := filepath.Join(configDir, projectID+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project rules %s: %w", path, err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing project rules %s: %w", path, err)
	}
	if rules.Project == "" {
		rules.Project = projectID
	}

	if errs := Validate(&rules); len(errs) > 0 {
		return nil, &ValidationError{Project: projectID, Errors: errs}
	}

	// Validate guarantees this compiles.
	rules.pattern = regexp.MustCompile(anchored(rules.FilenamePattern))

	return &rules, nil
}

// ValidationError holds multiple validation failures for one project.
type ValidationError struct {
	Project string
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("project '%s' rules validation failed:\n  - %s",
		e.Project, strings.Join(e.Errors, "\n  - "))
}

// Validate checks Rules for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(r *Rules) []string {
	var errs []string

	if r.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", r.Version))
	}

	if len(r.Facets) == 0 {
		errs = append(errs, "'facets' is required")
	}
	facetSet := make(map[string]bool)
	for _, f := range r.Facets {
		if facetSet[f] {
			errs = append(errs, fmt.Sprintf("duplicate facet '%s'", f))
		}
		facetSet[f] = true
	}

	var pattern *regexp.Regexp
	if r.FilenamePattern == "" {
		errs = append(errs, "'filename_pattern' is required")
	} else {
		var err error
		pattern, err = regexp.Compile(anchored(r.FilenamePattern))
		if err != nil {
			errs = append(errs, fmt.Sprintf("'filename_pattern' does not compile: %v", err))
		}
	}

	// Every facet must be extractable: either a named capture group in the
	// filename pattern or a fixed default.
	captured := make(map[string]bool)
	if pattern != nil {
		for _, name := range pattern.SubexpNames() {
			if name != "" {
				captured[name] = true
			}
		}
	}
	for _, f := range r.Facets {
		if !captured[f] && r.Defaults[f] == "" {
			errs = append(errs, fmt.Sprintf("facet '%s' has no capture group in 'filename_pattern' and no default", f))
		}
	}

	if r.DirectoryFormat == "" {
		errs = append(errs, "'directory_format' is required")
	}
	if r.DatasetID == "" {
		errs = append(errs, "'dataset_id' is required")
	}

	// Template placeholders must reference declared facets.
	for _, tmpl := range []struct{ field, value string }{
		{"directory_format", r.DirectoryFormat},
		{"dataset_id", r.DatasetID},
	} {
		for _, name := range Placeholders(tmpl.value) {
			if !facetSet[name] {
				errs = append(errs, fmt.Sprintf("'%s' references unknown facet '%s'", tmpl.field, name))
			}
		}
	}

	if _, err := checksum.ParseAlgorithm(r.Checksum); err != nil {
		errs = append(errs, err.Error())
	}

	for _, f := range []struct{ field, value string }{
		{"filters.include", r.Filters.Include},
		{"filters.exclude", r.Filters.Exclude},
	} {
		if f.value == "" {
			continue
		}
		if _, err := regexp.Compile(f.value); err != nil {
			errs = append(errs, fmt.Sprintf("'%s' does not compile: %v", f.field, err))
		}
	}
	for _, d := range r.Filters.IgnoreDirs {
		if _, err := regexp.Compile(d); err != nil {
			errs = append(errs, fmt.Sprintf("'filters.ignore_dirs' entry '%s' does not compile: %v", d, err))
		}
	}

	return errs
}

// Algorithm returns the project's parsed checksum algorithm.
// Only valid after Validate has passed.
func (r *Rules) Algorithm() checksum.Algorithm {
	algo, _ := checksum.ParseAlgorithm(r.Checksum)
	return algo
}

// anchored wraps a pattern so it must match the whole filename.
func anchored(pattern string) string {
	return "^(?:" + pattern + ")$"
}
