package scan

import (
	"fmt"
	"regexp"

	"github.com/drstools/drsprep/internal/project"
)

// Built-in filter defaults: non-hidden NetCDF files, and version-irrelevant
// DRS bookkeeping directories are never descended into.
const (
	defaultInclude = `^[^.].*\.nc$`
	defaultExclude = `^\..*$`
)

var defaultIgnoreDirs = []string{`^files$`, `^latest$`, `^\..*$`}

// Filter holds the compiled path predicates applied during a walk.
// The zero value keeps nothing; build one with NewFilter or DefaultFilter.
type Filter struct {
	include    *regexp.Regexp
	exclude    *regexp.Regexp
	ignoreDirs []*regexp.Regexp
}

// DefaultFilter returns the built-in filter set.
func DefaultFilter() Filter {
	f, err := NewFilter("", "", nil)
	if err != nil {
		panic(err) // defaults are compile-checked by tests
	}
	return f
}

// NewFilter compiles a filter. Empty arguments keep the built-in defaults.
func NewFilter(include, exclude string, ignoreDirs []string) (Filter, error) {
	if include == "" {
		include = defaultInclude
	}
	if exclude == "" {
		exclude = defaultExclude
	}
	if len(ignoreDirs) == 0 {
		ignoreDirs = defaultIgnoreDirs
	}

	inc, err := regexp.Compile(include)
	if err != nil {
		return Filter{}, fmt.Errorf("include pattern: %w", err)
	}
	exc, err := regexp.Compile(exclude)
	if err != nil {
		return Filter{}, fmt.Errorf("exclude pattern: %w", err)
	}
	dirs := make([]*regexp.Regexp, 0, len(ignoreDirs))
	for _, d := range ignoreDirs {
		re, err := regexp.Compile(d)
		if err != nil {
			return Filter{}, fmt.Errorf("ignore-dir pattern '%s': %w", d, err)
		}
		dirs = append(dirs, re)
	}

	return Filter{include: inc, exclude: exc, ignoreDirs: dirs}, nil
}

// FromRules builds a filter from project rule overrides, falling back to
// the defaults for unset fields.
func FromRules(f project.Filters) (Filter, error) {
	return NewFilter(f.Include, f.Exclude, f.IgnoreDirs)
}

// KeepFile reports whether a file with the given base name survives the
// include/exclude predicates.
func (f Filter) KeepFile(name string) bool {
	if f.exclude != nil && f.exclude.MatchString(name) {
		return false
	}
	return f.include != nil && f.include.MatchString(name)
}

// EnterDir reports whether the walk should descend into a directory with
// the given base name.
func (f Filter) EnterDir(name string) bool {
	for _, re := range f.ignoreDirs {
		if re.MatchString(name) {
			return false
		}
	}
	return true
}
