package project

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderRe matches %(name)s template placeholders.
var placeholderRe = regexp.MustCompile(`%\(([A-Za-z0-9_]+)\)s`)

// Expand substitutes %(name)s placeholders in tmpl with facet values.
// An unresolvable placeholder is an error rather than an empty segment:
// a partially expanded DRS path would misfile data silently.
func Expand(tmpl string, facets map[string]string) (string, error) {
	var missing []string
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := facets[name]
		if !ok || v == "" {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template '%s': no value for facet(s) %s", tmpl, strings.Join(missing, ", "))
	}
	return out, nil
}

// Placeholders returns the facet names referenced by a template, in order
// of first appearance.
func Placeholders(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
