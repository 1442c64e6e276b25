package classify

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/drstools/drsprep/internal/project"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func testRules(t *testing.T) *project.Rules {
	t.Helper()
	r := &project.Rules{
		Version:         1,
		Project:         "cmip6",
		Facets:          []string{"project", "variable", "experiment", "model"},
		FilenamePattern: `(?P<variable>[a-z0-9]+)_(?P<experiment>[a-z0-9-]+)_(?P<model>[A-Za-z0-9-]+)\.nc`,
		DirectoryFormat: "%(project)s/%(model)s/%(experiment)s/%(variable)s",
		DatasetID:       "%(project)s.%(model)s.%(experiment)s.%(variable)s",
		Defaults:        map[string]string{"project": "cmip6"},
	}
	if errs := project.Validate(r); len(errs) > 0 {
		t.Fatalf("fixture rules invalid: %v", errs)
	}
	return r
}

// compiledRules builds rules through Load's code path so the pattern is
// compiled. Validate alone does not populate the compiled pattern.
func compiledRules(t *testing.T) *project.Rules {
	t.Helper()
	dir := t.TempDir()
	content := `
version: 1
project: cmip6
facets: [project, variable, experiment, model]
filename_pattern: '(?P<variable>[a-z0-9]+)_(?P<experiment>[a-z0-9-]+)_(?P<model>[A-Za-z0-9-]+)\.nc'
directory_format: '%(project)s/%(model)s/%(experiment)s/%(variable)s'
dataset_id: '%(project)s.%(model)s.%(experiment)s.%(variable)s'
defaults:
  project: cmip6
`
	writeFile(t, dir, "cmip6.yaml", content)
	rules, err := project.Load(dir, "cmip6")
	if err != nil {
		t.Fatalf("loading fixture rules: %v", err)
	}
	return rules
}

func TestClassify(t *testing.T) {
	rules := compiledRules(t)

	c, err := Classify("/scratch/incoming/tas_historical_CanESM5.nc", rules)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if c.DatasetID != "cmip6.CanESM5.historical.tas" {
		t.Errorf("dataset id = %q", c.DatasetID)
	}
	if c.DatasetPath != "cmip6/CanESM5/historical/tas" {
		t.Errorf("dataset path = %q", c.DatasetPath)
	}
	if c.LeafName != "tas_historical_CanESM5.nc" {
		t.Errorf("leaf name = %q", c.LeafName)
	}
	if c.Facets["model"] != "CanESM5" {
		t.Errorf("model facet = %q", c.Facets["model"])
	}
	if c.Facets["project"] != "cmip6" {
		t.Errorf("default facet not merged: %q", c.Facets["project"])
	}
}

func TestClassifySameDatasetDifferentFiles(t *testing.T) {
	rules := compiledRules(t)

	a, err := Classify("/in/tas_historical_CanESM5.nc", rules)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Classify("/elsewhere/tas_historical_CanESM5.nc", rules)
	if err != nil {
		t.Fatal(err)
	}

	if a.DatasetID != b.DatasetID || a.DatasetPath != b.DatasetPath {
		t.Error("identical filenames in different directories must classify identically")
	}
}

func TestClassifyMismatch(t *testing.T) {
	rules := compiledRules(t)

	_, err := Classify("/in/README.nc", rules)
	if err == nil {
		t.Fatal("expected pattern error")
	}
	var pe *PatternError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *PatternError", err)
	}
	if pe.Path != "/in/README.nc" {
		t.Errorf("error path = %q", pe.Path)
	}
}

func TestFixtureRulesAgree(t *testing.T) {
	// The hand-built fixture and the loaded fixture describe the same
	// project; keep them from drifting apart.
	hand := testRules(t)
	loaded := compiledRules(t)
	if hand.DatasetID != loaded.DatasetID || hand.DirectoryFormat != loaded.DirectoryFormat {
		t.Error("test fixtures diverged")
	}
	if _, err := regexp.Compile(hand.FilenamePattern); err != nil {
		t.Errorf("fixture pattern: %v", err)
	}
}
