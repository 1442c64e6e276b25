package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/drstools/drsprep/internal/checksum"
)

const validRules = `
version: 1
project: cmip6
facets: [project, variable, experiment, model]
filename_pattern: '(?P<variable>[a-z0-9]+)_(?P<experiment>[a-z0-9-]+)_(?P<model>[A-Za-z0-9-]+)\.nc'
directory_format: '%(project)s/%(model)s/%(experiment)s/%(variable)s'
dataset_id: '%(project)s.%(model)s.%(experiment)s.%(variable)s'
defaults:
  project: cmip6
checksum: sha256
`

func writeRules(t *testing.T, project, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, project+".yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadValid(t *testing.T) {
	dir := writeRules(t, "cmip6", validRules)

	rules, err := Load(dir, "cmip6")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if rules.Project != "cmip6" {
		t.Errorf("project = %q, want cmip6", rules.Project)
	}
	if rules.Pattern() == nil {
		t.Fatal("pattern not compiled")
	}
	if !rules.Pattern().MatchString("tas_historical_CanESM5.nc") {
		t.Error("pattern should match a conforming filename")
	}
	if rules.Pattern().MatchString("tas_historical_CanESM5.nc.tmp") {
		t.Error("pattern must be anchored to the whole filename")
	}
	if rules.Algorithm() != checksum.SHA256 {
		t.Errorf("algorithm = %s, want SHA256", rules.Algorithm())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir(), "nope"); err == nil {
		t.Fatal("expected error for missing rules file")
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Rules)
		wantMsg string
	}{
		{
			name:    "bad version",
			mutate:  func(r *Rules) { r.Version = 2 },
			wantMsg: "unsupported version",
		},
		{
			name:    "no facets",
			mutate:  func(r *Rules) { r.Facets = nil },
			wantMsg: "'facets' is required",
		},
		{
			name:    "bad pattern",
			mutate:  func(r *Rules) { r.FilenamePattern = "(" },
			wantMsg: "does not compile",
		},
		{
			name:    "uncaptured facet",
			mutate:  func(r *Rules) { r.Facets = append(r.Facets, "table") },
			wantMsg: "facet 'table' has no capture group",
		},
		{
			name:    "unknown template facet",
			mutate:  func(r *Rules) { r.DatasetID = "%(project)s.%(mystery)s" },
			wantMsg: "unknown facet 'mystery'",
		},
		{
			name:    "bad checksum",
			mutate:  func(r *Rules) { r.Checksum = "crc32" },
			wantMsg: "unknown checksum algorithm",
		},
		{
			name:    "bad filter",
			mutate:  func(r *Rules) { r.Filters.Include = "[" },
			wantMsg: "'filters.include' does not compile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := baseRules()
			tt.mutate(r)
			errs := Validate(r)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e, tt.wantMsg) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v missing %q", errs, tt.wantMsg)
			}
		})
	}
}

func baseRules() *Rules {
	return &Rules{
		Version:         1,
		Project:         "cmip6",
		Facets:          []string{"project", "variable", "experiment", "model"},
		FilenamePattern: `(?P<variable>[a-z0-9]+)_(?P<experiment>[a-z0-9-]+)_(?P<model>[A-Za-z0-9-]+)\.nc`,
		DirectoryFormat: "%(project)s/%(model)s/%(experiment)s/%(variable)s",
		DatasetID:       "%(project)s.%(model)s.%(experiment)s.%(variable)s",
		Defaults:        map[string]string{"project": "cmip6"},
	}
}

func TestExpand(t *testing.T) {
	facets := map[string]string{"model": "CanESM5", "experiment": "historical"}

	got, err := Expand("%(model)s/%(experiment)s", facets)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if got != "CanESM5/historical" {
		t.Errorf("Expand = %q", got)
	}

	if _, err := Expand("%(model)s/%(missing)s", facets); err == nil {
		t.Fatal("expected error for unresolved placeholder")
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("%(a)s/%(b)s/%(a)s")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Placeholders = %v, want [a b]", got)
	}
}

func TestDiscoverConfigDirExplicit(t *testing.T) {
	dir := t.TempDir()
	got, err := DiscoverConfigDir(dir)
	if err != nil {
		t.Fatalf("DiscoverConfigDir: %v", err)
	}
	if got != dir {
		t.Errorf("dir = %q, want %q", got, dir)
	}

	if _, err := DiscoverConfigDir(filepath.Join(dir, "absent")); err == nil {
		t.Fatal("expected error for missing explicit directory")
	}
}

func TestDiscoverConfigDirEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ConfigDirEnv, dir)

	got, err := DiscoverConfigDir("")
	if err != nil {
		t.Fatalf("DiscoverConfigDir: %v", err)
	}
	if got != dir {
		t.Errorf("dir = %q, want %q", got, dir)
	}
}
