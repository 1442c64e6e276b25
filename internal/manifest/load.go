package manifest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a manifest record.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	if errs := Validate(&m); len(errs) > 0 {
		return nil, &ValidationError{Path: path, Errors: errs}
	}

	return &m, nil
}

// Save writes a manifest atomically using a temp file and rename.
func Save(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp manifest %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp manifest to %s: %w", path, err)
	}

	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest %s validation failed:\n  - %s", e.Path, strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Manifest for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(m *Manifest) []string {
	var errs []string

	if m.Format != FormatVersion {
		errs = append(errs, fmt.Sprintf("unsupported format %d — only format %d is supported", m.Format, FormatVersion))
	}
	if m.Dataset == "" {
		errs = append(errs, "'dataset' is required")
	}
	if m.Version == "" {
		errs = append(errs, "'version' is required")
	}
	if m.ChecksumType == "" {
		errs = append(errs, "'checksum_type' is required")
	}

	for name, e := range m.Files {
		if name == "" {
			errs = append(errs, "empty filename in 'files'")
		}
		if e.Checksum == "" {
			errs = append(errs, fmt.Sprintf("file '%s': 'checksum' is required", name))
		}
		if e.Size < 0 {
			errs = append(errs, fmt.Sprintf("file '%s': negative size", name))
		}
	}

	return errs
}
