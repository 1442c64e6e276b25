// Package mapfile serializes dataset-to-file associations with integrity
// metadata for the downstream publication pipeline.
package mapfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/drstools/drsprep/internal/apply"
	"github.com/drstools/drsprep/internal/manifest"
)

// Entry is one mapfile record: one file of one dataset version.
type Entry struct {
	Dataset      string
	Version      string
	AbsPath      string
	Size         int64
	ModTime      time.Time // zero means unknown; the field is omitted
	Checksum     string
	ChecksumType string
}

// FormatLine renders one record in the published mapfile line format:
//
//	dataset#version | abspath | size | mod_time=... | checksum=... | checksum_type=...
//
// The version appears without its 'v' prefix, as consumed by the
// publication pipeline.
func FormatLine(e Entry) string {
	fields := []string{
		fmt.Sprintf("%s#%s", e.Dataset, strings.TrimPrefix(e.Version, "v")),
		e.AbsPath,
		fmt.Sprintf("%d", e.Size),
	}
	if !e.ModTime.IsZero() {
		fields = append(fields, fmt.Sprintf("mod_time=%d", e.ModTime.Unix()))
	}
	if e.Checksum != "" {
		fields = append(fields,
			"checksum="+e.Checksum,
			"checksum_type="+e.ChecksumType)
	}
	return strings.Join(fields, " | ")
}

// FromManifest expands a version manifest into mapfile entries. Absolute
// paths point into the DRS tree; modification times are taken from the
// materialized files when they can be statted.
func FromManifest(m *manifest.Manifest, drsRoot, datasetPath string) []Entry {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		f := m.Files[name]
		abs := filepath.Join(drsRoot, filepath.FromSlash(datasetPath), m.Version, name)
		e := Entry{
			Dataset:      m.Dataset,
			Version:      m.Version,
			AbsPath:      abs,
			Size:         f.Size,
			Checksum:     f.Checksum,
			ChecksumType: m.ChecksumType,
		}
		if info, err := os.Stat(abs); err == nil {
			e.ModTime = info.ModTime()
		}
		entries = append(entries, e)
	}
	return entries
}

// Writer emits mapfiles to an output directory.
type Writer struct {
	// Dir is the output directory, created if missing.
	Dir string

	// Combined emits a single mapfile for the whole run instead of one
	// per dataset.
	Combined bool

	// CombinedName names the combined artifact (default drsprep.map).
	CombinedName string
}

// Write serializes the entries, grouped per dataset by default, and
// returns the paths of the written mapfiles.
func (w *Writer) Write(entries []Entry) ([]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating mapfile directory %s: %w", w.Dir, err)
	}

	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Dataset != sorted[j].Dataset {
			return sorted[i].Dataset < sorted[j].Dataset
		}
		return sorted[i].AbsPath < sorted[j].AbsPath
	})

	if w.Combined {
		name := w.CombinedName
		if name == "" {
			name = "drsprep.map"
		}
		path := filepath.Join(w.Dir, name)
		if err := w.writeOne(path, sorted); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	var paths []string
	for start := 0; start < len(sorted); {
		end := start
		for end < len(sorted) && sorted[end].Dataset == sorted[start].Dataset && sorted[end].Version == sorted[start].Version {
			end++
		}
		group := sorted[start:end]
		name := fmt.Sprintf("%s.%s.map", group[0].Dataset, strings.TrimPrefix(group[0].Version, "v"))
		path := filepath.Join(w.Dir, name)
		if err := w.writeOne(path, group); err != nil {
			return nil, err
		}
		paths = append(paths, path)
		start = end
	}
	return paths, nil
}

func (w *Writer) writeOne(path string, entries []Entry) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(FormatLine(e))
		b.WriteByte('\n')
	}
	if err := apply.WriteFileAtomic(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("writing mapfile %s: %w", path, err)
	}
	return nil
}
