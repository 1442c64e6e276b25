// Package index reads the published version history of datasets from a
// DRS root. It is re-read fresh each run; there is no cross-run cache.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/drstools/drsprep/internal/checksum"
	"github.com/drstools/drsprep/internal/log"
	"github.com/drstools/drsprep/internal/manifest"
)

// ErrNotFound reports a version that does not exist under a dataset path.
var ErrNotFound = errors.New("version not found")

// Index enumerates published versions and their manifests under a DRS root.
type Index struct {
	// Root is the DRS tree root directory.
	Root string

	// Algorithm is used when a manifest record is missing and the file
	// set has to be rehashed.
	Algorithm checksum.Algorithm

	Logger *slog.Logger
}

func (ix *Index) logger() *slog.Logger {
	if ix.Logger != nil {
		return ix.Logger
	}
	return log.WithComponent("index")
}

// Versions returns the dataset's published version identifiers in
// ascending order. A dataset directory that does not exist yet yields an
// empty slice, not an error.
func (ix *Index) Versions(datasetPath string) ([]string, error) {
	dir := filepath.Join(ix.Root, filepath.FromSlash(datasetPath))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dataset directory %s: %w", dir, err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() {
			continue
		}
		if !IsVersionID(name) {
			// Structurally unexpected content is a warning, not fatal:
			// 'files' and 'latest' are normal DRS bookkeeping.
			if name != "files" && name != "latest" {
				ix.logger().Warn("unrecognized entry in dataset directory", "dataset", datasetPath, "entry", name)
			}
			continue
		}
		versions = append(versions, name)
	}

	sort.Slice(versions, func(i, j int) bool {
		return CompareVersions(versions[i], versions[j]) < 0
	})
	return versions, nil
}

// Latest returns the dataset's maximum version identifier, or ok=false if
// the dataset has no published versions.
func (ix *Index) Latest(datasetPath string) (string, bool, error) {
	versions, err := ix.Versions(datasetPath)
	if err != nil {
		return "", false, err
	}
	if len(versions) == 0 {
		return "", false, nil
	}
	return versions[len(versions)-1], true, nil
}

// ManifestOf returns the manifest for one published version. If the
// version directory lacks a manifest record (trees written by other tools,
// or interrupted runs), the manifest is rebuilt by hashing the directory's
// regular files, with a warning.
func (ix *Index) ManifestOf(ctx context.Context, datasetID, datasetPath, version string) (*manifest.Manifest, error) {
	dir := filepath.Join(ix.Root, filepath.FromSlash(datasetPath), version)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("version %s of %s: %w", version, datasetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("stat version directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("version path %s is not a directory", dir)
	}

	m, err := manifest.Load(filepath.Join(dir, manifest.FileName))
	if err == nil {
		return m, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		ix.logger().Warn("missing manifest record, rebuilding from files", "dataset", datasetID, "version", version)
	} else {
		ix.logger().Warn("unreadable manifest record, rebuilding from files", "dataset", datasetID, "version", version, "error", err)
	}

	return ix.rebuild(ctx, datasetID, version, dir)
}

// rebuild reconstructs a manifest by statting and hashing the version
// directory's regular files.
func (ix *Index) rebuild(ctx context.Context, datasetID, version, dir string) (*manifest.Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading version directory %s: %w", dir, err)
	}

	m := &manifest.Manifest{
		Format:       manifest.FormatVersion,
		Dataset:      datasetID,
		Version:      version,
		ChecksumType: string(ix.Algorithm),
		Files:        make(map[string]manifest.Entry),
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name[0] == '.' {
			continue
		}
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", filepath.Join(dir, name), err)
		}
		digest, err := checksum.Sum(ctx, filepath.Join(dir, name), ix.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("rebuilding manifest for %s %s: %w", datasetID, version, err)
		}
		m.Files[name] = manifest.Entry{Size: info.Size(), Checksum: digest}
	}

	return m, nil
}
