package drsprep

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/drstools/drsprep/internal/index"
	"github.com/drstools/drsprep/internal/mapfile"
)

// TreeMapResult is the outcome of emitting mapfiles from a published tree.
type TreeMapResult struct {
	// Mapfiles are the written artifact paths.
	Mapfiles []string

	// Datasets counts dataset directories found under the DRS root.
	Datasets int

	// Failures lists datasets that could not be serialized.
	Failures []DatasetResult
}

// MapfilesFromTree emits mapfiles from the published DRS tree itself,
// without scanning any source directories. Each dataset is serialized at
// its latest version, or at the version pinned by ExplicitVersion.
func (r *Runner) MapfilesFromTree(ctx context.Context) (*TreeMapResult, error) {
	datasetDirs, err := r.findDatasetDirs()
	if err != nil {
		return nil, err
	}

	ix := r.newIndex()
	result := &TreeMapResult{Datasets: len(datasetDirs)}

	var entries []mapfile.Entry
	for _, rel := range datasetDirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		version, failure := r.selectVersion(ix, rel)
		if failure != "" {
			result.Failures = append(result.Failures, DatasetResult{
				Dataset: fallbackDatasetID(rel),
				Path:    rel,
				Outcome: OutcomeFailed,
				Reason:  failure,
			})
			continue
		}

		m, err := ix.ManifestOf(ctx, fallbackDatasetID(rel), rel, version)
		if err != nil {
			result.Failures = append(result.Failures, DatasetResult{
				Dataset: fallbackDatasetID(rel),
				Path:    rel,
				Outcome: OutcomeFailed,
				Version: version,
				Reason:  err.Error(),
			})
			continue
		}

		entries = append(entries, mapfile.FromManifest(m, r.DRSRoot, rel)...)
	}

	writer := &mapfile.Writer{Dir: r.MapfileDir, Combined: r.CombinedMapfile}
	paths, err := writer.Write(entries)
	if err != nil {
		return nil, err
	}
	result.Mapfiles = paths

	return result, nil
}

// findDatasetDirs walks the DRS root and returns the version-less dataset
// paths, identified by containing at least one version directory.
func (r *Runner) findDatasetDirs() ([]string, error) {
	seen := make(map[string]bool)

	err := filepath.WalkDir(r.DRSRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || p == r.DRSRoot {
			return nil
		}
		if index.IsVersionID(d.Name()) {
			parent, relErr := filepath.Rel(r.DRSRoot, filepath.Dir(p))
			if relErr == nil && parent != "." {
				seen[filepath.ToSlash(parent)] = true
			}
			return fs.SkipDir // never descend into version directories
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dirs := make([]string, 0, len(seen))
	for rel := range seen {
		dirs = append(dirs, rel)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// selectVersion picks the version to serialize for one dataset. Returns a
// failure reason when the pinned version is absent.
func (r *Runner) selectVersion(ix *index.Index, rel string) (string, string) {
	versions, err := ix.Versions(rel)
	if err != nil {
		return "", err.Error()
	}
	if len(versions) == 0 {
		return "", "no published versions"
	}

	if r.ExplicitVersion == "" {
		return versions[len(versions)-1], ""
	}
	for _, v := range versions {
		if index.CompareVersions(v, r.ExplicitVersion) == 0 {
			return v, ""
		}
	}
	return "", "pinned version " + r.ExplicitVersion + " not published"
}

func fallbackDatasetID(rel string) string {
	return strings.ReplaceAll(rel, "/", ".")
}
