// Package apply materializes reconciliation decisions on the filesystem:
// version directories, file transfers, manifest records, and the latest
// symlink.
package apply

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/drstools/drsprep/internal/log"
	"github.com/drstools/drsprep/internal/manifest"
	"github.com/drstools/drsprep/internal/reconcile"
	"github.com/drstools/drsprep/internal/scan"
)

// ExecError reports a failed dataset materialization. Files already placed
// in the new version directory are left for inspection; there is no
// automatic rollback.
type ExecError struct {
	Dataset string
	Version string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("dataset %s: materializing %s failed: %s — partial version directory left for inspection",
		e.Dataset, e.Version, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Applied summarizes one dataset's materialized decision.
type Applied struct {
	Dataset    string
	Version    string
	VersionDir string

	// Reused counts files hard-linked from the previous version.
	Reused int

	// Transferred counts files brought in from the scan location.
	Transferred int

	Manifest *manifest.Manifest
}

// Executor applies decisions under a DRS root. Mutations for one dataset
// are strictly sequential; different datasets may be applied concurrently
// by the caller since they never share a version directory.
type Executor struct {
	// Root is the DRS tree root.
	Root string

	// Mode names the file-transfer mode for new files.
	Mode string

	// Modes resolves transfer modes; nil means DefaultRegistry.
	Modes *Registry

	// ChecksumType labels manifests written by this executor.
	ChecksumType string

	Logger *slog.Logger
}

func (x *Executor) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return log.WithComponent("apply")
}

// Apply materializes one decision. UpToDate decisions are a no-op. The
// files argument is the dataset's candidate manifest from the scan.
func (x *Executor) Apply(ctx context.Context, d *reconcile.Decision, files map[string]scan.FileRecord) (*Applied, error) {
	applied := &Applied{Dataset: d.Dataset, Version: d.Version}

	if d.Kind == reconcile.KindUpToDate {
		return applied, nil
	}

	registry := x.Modes
	if registry == nil {
		registry = DefaultRegistry()
	}
	mode, err := registry.Get(x.Mode)
	if err != nil {
		return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
	}

	relDir := path.Join(d.DatasetPath, d.Version)
	versionDir, err := SafeMkdirAll(x.Root, filepath.FromSlash(relDir), 0755)
	if err != nil {
		return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
	}
	applied.VersionDir = versionDir

	m := &manifest.Manifest{
		Format:       manifest.FormatVersion,
		Dataset:      d.Dataset,
		Version:      d.Version,
		ChecksumType: x.ChecksumType,
		Files:        make(map[string]manifest.Entry),
	}

	prevDir := filepath.Join(x.Root, filepath.FromSlash(d.DatasetPath), d.Previous)

	for _, leaf := range d.Reused {
		if err := ctx.Err(); err != nil {
			return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
		}
		rec, ok := files[leaf]
		if !ok {
			return applied, &ExecError{Dataset: d.Dataset, Version: d.Version,
				Err: fmt.Errorf("reused file '%s' missing from candidate manifest", leaf)}
		}
		dst := filepath.Join(versionDir, leaf)
		if err := reuseFile(filepath.Join(prevDir, leaf), rec.Path, dst); err != nil {
			return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
		}
		applied.Reused++
		m.Files[leaf] = manifest.Entry{Size: rec.Size, Checksum: rec.Checksum}
	}

	for _, leaf := range d.New {
		if err := ctx.Err(); err != nil {
			return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
		}
		rec, ok := files[leaf]
		if !ok {
			return applied, &ExecError{Dataset: d.Dataset, Version: d.Version,
				Err: fmt.Errorf("new file '%s' missing from candidate manifest", leaf)}
		}
		if err := mode.Transfer(rec.Path, filepath.Join(versionDir, leaf)); err != nil {
			return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
		}
		applied.Transferred++
		m.Files[leaf] = manifest.Entry{Size: rec.Size, Checksum: rec.Checksum}
	}

	if err := manifest.Save(filepath.Join(versionDir, manifest.FileName), m); err != nil {
		return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
	}
	applied.Manifest = m

	if err := flipLatest(filepath.Dir(versionDir), d.Version); err != nil {
		return applied, &ExecError{Dataset: d.Dataset, Version: d.Version, Err: err}
	}

	x.logger().Info("version materialized",
		"dataset", d.Dataset,
		"version", d.Version,
		"reused", applied.Reused,
		"transferred", applied.Transferred)

	return applied, nil
}

// reuseFile places an unchanged file into the new version directory,
// preferring a hard link to the previous version's copy. If that copy is
// unusable (pruned tree, different filesystem) the file is taken from the
// scan location instead.
func reuseFile(prevPath, scanPath, dst string) error {
	if err := os.Link(prevPath, dst); err == nil {
		return nil
	}
	if err := os.Link(scanPath, dst); err == nil {
		return nil
	}
	return copyFile(scanPath, dst)
}

// flipLatest points the dataset's 'latest' symlink at version, atomically
// replacing any previous target.
func flipLatest(datasetDir, version string) error {
	tmp := filepath.Join(datasetDir, ".latest.tmp")
	_ = os.Remove(tmp)
	if err := os.Symlink(version, tmp); err != nil {
		return fmt.Errorf("creating latest symlink: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(datasetDir, "latest")); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("updating latest symlink: %w", err)
	}
	return nil
}
