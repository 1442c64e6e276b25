// Package reconcile decides, per dataset, whether a freshly scanned
// candidate file set requires a new DRS version and which files it can
// reuse from the latest published one.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drstools/drsprep/internal/index"
	"github.com/drstools/drsprep/internal/log"
	"github.com/drstools/drsprep/internal/scan"
)

// Engine computes reconciliation decisions against a version index.
type Engine struct {
	Index *index.Index

	// ExplicitVersion pins the target version (canonical 'v'+digits
	// form). Empty derives a date-based version.
	ExplicitVersion string

	// Parallel bounds concurrent dataset reconciliations.
	Parallel int

	// Now is the clock for derived versions; nil means time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.WithComponent("reconcile")
}

// Reconcile decides the fate of one dataset. The filesystem is never
// touched: decisions are pure reads.
func (e *Engine) Reconcile(ctx context.Context, ds *scan.Dataset) (*Decision, error) {
	if len(ds.Conflicts) > 0 {
		c := ds.Conflicts[0]
		return nil, &DuplicateFileError{Dataset: ds.ID, Leaf: c.Leaf, Paths: c.Paths}
	}

	latest, published, err := e.Index.Latest(ds.Path)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.ID, err)
	}

	if !published {
		version := e.ExplicitVersion
		if version == "" {
			version = index.NextVersion("", e.now())
		}
		return &Decision{
			Dataset:     ds.ID,
			DatasetPath: ds.Path,
			Kind:        KindInitialize,
			Version:     version,
			New:         ds.LeafNames(),
			Incomplete:  ds.Incomplete,
		}, nil
	}

	prev, err := e.Index.ManifestOf(ctx, ds.ID, ds.Path, latest)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.ID, err)
	}

	var reused, added []string
	for leaf, rec := range ds.Files {
		if entry, ok := prev.Files[leaf]; ok && entry.Checksum == rec.Checksum {
			reused = append(reused, leaf)
		} else {
			added = append(added, leaf)
		}
	}
	var removed []string
	for leaf := range prev.Files {
		if _, ok := ds.Files[leaf]; !ok {
			removed = append(removed, leaf)
		}
	}
	sort.Strings(reused)
	sort.Strings(added)
	sort.Strings(removed)

	if len(added) == 0 && len(removed) == 0 {
		return &Decision{
			Dataset:     ds.ID,
			DatasetPath: ds.Path,
			Kind:        KindUpToDate,
			Version:     latest,
			Previous:    latest,
			Reused:      reused,
			Incomplete:  ds.Incomplete,
		}, nil
	}

	version := e.ExplicitVersion
	if version != "" {
		if index.CompareVersions(version, latest) <= 0 {
			return nil, &VersionConflictError{Dataset: ds.ID, Requested: version, Latest: latest}
		}
	} else {
		version = index.NextVersion(latest, e.now())
	}

	return &Decision{
		Dataset:     ds.ID,
		DatasetPath: ds.Path,
		Kind:        KindUpgrade,
		Version:     version,
		Previous:    latest,
		Reused:      reused,
		New:         added,
		Removed:     removed,
		Incomplete:  ds.Incomplete,
	}, nil
}

// ReconcileAll decides every dataset, in parallel. Per-dataset errors are
// returned as failures; only cancellation aborts the batch.
func (e *Engine) ReconcileAll(ctx context.Context, datasets map[string]*scan.Dataset) ([]*Decision, []Failure, error) {
	ids := make([]string, 0, len(datasets))
	for id := range datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parallel := e.Parallel
	if parallel <= 0 {
		parallel = scan.DefaultWorkers
	}

	slots := make([]*Decision, len(ids))
	var mu sync.Mutex
	var failures []Failure

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := e.Reconcile(gctx, datasets[id])
			if err != nil {
				mu.Lock()
				failures = append(failures, Failure{Dataset: id, Err: err})
				mu.Unlock()
				e.logger().Warn("reconciliation failed", "dataset", id, "error", err)
				return nil
			}
			slots[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	decisions := make([]*Decision, 0, len(slots))
	for _, d := range slots {
		if d != nil {
			decisions = append(decisions, d)
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Dataset < failures[j].Dataset })

	return decisions, failures, nil
}
