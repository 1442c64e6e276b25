// Package drsprep wires the scan, reconciliation, execution, and mapfile
// stages into a single pipeline run over a DRS tree.
package drsprep

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/drstools/drsprep/internal/apply"
	"github.com/drstools/drsprep/internal/checksum"
	"github.com/drstools/drsprep/internal/index"
	"github.com/drstools/drsprep/internal/log"
	"github.com/drstools/drsprep/internal/manifest"
	"github.com/drstools/drsprep/internal/mapfile"
	"github.com/drstools/drsprep/internal/project"
	"github.com/drstools/drsprep/internal/reconcile"
	"github.com/drstools/drsprep/internal/scan"
)

// Runner holds the immutable configuration of one pipeline invocation.
type Runner struct {
	Rules   *project.Rules
	Roots   []string
	DRSRoot string

	Filter  scan.Filter
	Workers int

	// Mode is the file-transfer mode for new files (default link).
	Mode string

	// ExplicitVersion pins the target version in canonical form; empty
	// derives from the current date.
	ExplicitVersion string

	MapfileDir      string
	CombinedMapfile bool

	// Now is the clock for derived versions; nil means time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// RunOptions selects what a run mutates.
type RunOptions struct {
	// DryRun stops after decisions; the filesystem is never touched.
	DryRun bool

	// WriteMapfiles emits mapfiles for the run's resulting versions.
	WriteMapfiles bool
}

// Plan is the decided-but-unapplied state of a run, used for previews.
type Plan struct {
	Scan      *scan.Result
	Decisions []*reconcile.Decision
	Failures  []reconcile.Failure
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return scan.DefaultWorkers
}

func (r *Runner) mode() string {
	if r.Mode != "" {
		return r.Mode
	}
	return "link"
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.WithComponent("runner")
}

func (r *Runner) newIndex() *index.Index {
	return &index.Index{
		Root:      r.DRSRoot,
		Algorithm: r.Rules.Algorithm(),
		Logger:    r.logger(),
	}
}

// Plan scans the roots and reconciles every dataset without mutating the
// DRS tree.
func (r *Runner) Plan(ctx context.Context) (*Plan, error) {
	memo := checksum.NewMemo(r.Rules.Algorithm())
	scanner := &scan.Scanner{
		Roots:   r.Roots,
		Filter:  r.Filter,
		Rules:   r.Rules,
		Workers: r.workers(),
		Sum:     memo.Sum,
		Logger:  r.logger(),
	}

	res, err := scanner.Run(ctx)
	if err != nil {
		return nil, err
	}

	engine := &reconcile.Engine{
		Index:           r.newIndex(),
		ExplicitVersion: r.ExplicitVersion,
		Parallel:        r.workers(),
		Now:             r.Now,
		Logger:          r.logger(),
	}
	decisions, failures, err := engine.ReconcileAll(ctx, res.Datasets)
	if err != nil {
		return nil, err
	}

	return &Plan{Scan: res, Decisions: decisions, Failures: failures}, nil
}

// Run executes the full pipeline. Per-dataset failures never abort the
// run; they are reported in the result.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	runID := uuid.NewString()
	logger := r.logger().With("run_id", runID, "project", r.Rules.Project)

	plan, err := r.Plan(ctx)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:      runID,
		Project:    r.Rules.Project,
		DryRun:     opts.DryRun,
		FileErrors: plan.Scan.Errors,
		Matched:    plan.Scan.Matched,
		Filtered:   plan.Scan.Filtered,
		Duplicates: plan.Scan.Duplicates,
	}

	for _, f := range plan.Failures {
		result.Datasets = append(result.Datasets, DatasetResult{
			Dataset: f.Dataset,
			Path:    datasetPath(plan.Scan, f.Dataset),
			Outcome: OutcomeFailed,
			Reason:  f.Err.Error(),
		})
	}

	if opts.DryRun {
		for _, d := range plan.Decisions {
			result.Datasets = append(result.Datasets, decisionResult(d))
		}
		sortResults(result.Datasets)
		return result, nil
	}

	applied, execResults := r.execute(ctx, plan)
	result.Datasets = append(result.Datasets, execResults...)
	sortResults(result.Datasets)

	if opts.WriteMapfiles {
		entries, err := r.collectEntries(ctx, plan, applied)
		if err != nil {
			return result, err
		}
		writer := &mapfile.Writer{Dir: r.MapfileDir, Combined: r.CombinedMapfile}
		paths, err := writer.Write(entries)
		if err != nil {
			return result, err
		}
		result.Mapfiles = paths
	}

	upToDate, initialized, upgraded, failed := result.Counts()
	logger.Info("run complete",
		"up_to_date", upToDate,
		"initialized", initialized,
		"upgraded", upgraded,
		"failed", failed,
		"file_errors", len(result.FileErrors))

	return result, nil
}

// execute applies the plan's decisions. Datasets run concurrently; each
// dataset's mutations stay sequential inside one Apply call.
func (r *Runner) execute(ctx context.Context, plan *Plan) (map[string]*apply.Applied, []DatasetResult) {
	executor := &apply.Executor{
		Root:         r.DRSRoot,
		Mode:         r.mode(),
		ChecksumType: string(r.Rules.Algorithm()),
		Logger:       r.logger(),
	}

	applied := make(map[string]*apply.Applied)
	results := make([]DatasetResult, 0, len(plan.Decisions))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for _, d := range plan.Decisions {
		d := d
		g.Go(func() error {
			a, err := executor.Apply(gctx, d, plan.Scan.Datasets[d.Dataset].Files)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				dr := decisionResult(d)
				dr.Outcome = OutcomeFailed
				dr.Reason = err.Error()
				results = append(results, dr)
				return nil
			}
			applied[d.Dataset] = a
			results = append(results, decisionResult(d))
			return nil
		})
	}
	// Apply never returns a group error; cancellation surfaces as
	// per-dataset execution errors.
	_ = g.Wait()

	return applied, results
}

// collectEntries gathers mapfile entries for every dataset at its
// resulting version, including up-to-date datasets at their latest.
func (r *Runner) collectEntries(ctx context.Context, plan *Plan, applied map[string]*apply.Applied) ([]mapfile.Entry, error) {
	ix := r.newIndex()

	var entries []mapfile.Entry
	for _, d := range plan.Decisions {
		var m *manifest.Manifest
		if a, ok := applied[d.Dataset]; ok && a.Manifest != nil {
			m = a.Manifest
		} else if d.Kind == reconcile.KindUpToDate {
			var err error
			m, err = ix.ManifestOf(ctx, d.Dataset, d.DatasetPath, d.Version)
			if err != nil {
				return nil, fmt.Errorf("collecting mapfile entries: %w", err)
			}
		} else {
			continue // failed dataset
		}
		entries = append(entries, mapfile.FromManifest(m, r.DRSRoot, d.DatasetPath)...)
	}
	return entries, nil
}

func decisionResult(d *reconcile.Decision) DatasetResult {
	dr := DatasetResult{
		Dataset:    d.Dataset,
		Path:       d.DatasetPath,
		Version:    d.Version,
		Reused:     len(d.Reused),
		New:        len(d.New),
		Removed:    len(d.Removed),
		Incomplete: d.Incomplete,
	}
	switch d.Kind {
	case reconcile.KindUpToDate:
		dr.Outcome = OutcomeUpToDate
	case reconcile.KindInitialize:
		dr.Outcome = OutcomeInitialized
	case reconcile.KindUpgrade:
		dr.Outcome = OutcomeUpgraded
	}
	return dr
}

func datasetPath(res *scan.Result, id string) string {
	if ds, ok := res.Datasets[id]; ok {
		return ds.Path
	}
	return ""
}

func sortResults(results []DatasetResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Dataset < results[j].Dataset
	})
}
