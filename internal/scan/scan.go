// Package scan walks source trees, filters candidates, and builds
// per-dataset candidate manifests using a bounded worker pool for the
// classify/checksum phase.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/drstools/drsprep/internal/classify"
	"github.com/drstools/drsprep/internal/log"
	"github.com/drstools/drsprep/internal/project"
)

// DefaultWorkers is the checksum pool size when none is configured.
const DefaultWorkers = 4

// Scanner runs the scan/classify/checksum phase.
type Scanner struct {
	Roots   []string
	Filter  Filter
	Rules   *project.Rules
	Workers int

	// Sum computes a file's checksum; usually (*checksum.Memo).Sum so each
	// path is hashed at most once per run. Tests inject failures here.
	Sum func(ctx context.Context, path string) (string, error)

	Logger *slog.Logger
}

// Run walks the roots and returns the per-dataset candidate manifests.
// Per-file failures are collected in the result; only invalid roots and
// run cancellation are returned as errors.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	for _, root := range s.Roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("scan root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("scan root %s: not a directory", root)
		}
	}

	logger := s.Logger
	if logger == nil {
		logger = log.WithComponent("scan")
	}

	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var matched, filtered atomic.Int64

	cands := make(chan Candidate)
	outs := make(chan outcome)

	// Walker: lazily emits candidates. Stops scheduling promptly on
	// cancellation; in-flight worker operations finish on their own.
	var walkErrs []FileError
	go func() {
		defer close(cands)
		for _, root := range s.Roots {
			err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
				if ctx.Err() != nil {
					return fs.SkipAll
				}
				if err != nil {
					walkErrs = append(walkErrs, FileError{Path: p, Kind: KindChecksum, Err: err})
					return nil
				}
				name := d.Name()
				if d.IsDir() {
					if p != root && !s.Filter.EnterDir(name) {
						return fs.SkipDir
					}
					return nil
				}
				if !d.Type().IsRegular() {
					return nil
				}
				if !s.Filter.KeepFile(name) {
					filtered.Add(1)
					return nil
				}
				info, err := d.Info()
				if err != nil {
					walkErrs = append(walkErrs, FileError{Path: p, Kind: KindChecksum, Err: err})
					return nil
				}
				matched.Add(1)
				select {
				case cands <- Candidate{Path: p, Size: info.Size(), ModTime: info.ModTime()}:
				case <-ctx.Done():
					return fs.SkipAll
				}
				return nil
			})
			if err != nil {
				walkErrs = append(walkErrs, FileError{Path: root, Kind: KindChecksum, Err: err})
			}
		}
	}()

	// Worker pool: classify and checksum concurrently. Read-only work, so
	// parallelism is applied exactly here.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range cands {
				outs <- s.process(ctx, c)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outs)
	}()

	// Aggregator: the single point funneling worker results into
	// per-dataset accumulators, so no manifest locking is needed.
	result := &Result{Datasets: make(map[string]*Dataset)}
	for o := range outs {
		s.aggregate(result, o, logger)
	}

	result.Matched = matched.Load()
	result.Filtered = filtered.Load()
	result.Errors = append(result.Errors, walkErrs...)

	if err := ctx.Err(); err != nil {
		return result, err
	}

	logger.Debug("scan complete",
		"datasets", len(result.Datasets),
		"matched", result.Matched,
		"filtered", result.Filtered,
		"errors", len(result.Errors))

	return result, nil
}

type outcome struct {
	rec   *FileRecord
	class *classify.Classification
	ferr  *FileError
}

func (s *Scanner) process(ctx context.Context, c Candidate) outcome {
	cls, err := classify.Classify(c.Path, s.Rules)
	if err != nil {
		return outcome{ferr: &FileError{Path: c.Path, Kind: KindClassification, Err: err}}
	}

	digest, err := s.Sum(ctx, c.Path)
	if err != nil {
		return outcome{
			class: cls,
			ferr:  &FileError{Path: c.Path, Kind: KindChecksum, Err: err},
		}
	}

	return outcome{rec: &FileRecord{
		Path:     c.Path,
		Size:     c.Size,
		ModTime:  c.ModTime,
		Checksum: digest,
		Class:    cls,
	}}
}

func (s *Scanner) aggregate(result *Result, o outcome, logger *slog.Logger) {
	if o.ferr != nil {
		result.Errors = append(result.Errors, *o.ferr)
		// A checksum failure excludes the file but flags its dataset
		// incomplete; a classification failure has no dataset to flag.
		if o.class != nil {
			ds := result.dataset(o.class)
			ds.Incomplete = true
		}
		return
	}

	rec := o.rec
	ds := result.dataset(rec.Class)
	leaf := rec.Class.LeafName

	existing, ok := ds.Files[leaf]
	if !ok {
		ds.Files[leaf] = *rec
		return
	}
	if existing.Checksum == rec.Checksum {
		result.Duplicates++
		logger.Debug("duplicate file content", "dataset", ds.ID, "leaf", leaf, "path", rec.Path)
		return
	}

	// Same relative DRS path, different content. Never pick a winner.
	for i := range ds.Conflicts {
		if ds.Conflicts[i].Leaf == leaf {
			ds.Conflicts[i].Paths = append(ds.Conflicts[i].Paths, rec.Path)
			return
		}
	}
	ds.Conflicts = append(ds.Conflicts, Conflict{
		Leaf:  leaf,
		Paths: []string{existing.Path, rec.Path},
	})
}

func (r *Result) dataset(cls *classify.Classification) *Dataset {
	ds, ok := r.Datasets[cls.DatasetID]
	if !ok {
		ds = &Dataset{
			ID:    cls.DatasetID,
			Path:  cls.DatasetPath,
			Files: make(map[string]FileRecord),
		}
		r.Datasets[cls.DatasetID] = ds
	}
	return ds
}
