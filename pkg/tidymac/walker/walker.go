// Package walker performs bounded-parallel traversal of resolved scan
// targets, producing sized file records grouped by source target. It
// uses fastwalk within each root and an errgroup-bounded pool across
// targets, capped at the number of logical cores; the roots of a single
// target are walked one after another.
package walker

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/tidymac/pkg/tidymac/catalog"
	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
	"github.com/jamesainslie/tidymac/pkg/tidymac/safety"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"golang.org/x/sync/errgroup"
)

// DefaultTargetBudget is the per-target traversal time budget.
const DefaultTargetBudget = 30 * time.Second

// progressInterval is the minimum gap between progress callbacks.
const progressInterval = 100 * time.Millisecond

// Progress is a snapshot of walk state for progress reporting.
type Progress struct {
	Target       string `json:"target"`
	FilesScanned int64  `json:"files_scanned"`
	BytesScanned int64  `json:"bytes_scanned"`
	CurrentPath  string `json:"current_path"`
}

// Options configures a Walker.
type Options struct {
	// Guard is consulted before descending into directories.
	Guard *safety.Guard

	// Env supplies the resolution environment for targets.
	Env catalog.Env

	// Exclude holds glob patterns for paths to skip.
	Exclude []string

	// Workers bounds concurrent target walks. Zero means the number
	// of logical cores.
	Workers int

	// TargetBudget is the per-target time budget. Zero means the
	// default of 30 seconds.
	TargetBudget time.Duration

	// OnProgress, when set, receives throttled progress updates.
	OnProgress func(Progress)
}

// TargetResult holds the records collected for one scan target.
type TargetResult struct {
	// Target is the source target.
	Target catalog.ScanTarget

	// Roots are the resolved roots that were walked.
	Roots []string

	// Records are the file records collected, in walk order.
	Records []types.FileRecord

	// Errors are the non-fatal errors attached to this target.
	Errors []types.ScanError

	// Truncated reports that the time budget halted traversal early.
	Truncated bool
}

// Walker traverses resolved scan targets in parallel.
type Walker struct {
	opts Options
	log  *logging.Logger

	filesScanned atomic.Int64
	bytesScanned atomic.Int64
	lastProgress atomic.Int64
}

// New creates a Walker, applying defaults for zero-valued options.
func New(opts Options) *Walker {
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.TargetBudget <= 0 {
		opts.TargetBudget = DefaultTargetBudget
	}
	return &Walker{opts: opts, log: logging.Get("walker")}
}

// WalkTargets walks every target, bounded by the worker pool, and
// returns per-target results in the input order.
func (w *Walker) WalkTargets(ctx context.Context, targets []catalog.ScanTarget) ([]TargetResult, error) {
	results := make([]TargetResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Workers)

	for i := range targets {
		g.Go(func() error {
			results[i] = w.walkTarget(gctx, targets[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// WalkRoot walks a single caller-supplied root with no target filters,
// returning every regular file. The duplicate pipeline feeds on this.
func (w *Walker) WalkRoot(ctx context.Context, root string) ([]types.FileRecord, []types.ScanError, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return nil, nil, os.ErrInvalid
	}

	target := catalog.ScanTarget{
		Name:      filepath.Base(abs),
		Kind:      catalog.Literal,
		Paths:     []string{abs},
		Recursive: true,
	}
	result := w.walkTarget(ctx, target)
	return result.Records, result.Errors, ctx.Err()
}

// walkTarget resolves and walks one target under its time budget.
func (w *Walker) walkTarget(ctx context.Context, target catalog.ScanTarget) TargetResult {
	result := TargetResult{Target: target}

	roots, err := target.Resolve(w.opts.Env)
	if err != nil {
		result.Errors = append(result.Errors, types.ScanError{Error: err.Error()})
		return result
	}
	if len(roots) == 0 {
		return result
	}
	result.Roots = roots

	budget, cancel := context.WithTimeout(ctx, w.opts.TargetBudget)
	defer cancel()

	state := &walkState{
		walker:  w,
		target:  &target,
		visited: make(map[fileID]struct{}),
		cutoff:  staleCutoff(target.MinAgeDays),
	}

	for _, root := range roots {
		if budget.Err() != nil {
			break
		}
		w.walkOneRoot(budget, state, root)
	}

	if errors.Is(budget.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		result.Truncated = true
		result.Errors = append(result.Errors, types.ScanError{
			Path:  roots[0],
			Error: "walk budget exceeded; results are partial",
		})
		w.log.Warn("target walk truncated", "target", target.Name, "budget", w.opts.TargetBudget)
	}

	result.Records = state.records
	result.Errors = append(result.Errors, state.errors...)
	return result
}

// walkState accumulates per-target walk output. fastwalk invokes the
// callback from multiple goroutines, so the collections are locked.
type walkState struct {
	walker  *Walker
	target  *catalog.ScanTarget
	cutoff  time.Time
	mu      sync.Mutex
	records []types.FileRecord
	errors  []types.ScanError
	visited map[fileID]struct{}
}

// walkOneRoot runs fastwalk below a single resolved root.
func (w *Walker) walkOneRoot(ctx context.Context, state *walkState, root string) {
	conf := fastwalk.Config{
		Follow:     false,
		NumWorkers: w.opts.Workers,
	}

	err := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return context.Canceled
		}
		return state.visit(root, path, d, err)
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, fastwalk.ErrSkipFiles) {
		state.addError(root, err)
	}
}

// visit handles a single walk entry.
func (s *walkState) visit(root, path string, d fs.DirEntry, err error) error {
	if err != nil {
		s.addError(path, err)
		return nil
	}

	if s.walker.isExcluded(path) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if d.IsDir() {
		return s.visitDir(root, path)
	}

	if !s.target.Recursive && filepath.Dir(path) != root {
		return nil
	}

	switch {
	case d.Type().IsRegular():
		s.visitFile(path, d)
	case d.Type()&fs.ModeSymlink != 0:
		s.visitSymlink(path)
	}
	return nil
}

// visitDir records descent decisions: guard-denied trees are skipped,
// cycles are broken by the (device, inode) visited set, and
// non-recursive targets stop below the root.
func (s *walkState) visitDir(root, path string) error {
	if path != root && !s.target.Recursive {
		return filepath.SkipDir
	}

	if s.walker.opts.Guard != nil && !s.walker.opts.Guard.MayDescend(path) {
		return filepath.SkipDir
	}

	info, err := os.Stat(path)
	if err != nil {
		s.addError(path, err)
		return filepath.SkipDir
	}
	if id, ok := statID(info); ok {
		s.mu.Lock()
		_, seen := s.visited[id]
		if !seen {
			s.visited[id] = struct{}{}
		}
		s.mu.Unlock()
		if seen {
			return filepath.SkipDir
		}
	}
	return nil
}

// visitFile records a regular file after applying target filters.
func (s *walkState) visitFile(path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		s.addError(path, err)
		return
	}

	if len(s.target.Extensions) > 0 && !matchesExtension(path, s.target.Extensions) {
		return
	}
	if s.target.MinSize > 0 && info.Size() < s.target.MinSize {
		return
	}
	if !s.cutoff.IsZero() && info.ModTime().After(s.cutoff) {
		return
	}

	s.walker.filesScanned.Add(1)
	s.walker.bytesScanned.Add(info.Size())
	s.walker.reportProgress(s.target.Name, path)

	s.mu.Lock()
	s.records = append(s.records, types.FileRecord{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Kind:    types.KindRegular,
	})
	s.mu.Unlock()
}

// visitSymlink records the link itself and never descends through it.
// A link resolving inside the root points at content the walk reaches
// anyway; counting the target here would double it. A link escaping
// the root must not be followed at all.
func (s *walkState) visitSymlink(path string) {
	if _, err := filepath.EvalSymlinks(path); err != nil {
		s.addError(path, err)
		return
	}

	record := types.FileRecord{Path: path, Kind: types.KindSymlink}
	if info, err := os.Lstat(path); err == nil {
		record.ModTime = info.ModTime()
	}

	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
}

// addError appends a non-fatal error thread-safely.
func (s *walkState) addError(path string, err error) {
	s.mu.Lock()
	s.errors = append(s.errors, types.ScanError{Path: path, Error: err.Error()})
	s.mu.Unlock()
}

// isExcluded checks a path against the exclusion patterns: prefix
// match for directories, glob match for basenames and full paths.
func (w *Walker) isExcluded(path string) bool {
	for _, pattern := range w.opts.Exclude {
		if pattern == "" {
			continue
		}
		if path == pattern || strings.HasPrefix(path, pattern+string(filepath.Separator)) {
			return true
		}
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
	}
	return false
}

// reportProgress invokes the progress callback at a bounded cadence.
func (w *Walker) reportProgress(target, current string) {
	if w.opts.OnProgress == nil {
		return
	}
	now := time.Now().UnixMilli()
	last := w.lastProgress.Load()
	if now-last < progressInterval.Milliseconds() {
		return
	}
	if !w.lastProgress.CompareAndSwap(last, now) {
		return
	}
	w.opts.OnProgress(Progress{
		Target:       target,
		FilesScanned: w.filesScanned.Load(),
		BytesScanned: w.bytesScanned.Load(),
		CurrentPath:  current,
	})
}

// matchesExtension checks a path against an extension whitelist
// (lowercase, without the dot).
func matchesExtension(path string, extensions []string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, want := range extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// staleCutoff converts a minimum age in days to an mtime cutoff.
// Files modified after the cutoff are too young to collect.
func staleCutoff(minAgeDays int) time.Time {
	if minAgeDays <= 0 {
		return time.Time{}
	}
	return time.Now().AddDate(0, 0, -minAgeDays)
}
