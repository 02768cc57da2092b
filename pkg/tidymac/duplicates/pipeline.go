package duplicates

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDistance is the Hamming radius for perceptual grouping.
const DefaultMaxDistance = 10

// DefaultHashTimeout bounds full-content hashing of a single file.
const DefaultHashTimeout = 60 * time.Second

// KeepPolicy selects the surviving member of a duplicate group.
type KeepPolicy func(group []Candidate) string

// Candidate pairs a path with the metadata keep policies consult.
type Candidate struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Options configures the pipeline.
type Options struct {
	// Perceptual enables stage 4 for image files.
	Perceptual bool

	// MaxDistance is the Hamming radius for stage 4. Zero means the
	// default of 10.
	MaxDistance int

	// Workers bounds concurrent hashing. Zero means the number of
	// logical cores.
	Workers int

	// HashTimeout bounds stage-3 hashing per file. Zero means the
	// default of 60 seconds.
	HashTimeout time.Duration

	// Keep overrides the default keep-candidate policy.
	Keep KeepPolicy
}

// Result is the pipeline output.
type Result struct {
	// Exact holds the stage-3 confirmed groups in canonical order.
	Exact []types.DuplicateGroup `json:"exact"`

	// Similar holds the stage-4 perceptual groups, reported apart
	// from the exact groups.
	Similar []types.DuplicateGroup `json:"similar,omitempty"`

	// FilesScanned counts the candidate files examined.
	FilesScanned int `json:"files_scanned"`

	// Errors lists unreadable files dropped mid-pipeline.
	Errors []types.ScanError `json:"errors,omitempty"`
}

// Find runs the pipeline over candidate file records. Given identical
// inputs and mtimes, the output groups are identical and canonically
// ordered.
func Find(ctx context.Context, records []types.FileRecord, opts Options) Result {
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = DefaultMaxDistance
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.HashTimeout <= 0 {
		opts.HashTimeout = DefaultHashTimeout
	}
	if opts.Keep == nil {
		opts.Keep = DefaultKeepPolicy
	}

	log := logging.Get("duplicates")
	result := Result{}

	candidates := canonicalize(records, &result)
	result.FilesScanned = len(candidates)

	// Stage 1: size partitioning. Eliminates every file whose size
	// is unique.
	sizeGroups := groupBySize(candidates)
	log.Debug("size partitioning complete", "groups", len(sizeGroups))

	// Stage 2: prefix hash within each size group.
	prefixGroups := regroup(ctx, sizeGroups, opts, &result, func(_ context.Context, path string) (string, error) {
		return PrefixHash(path)
	})
	log.Debug("prefix hashing complete", "groups", len(prefixGroups))

	// Stage 3: full-content hash confirms exact duplicates.
	digests := make(map[string]string)
	var digestsMu sync.Mutex
	exactGroups := regroup(ctx, prefixGroups, opts, &result, func(ctx context.Context, path string) (string, error) {
		hashCtx, cancel := context.WithTimeout(ctx, opts.HashTimeout)
		defer cancel()
		digest, err := FullHash(hashCtx, path)
		if err == nil {
			digestsMu.Lock()
			digests[path] = digest
			digestsMu.Unlock()
		}
		return digest, err
	})

	result.Exact = buildGroups(exactGroups, digests, opts.Keep, types.MatchExact)

	// Stage 4: perceptual matching for images. Groups whose members
	// are all stage-3 confirmed already are not reported again.
	if opts.Perceptual {
		exactPaths := make(map[string]struct{})
		for _, g := range result.Exact {
			for _, p := range g.Paths {
				exactPaths[p] = struct{}{}
			}
		}

		similar := findSimilar(ctx, candidates, opts, &result)
		result.Similar = similar[:0]
		for _, g := range similar {
			novel := false
			for _, p := range g.Paths {
				if _, covered := exactPaths[p]; !covered {
					novel = true
					break
				}
			}
			if novel {
				result.Similar = append(result.Similar, g)
			}
		}
		if len(result.Similar) == 0 {
			result.Similar = nil
		}
	}

	return result
}

// canonicalize resolves symlinks so the same inode is never counted
// twice, and drops everything that is not a regular file.
func canonicalize(records []types.FileRecord, result *Result) []Candidate {
	seen := make(map[string]struct{}, len(records))
	var out []Candidate

	for _, record := range records {
		if record.Kind != types.KindRegular {
			continue
		}
		resolved, err := filepath.EvalSymlinks(record.Path)
		if err != nil {
			result.Errors = append(result.Errors, types.ScanError{Path: record.Path, Error: err.Error()})
			continue
		}
		if _, dup := seen[resolved]; dup {
			continue
		}
		seen[resolved] = struct{}{}
		out = append(out, Candidate{Path: resolved, Size: record.Size, ModTime: record.ModTime})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// groupBySize partitions candidates by exact byte size, discarding
// singletons.
func groupBySize(candidates []Candidate) [][]Candidate {
	bySize := make(map[int64][]Candidate)
	for _, c := range candidates {
		bySize[c.Size] = append(bySize[c.Size], c)
	}

	var groups [][]Candidate
	for _, group := range bySize {
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	sortGroups(groups)
	return groups
}

// regroup hashes every member of every group in parallel, partitions
// by digest, and discards singletons. Unreadable files are recorded
// and dropped.
func regroup(ctx context.Context, groups [][]Candidate, opts Options, result *Result,
	hash func(context.Context, string) (string, error)) [][]Candidate {

	type hashed struct {
		c      Candidate
		digest string
		err    error
	}

	var out [][]Candidate
	for _, group := range groups {
		if ctx.Err() != nil {
			break
		}

		results := make([]hashed, len(group))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i, c := range group {
			g.Go(func() error {
				digest, err := hash(gctx, c.Path)
				results[i] = hashed{c: c, digest: digest, err: err}
				return nil
			})
		}
		_ = g.Wait()

		byDigest := make(map[string][]Candidate)
		for _, h := range results {
			if h.err != nil {
				result.Errors = append(result.Errors, types.ScanError{Path: h.c.Path, Error: h.err.Error()})
				continue
			}
			byDigest[h.digest] = append(byDigest[h.digest], h.c)
		}
		for _, g := range byDigest {
			if len(g) > 1 {
				out = append(out, g)
			}
		}
	}

	sortGroups(out)
	return out
}

// buildGroups converts candidate groups to the public representation,
// applying the keep policy.
func buildGroups(groups [][]Candidate, digests map[string]string, keep KeepPolicy, match types.MatchKind) []types.DuplicateGroup {
	out := make([]types.DuplicateGroup, 0, len(groups))
	for _, group := range groups {
		paths := make([]string, len(group))
		for i, c := range group {
			paths[i] = c.Path
		}
		sort.Strings(paths)

		keeper := keep(group)
		dg := types.DuplicateGroup{
			Paths:     paths,
			SizeBytes: group[0].Size,
			Keep:      keeper,
			Match:     match,
		}
		if digests != nil {
			dg.Digest = digests[paths[0]]
		}
		out = append(out, dg)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Paths[0] < out[j].Paths[0] })
	return out
}

// findSimilar runs stage 4: sniff image candidates, hash them, and
// group by Hamming distance using a BK-tree.
func findSimilar(ctx context.Context, candidates []Candidate, opts Options, result *Result) []types.DuplicateGroup {
	type imageHash struct {
		c    Candidate
		hash uint64
	}

	var mu sync.Mutex
	var hashes []imageHash

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, c := range candidates {
		g.Go(func() error {
			if gctx.Err() != nil || !IsImage(c.Path) {
				return nil
			}
			hash, err := DifferenceHash(c.Path)
			if err != nil {
				mu.Lock()
				result.Errors = append(result.Errors, types.ScanError{Path: c.Path, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			mu.Lock()
			hashes = append(hashes, imageHash{c: c, hash: hash})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(hashes, func(i, j int) bool { return hashes[i].c.Path < hashes[j].c.Path })

	tree := &bkTree{}
	byPath := make(map[string]imageHash, len(hashes))
	for _, h := range hashes {
		tree.Insert(h.hash, h.c.Path)
		byPath[h.c.Path] = h
	}

	assigned := make(map[string]struct{})
	var groups [][]Candidate
	for _, h := range hashes {
		if _, done := assigned[h.c.Path]; done {
			continue
		}
		neighbors := tree.Within(h.hash, opts.MaxDistance)
		sort.Strings(neighbors)

		var members []Candidate
		for _, path := range neighbors {
			if _, done := assigned[path]; done {
				continue
			}
			members = append(members, byPath[path].c)
		}
		if len(members) < 2 {
			continue
		}
		for _, m := range members {
			assigned[m.Path] = struct{}{}
		}
		groups = append(groups, members)
	}

	sortGroups(groups)
	return buildGroups(groups, nil, opts.Keep, types.MatchSimilar)
}

// DefaultKeepPolicy keeps the earliest-modified member; ties break by
// shortest path, then lexicographic order.
func DefaultKeepPolicy(group []Candidate) string {
	best := group[0]
	for _, c := range group[1:] {
		switch {
		case c.ModTime.Before(best.ModTime):
			best = c
		case c.ModTime.Equal(best.ModTime) && len(c.Path) < len(best.Path):
			best = c
		case c.ModTime.Equal(best.ModTime) && len(c.Path) == len(best.Path) && c.Path < best.Path:
			best = c
		}
	}
	return best.Path
}

// sortGroups orders groups and their members canonically so output is
// deterministic for identical inputs.
func sortGroups(groups [][]Candidate) {
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].Path < g[j].Path })
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i]) == 0 || len(groups[j]) == 0 {
			return len(groups[i]) > 0
		}
		return groups[i][0].Path < groups[j][0].Path
	})
}
