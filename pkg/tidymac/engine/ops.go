package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/jamesainslie/tidymac/pkg/tidymac/catalog"
	"github.com/jamesainslie/tidymac/pkg/tidymac/duplicates"
	"github.com/jamesainslie/tidymac/pkg/tidymac/profile"
	"github.com/jamesainslie/tidymac/pkg/tidymac/session"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/jamesainslie/tidymac/pkg/tidymac/walker"
	"github.com/shirou/gopsutil/v4/disk"
)

// ProfileSummary is the listing view of a profile.
type ProfileSummary struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Aggression  profile.Aggression `json:"aggression"`
}

// ListProfiles returns the available profiles, built-ins first.
func (e *Engine) ListProfiles() ([]ProfileSummary, error) {
	profiles, err := profile.List()
	if err != nil {
		return nil, err
	}
	summaries := make([]ProfileSummary, len(profiles))
	for i, p := range profiles {
		summaries[i] = ProfileSummary{Name: p.Name, Description: p.Description, Aggression: p.Aggression}
	}
	return summaries, nil
}

// ListSessions returns session summaries, newest first.
func (e *Engine) ListSessions() ([]session.Summary, error) {
	return e.manifest.List()
}

// Restore undoes a soft session by id.
func (e *Engine) Restore(sessionID string) (*session.RestoreReport, error) {
	return e.manifest.Undo(sessionID)
}

// Orphans lists staging directories missing their manifest, left by a
// crash mid-session.
func (e *Engine) Orphans() ([]string, error) {
	return e.manifest.Orphans()
}

// PurgeRequest selects which sessions to purge.
type PurgeRequest struct {
	// All purges every session, not just expired ones.
	All bool `json:"all,omitempty"`

	// SessionID limits the purge to one session.
	SessionID string `json:"session_id,omitempty"`

	// Force allows purging a non-expired session by id.
	Force bool `json:"force,omitempty"`
}

// Purge removes expired (or all) sessions and their staged trees.
func (e *Engine) Purge(req PurgeRequest) (*session.PurgeReport, error) {
	if req.SessionID != "" {
		bytes, err := e.manifest.PurgeSession(req.SessionID, req.Force || req.All)
		if err != nil {
			return nil, err
		}
		return &session.PurgeReport{SessionsPurged: 1, BytesFreed: bytes}, nil
	}

	policy := session.PurgeExpired
	if req.All {
		policy = session.PurgeAll
	}
	return e.manifest.Purge(policy)
}

// FindDuplicates walks a caller-supplied root and runs the duplicate
// pipeline over its regular files.
func (e *Engine) FindDuplicates(ctx context.Context, root string, perceptual bool) (*duplicates.Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("duplicate root is not a directory: %s", root)
	}

	// The caller vouches for this root; allow cleaning inside it.
	e.guard.AllowPrefix(root)

	w := walker.New(walker.Options{
		Guard:   e.guard,
		Env:     e.env,
		Exclude: e.cfg.Exclude,
		// Duplicate walks are caller-driven; give them a wider
		// budget than catalog targets.
		TargetBudget: 4 * walker.DefaultTargetBudget,
		OnProgress: func(p walker.Progress) {
			e.progress.report(p.BytesScanned, p.CurrentPath)
		},
	})

	records, walkErrors, err := w.WalkRoot(ctx, root)
	if err != nil {
		return nil, err
	}

	result := duplicates.Find(ctx, records, duplicates.Options{Perceptual: perceptual})
	result.Errors = append(walkErrors, result.Errors...)
	return &result, nil
}

// CategoryUsage is one row of the disk-usage breakdown.
type CategoryUsage struct {
	Category string `json:"category"`
	Bytes    int64  `json:"bytes"`
}

// DiskUsageReport is the output of the disk usage operation.
type DiskUsageReport struct {
	Path         string          `json:"path"`
	TotalBytes   uint64          `json:"total_bytes"`
	UsedBytes    uint64          `json:"used_bytes"`
	FreeBytes    uint64          `json:"free_bytes"`
	UsedPercent  float64         `json:"used_percent"`
	Categories   []CategoryUsage `json:"categories"`
	TotalScanned int64           `json:"total_scanned"`
}

// DiskUsage reports filesystem usage for the home volume plus a
// breakdown of the catalog categories by current size.
func (e *Engine) DiskUsage(ctx context.Context) (*DiskUsageReport, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/"
	}

	usage, err := disk.Usage(home)
	if err != nil {
		return nil, fmt.Errorf("reading disk usage: %w", err)
	}

	report := &DiskUsageReport{
		Path:        usage.Path,
		TotalBytes:  usage.Total,
		UsedBytes:   usage.Used,
		FreeBytes:   usage.Free,
		UsedPercent: usage.UsedPercent,
	}

	w := walker.New(walker.Options{Guard: e.guard, Env: e.env, Exclude: e.cfg.Exclude})

	var walkTargets []catalog.ScanTarget
	for _, target := range catalog.All() {
		if target.Kind != catalog.Detector {
			walkTargets = append(walkTargets, target)
		}
	}
	results, err := w.WalkTargets(ctx, walkTargets)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]int64)
	for _, result := range results {
		var total int64
		for _, record := range result.Records {
			if record.Kind == types.KindRegular {
				total += record.Size
			}
		}
		byCategory[result.Target.Category] += total
		report.TotalScanned += total
	}

	for _, target := range catalog.All() {
		bytes, ok := byCategory[target.Category]
		if !ok {
			continue
		}
		delete(byCategory, target.Category)
		report.Categories = append(report.Categories, CategoryUsage{
			Category: target.Category,
			Bytes:    bytes,
		})
	}

	return report, nil
}
