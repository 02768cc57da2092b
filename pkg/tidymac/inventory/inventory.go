// Package inventory folds walker file records into named inventory
// items with counts, sizes, safety labels and reason text, and orders
// the result for presentation.
package inventory

import (
	"fmt"
	"sort"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/devscan"
	"github.com/jamesainslie/tidymac/pkg/tidymac/safety"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
	"github.com/jamesainslie/tidymac/pkg/tidymac/walker"
)

// DefaultMinItemSize drops items below 1 MiB from output.
const DefaultMinItemSize = types.MiB

// Options configures classification.
type Options struct {
	// Guard, when set, drops any item with a refused path.
	Guard *safety.Guard

	// MinItemSize drops items smaller than this many bytes.
	// Zero means the 1 MiB default; negative keeps everything.
	MinItemSize int64

	// MinAge, when positive, excludes files modified more recently
	// than this from an item's sums.
	MinAge time.Duration
}

// Build folds per-target walk results into inventory items. Walk errors
// and guard-refused paths come back as scan errors; empty items and
// items below the minimum size are dropped without one.
func Build(results []walker.TargetResult, opts Options) ([]types.InventoryItem, []types.ScanError) {
	minSize := opts.MinItemSize
	if minSize == 0 {
		minSize = DefaultMinItemSize
	}

	var items []types.InventoryItem
	var errors []types.ScanError

	for _, result := range results {
		for _, scanErr := range result.Errors {
			errors = append(errors, scanErr)
		}

		item, ok := foldTarget(result, opts)
		if !ok {
			continue
		}
		if minSize > 0 && item.Bytes < minSize {
			continue
		}

		if opts.Guard != nil {
			if refused := opts.Guard.CheckAll(item.Paths); len(refused) > 0 {
				// One refused path poisons the whole item.
				for path, reason := range refused {
					errors = append(errors, types.ScanError{
						Path:  path,
						Error: fmt.Sprintf("dropped item %q: %s", item.Name, reason),
					})
				}
				continue
			}
		}

		items = append(items, item)
	}

	return items, errors
}

// foldTarget aggregates one target's records into a single item.
func foldTarget(result walker.TargetResult, opts Options) (types.InventoryItem, bool) {
	target := result.Target

	item := types.InventoryItem{
		Name:     target.Name,
		Category: target.Category,
		Safety:   target.Safety,
		Reason:   target.Reason,
	}
	if len(result.Roots) > 0 {
		item.Path = result.Roots[0]
	}

	var cutoff time.Time
	if opts.MinAge > 0 {
		cutoff = time.Now().Add(-opts.MinAge)
	}

	for _, record := range result.Records {
		if record.Kind != types.KindRegular {
			continue
		}
		if !cutoff.IsZero() && record.ModTime.After(cutoff) {
			continue
		}
		item.Bytes += record.Size
		item.FileCount++
		item.Paths = append(item.Paths, record.Path)
	}

	if item.FileCount == 0 {
		return types.InventoryItem{}, false
	}
	return item, true
}

// FromProjects converts detected developer projects into inventory
// items, one per project subtree. The safety label upgrades from
// Caution to Safe when the project is stale.
func FromProjects(projects []devscan.Project, staleDays int, guard *safety.Guard) ([]types.InventoryItem, []types.ScanError) {
	var items []types.InventoryItem
	var errors []types.ScanError

	for _, project := range projects {
		if project.Bytes == 0 {
			continue
		}

		if guard != nil {
			// Detector-confirmed artifact roots become session
			// allowlist entries; anything still refused is dropped.
			for _, artifact := range project.Artifacts {
				guard.AllowPrefix(artifact)
			}
			if refused := guard.CheckAll(project.Artifacts); len(refused) > 0 {
				for path, reason := range refused {
					errors = append(errors, types.ScanError{Path: path, Error: reason})
				}
				continue
			}
		}

		reason := fmt.Sprintf("%s in %s", project.Kind, types.DisplayPath(project.Root))
		if stale := project.Stale(staleDays); stale {
			reason += fmt.Sprintf("; no source changes for %d+ days", staleDays)
		}

		items = append(items, types.InventoryItem{
			Name:      fmt.Sprintf("%s: %s", project.Kind, types.DisplayPath(project.Root)),
			Category:  "Dev: Projects",
			Path:      project.Root,
			Paths:     project.Artifacts,
			Bytes:     project.Bytes,
			FileCount: project.FileCount,
			Safety:    project.Safety(staleDays),
			Reason:    reason,
		})
	}

	return items, errors
}

// Sort orders items for output: Safe first by descending bytes, then
// Caution, then Dangerous, ties broken by name ascending.
func Sort(items []types.InventoryItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Safety != items[j].Safety {
			return items[i].Safety < items[j].Safety
		}
		if items[i].Bytes != items[j].Bytes {
			return items[i].Bytes > items[j].Bytes
		}
		return items[i].Name < items[j].Name
	})
}
