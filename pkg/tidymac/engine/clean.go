package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/session"
	"github.com/jamesainslie/tidymac/pkg/tidymac/staging"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
)

// CleanRequest selects what to clean and how.
type CleanRequest struct {
	// Profile drives the scan. Empty uses the configured default.
	Profile string `json:"profile"`

	// Mode is preview, soft or hard.
	Mode types.Mode `json:"mode"`

	// Items selects inventory items by name. Empty means every
	// Safe and Caution item; Dangerous items run only when named.
	Items []string `json:"items,omitempty"`

	// Force removes files even when they changed since the scan.
	Force bool `json:"force,omitempty"`
}

// CleanReport is the result of a clean operation.
type CleanReport struct {
	Mode         types.Mode `json:"mode"`
	FilesRemoved int        `json:"files_removed"`
	BytesFreed   int64      `json:"bytes_freed"`
	SessionID    string     `json:"session_id,omitempty"`
	Errors       []string   `json:"errors"`
}

// Clean scans under the request's profile and applies the mode to the
// selected inventory subset. Soft and hard modes hold the session
// lock; at most one session is open at a time.
func (e *Engine) Clean(ctx context.Context, req CleanRequest) (*CleanReport, error) {
	if req.Mode == "" {
		req.Mode = types.ModePreview
	}
	if _, err := types.ParseMode(string(req.Mode)); err != nil {
		return nil, err
	}

	outcome, err := e.scan(ctx, req.Profile)
	if err != nil {
		return nil, err
	}

	selected, selectErrs := selectItems(outcome.inventory, req.Items)
	if selectErrs == nil {
		selectErrs = []string{}
	}
	report := &CleanReport{Mode: req.Mode, Errors: selectErrs}

	if req.Mode == types.ModePreview {
		for _, item := range selected {
			report.FilesRemoved += item.FileCount
			report.BytesFreed += item.Bytes
		}
		return report, nil
	}

	lock, err := session.AcquireLock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			e.log.Warn("failed to release session lock", "error", err)
		}
	}()

	sess := session.New(outcome.inventory.Profile, req.Mode, e.cfg.RetentionDays)

	var store *staging.Store
	if req.Mode == types.ModeSoft {
		store, err = staging.NewStore(sess.ID, e.cfg.Verify)
		if err != nil {
			return nil, err
		}
		sess.StagingRoot = store.Root()
	}

	e.log.Info("clean started", "session", sess.ID, "mode", req.Mode, "items", len(selected))

	var processed int64
	for _, item := range selected {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, "cancelled")
			break
		}
		e.cleanItem(ctx, item, outcome.records, req, sess, store, report, &processed)
	}

	sess.Errors = append(sess.Errors, report.Errors...)
	if err := e.manifest.Save(sess); err != nil {
		// The manifest is the undo record; without it, staged moves
		// must be reversed.
		report.Errors = append(report.Errors, fmt.Sprintf("manifest write failed: %v", err))
		if store != nil {
			e.rollback(sess, report)
		}
		return report, fmt.Errorf("writing session manifest: %w", err)
	}

	report.FilesRemoved = sess.TotalFiles
	report.BytesFreed = sess.TotalBytes
	report.SessionID = sess.ID

	e.log.Info("clean complete", "session", sess.ID,
		"files", report.FilesRemoved, "bytes", report.BytesFreed,
		"errors", len(report.Errors))
	return report, nil
}

// cleanItem removes or stages every path of one inventory item.
func (e *Engine) cleanItem(ctx context.Context, item types.InventoryItem,
	records map[string]types.FileRecord, req CleanRequest,
	sess *session.Session, store *staging.Store, report *CleanReport, processed *int64) {

	for _, path := range item.Paths {
		if ctx.Err() != nil {
			return
		}

		// Pre-flight: never trust the inventory alone.
		if decision := e.guard.IsDeletable(path); !decision.Allow {
			report.Errors = append(report.Errors,
				fmt.Sprintf("safety_refused: %s: %s", path, decision.Reason))
			e.log.Error("safety guard refused path at delete time", "path", path, "reason", decision.Reason)
			continue
		}

		record, known := records[path]
		info, err := os.Lstat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
			continue
		}

		// Skip files mutated since the scan unless forced.
		if known && record.Kind == types.KindRegular && !req.Force {
			if info.Size() != record.Size || !info.ModTime().Equal(record.ModTime) {
				report.Errors = append(report.Errors,
					fmt.Sprintf("%s: changed since scan, skipped (use force to override)", path))
				continue
			}
		}

		size := info.Size()
		if known && record.Kind == types.KindDir {
			size = record.Size
		}

		removal := session.RemovalRecord{
			OriginalPath: path,
			SizeBytes:    size,
			ModTime:      info.ModTime(),
			ItemName:     item.Name,
			RemovedAt:    time.Now().UTC(),
		}

		switch req.Mode {
		case types.ModeSoft:
			staged, sha, err := store.Stage(path)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			removal.StagedPath = &staged
			removal.ContentSHA256 = sha

		case types.ModeHard:
			if err := os.RemoveAll(path); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
				continue
			}
		}

		sess.Add(removal)
		*processed += removal.SizeBytes
		e.progress.report(*processed, path)
	}
}

// rollback reverses already-staged moves after a fatal failure.
func (e *Engine) rollback(sess *session.Session, report *CleanReport) {
	e.log.Warn("rolling back staged files", "session", sess.ID, "files", sess.TotalFiles)
	for i := len(sess.Items) - 1; i >= 0; i-- {
		record := sess.Items[i]
		if record.StagedPath == nil {
			continue
		}
		if err := staging.RestorePath(*record.StagedPath, record.OriginalPath); err != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("rollback of %s failed: %v", record.OriginalPath, err))
		}
	}
	if sess.StagingRoot != "" {
		if err := staging.PruneEmptyDirs(sess.StagingRoot); err != nil {
			e.log.Warn("could not prune staging directories after rollback", "error", err)
		}
	}
}

// selectItems filters the inventory by the requested item names.
// Dangerous items are never auto-selected.
func selectItems(inv *types.Inventory, names []string) ([]types.InventoryItem, []string) {
	var errors []string

	if len(names) == 0 {
		var selected []types.InventoryItem
		for _, item := range inv.Items {
			if item.Safety != types.Dangerous {
				selected = append(selected, item)
			}
		}
		return selected, errors
	}

	var selected []types.InventoryItem
	for _, name := range names {
		item := inv.Item(name)
		if item == nil {
			errors = append(errors, fmt.Sprintf("no inventory item named %q", name))
			continue
		}
		selected = append(selected, *item)
	}
	return selected, errors
}
