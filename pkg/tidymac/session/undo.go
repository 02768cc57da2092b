package session

import (
	"fmt"
	"os"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/duplicates"
	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
	"github.com/jamesainslie/tidymac/pkg/tidymac/staging"
)

// RestoreReport summarizes an undo run.
type RestoreReport struct {
	SessionID     string   `json:"session_id"`
	RestoredCount int      `json:"restored_count"`
	RestoredBytes int64    `json:"restored_bytes"`
	Errors        []string `json:"errors,omitempty"`
}

// Undo restores a soft session's files to their original locations,
// processing records in reverse execution order so directory moves are
// undone before the children they contained.
//
// Refused outright: already-restored sessions, expired sessions, and
// sessions with nothing staged (hard and preview modes). Per-file
// failures are collected; a partial restore leaves the session open.
func (m *Manifest) Undo(id string) (*RestoreReport, error) {
	log := logging.Get("session")

	s, err := m.Load(id)
	if err != nil {
		return nil, err
	}
	if s.Restored {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRestored, id)
	}
	if s.Expired(time.Now()) {
		return nil, fmt.Errorf("%w: %s expired at %s", ErrExpired, id, s.ExpiresAt().Format(time.RFC3339))
	}

	report := &RestoreReport{SessionID: id}

	restorable := 0
	for i := len(s.Items) - 1; i >= 0; i-- {
		record := s.Items[i]
		if record.StagedPath == nil {
			continue
		}
		restorable++

		staged := *record.StagedPath
		if record.ContentSHA256 != "" {
			if fi, err := os.Lstat(staged); err == nil && fi.Mode().IsRegular() {
				got, err := duplicates.HashFile(staged)
				if err != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", record.OriginalPath, err))
					continue
				}
				if got != record.ContentSHA256 {
					report.Errors = append(report.Errors,
						fmt.Sprintf("%s: staged content digest mismatch", record.OriginalPath))
					continue
				}
			}
		}

		if err := staging.RestorePath(staged, record.OriginalPath); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", record.OriginalPath, err))
			continue
		}
		report.RestoredCount++
		report.RestoredBytes += record.SizeBytes
	}

	if restorable == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNothingStaged, id)
	}

	if len(report.Errors) > 0 {
		// Partial restore: the session stays open for a retry.
		log.Warn("partial restore", "session", id, "failures", len(report.Errors))
		return report, nil
	}

	if s.StagingRoot != "" {
		if err := staging.PruneEmptyDirs(s.StagingRoot); err != nil {
			log.Warn("could not prune staging directories", "session", id, "error", err)
		}
	}

	s.Restored = true
	if err := m.Save(s); err != nil {
		return report, fmt.Errorf("persisting restored flag: %w", err)
	}

	log.Info("session restored", "session", id, "files", report.RestoredCount, "bytes", report.RestoredBytes)
	return report, nil
}
