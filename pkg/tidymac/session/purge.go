package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
)

// PurgePolicy selects which sessions a purge removes.
type PurgePolicy int

// Purge policies.
const (
	// PurgeExpired removes only sessions past their retention.
	PurgeExpired PurgePolicy = iota
	// PurgeAll removes every session regardless of retention.
	PurgeAll
)

// PurgeReport summarizes a purge run. Purging is idempotent: a second
// run over unchanged state purges zero sessions.
type PurgeReport struct {
	SessionsPurged int      `json:"sessions_purged"`
	BytesFreed     int64    `json:"bytes_freed"`
	Errors         []string `json:"errors,omitempty"`
}

// Purge removes staging directories and manifests according to the
// policy. Orphaned staging directories with no manifest are removed
// under either policy.
func (m *Manifest) Purge(policy PurgePolicy) (*PurgeReport, error) {
	log := logging.Get("session")
	report := &PurgeReport{}

	summaries, err := m.List()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, summary := range summaries {
		if policy == PurgeExpired && !summary.Expired {
			continue
		}
		bytes, err := m.purgeOne(summary.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", summary.ID, err))
			continue
		}
		report.SessionsPurged++
		report.BytesFreed += bytes
		log.Info("session purged", "session", summary.ID, "bytes", bytes,
			"expired", summary.Expired, "age", now.Sub(summary.CreatedAt).Round(time.Hour))
	}

	orphans, err := m.Orphans()
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("orphan scan: %v", err))
	}
	for _, orphan := range orphans {
		bytes := dirSize(orphan)
		if err := os.RemoveAll(orphan); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", orphan, err))
			continue
		}
		report.BytesFreed += bytes
		log.Warn("orphaned staging directory removed", "path", orphan, "bytes", bytes)
	}

	return report, nil
}

// PurgeSession removes one session by id. Non-expired sessions are
// refused unless force is set.
func (m *Manifest) PurgeSession(id string, force bool) (int64, error) {
	s, err := m.Load(id)
	if err != nil {
		return 0, err
	}
	if !s.Expired(time.Now()) && !force {
		return 0, fmt.Errorf("session %s is not expired; use force to purge anyway", id)
	}
	return m.purgeOne(id)
}

// purgeOne removes a session's staging tree and manifest, returning
// the staged bytes freed.
func (m *Manifest) purgeOne(id string) (int64, error) {
	stagingRoot := filepath.Join(config.StagingDir(), id)
	bytes := dirSize(stagingRoot)

	if err := os.RemoveAll(stagingRoot); err != nil {
		return 0, fmt.Errorf("removing staging tree: %w", err)
	}
	if err := m.Delete(id); err != nil {
		return 0, err
	}
	return bytes, nil
}

// dirSize sums regular-file bytes below root; missing roots are zero.
func dirSize(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total
}
