// Package session owns the durable record of cleanup runs: the
// per-session manifest, undo back to original locations, purge of
// expired sessions, and the single-session lockfile. The manifest
// file is the source of truth; in-memory values are caches over it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/types"
)

// SchemaVersion is the current manifest schema version.
const SchemaVersion = 1

// idFormat derives sortable, filename-safe session identifiers:
// ISO-8601 with colons replaced by hyphens.
const idFormat = "2006-01-02T15-04-05"

// Sentinel errors for session operations.
var (
	ErrNotFound        = errors.New("session not found")
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrExpired         = errors.New("session expired")
	ErrAlreadyRestored = errors.New("session already restored")
	ErrNothingStaged   = errors.New("session has no staged files to restore")
)

// RemovalRecord is one removed file inside a session manifest.
type RemovalRecord struct {
	// OriginalPath is the absolute path before removal.
	OriginalPath string `json:"original_path"`

	// StagedPath is the quarantine location, null for hard mode.
	StagedPath *string `json:"staged_path"`

	// SizeBytes is the file size at removal time.
	SizeBytes int64 `json:"size_bytes"`

	// ModTime is the file's modification time at removal.
	ModTime time.Time `json:"mtime"`

	// ContentSHA256 is the optional content digest.
	ContentSHA256 string `json:"content_sha256,omitempty"`

	// ItemName names the inventory item the file belonged to.
	ItemName string `json:"item_name"`

	// RemovedAt is when the removal executed.
	RemovedAt time.Time `json:"removed_at"`
}

// Session is the durable record of one cleanup run.
type Session struct {
	SchemaVersion int             `json:"schema_version"`
	ID            string          `json:"session_id"`
	Profile       string          `json:"profile"`
	Mode          types.Mode      `json:"mode"`
	CreatedAt     time.Time       `json:"created_at"`
	Restored      bool            `json:"restored"`
	RetentionDays int             `json:"retention_days"`
	TotalBytes    int64           `json:"total_bytes"`
	TotalFiles    int             `json:"total_files"`
	Items         []RemovalRecord `json:"items"`

	// StagingRoot is set for soft sessions.
	StagingRoot string `json:"staging_root,omitempty"`

	// Errors lists per-file failures collected during the run.
	Errors []string `json:"errors,omitempty"`
}

// New creates a session with a timestamp-derived identifier.
func New(profile string, mode types.Mode, retentionDays int) *Session {
	now := time.Now().UTC()
	return &Session{
		SchemaVersion: SchemaVersion,
		ID:            now.Format(idFormat),
		Profile:       profile,
		Mode:          mode,
		CreatedAt:     now,
		RetentionDays: retentionDays,
		Items:         []RemovalRecord{},
	}
}

// Add appends a removal record and updates the totals.
func (s *Session) Add(record RemovalRecord) {
	s.Items = append(s.Items, record)
	s.TotalBytes += record.SizeBytes
	s.TotalFiles++
}

// ExpiresAt derives the expiry instant from creation and retention.
func (s *Session) ExpiresAt() time.Time {
	return s.CreatedAt.AddDate(0, 0, s.RetentionDays)
}

// Expired reports whether the retention window has elapsed.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// Summary is the listing view of a session.
type Summary struct {
	ID         string     `json:"session_id"`
	Profile    string     `json:"profile"`
	Mode       types.Mode `json:"mode"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Expired    bool       `json:"expired"`
	Restored   bool       `json:"restored"`
	TotalBytes int64      `json:"total_bytes"`
	TotalFiles int        `json:"total_files"`
}

// Manifest manages session documents in the sessions directory.
type Manifest struct {
	dir string
	mu  sync.Mutex
}

// NewManifest creates a manifest store over the given directory.
// Empty means the configured sessions directory.
func NewManifest(dir string) *Manifest {
	if dir == "" {
		dir = config.SessionsDir()
	}
	return &Manifest{dir: dir}
}

// path returns the manifest file path for a session id.
func (m *Manifest) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

// Save writes the session document atomically: serialize to a
// tempfile, fsync, then rename into place.
func (m *Manifest) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	final := m.path(s.ID)
	tmp := final + ".tmp"

	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("writing manifest tempfile: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing manifest tempfile: %w", err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("syncing manifest: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("closing manifest tempfile: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming manifest into place: %w", err)
	}
	return nil
}

// Load reads and validates a session document by id.
func (m *Manifest) Load(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(id)
}

func (m *Manifest) loadLocked(id string) (*Session, error) {
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", id, err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, id, err)
	}
	if s.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: %s: unsupported schema version %d", ErrInvalidManifest, id, s.SchemaVersion)
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: %s: missing session_id", ErrInvalidManifest, id)
	}
	return &s, nil
}

// List returns summaries of every parseable session, newest first.
// Unparseable files are skipped.
func (m *Manifest) List() ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("reading sessions directory: %w", err)
	}

	now := time.Now()
	summaries := []Summary{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		s, err := m.loadLocked(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			ID:         s.ID,
			Profile:    s.Profile,
			Mode:       s.Mode,
			CreatedAt:  s.CreatedAt,
			ExpiresAt:  s.ExpiresAt(),
			Expired:    s.Expired(now),
			Restored:   s.Restored,
			TotalBytes: s.TotalBytes,
			TotalFiles: s.TotalFiles,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID > summaries[j].ID
	})
	return summaries, nil
}

// Delete removes a session's manifest file.
func (m *Manifest) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.Remove(m.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting manifest %s: %w", id, err)
	}
	return nil
}

// Orphans reports staging directories with no corresponding manifest,
// left behind by a crash mid-session.
func (m *Manifest) Orphans() ([]string, error) {
	entries, err := os.ReadDir(config.StagingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var orphans []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(m.path(entry.Name())); os.IsNotExist(err) {
			orphans = append(orphans, filepath.Join(config.StagingDir(), entry.Name()))
		}
	}
	return orphans, nil
}
