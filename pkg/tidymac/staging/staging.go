// Package staging implements reversible removal: files move into a
// session-scoped quarantine directory preserving their full original
// path, so undo can rename them straight back.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/duplicates"
	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
)

// ErrVerificationFailed indicates a cross-device copy whose content
// did not match the original. The original is left in place.
var ErrVerificationFailed = errors.New("staged copy verification failed")

// Store stages files under <state-dir>/staging/<session-id>/.
type Store struct {
	root   string
	verify bool
	log    *logging.Logger
}

// NewStore creates the staging root for a session with mode 0700.
func NewStore(sessionID string, verify bool) (*Store, error) {
	root := filepath.Join(config.StagingDir(), sessionID)
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating staging root: %w", err)
	}
	return &Store{root: root, verify: verify, log: logging.Get("staging")}, nil
}

// Root returns the session staging root.
func (s *Store) Root() string {
	return s.root
}

// Stage moves a file or directory into the staging tree and returns
// the staged path plus the content SHA-256 when verification is on
// (files only). Directories are staged by moving the directory node.
func (s *Store) Stage(path string) (string, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return "", "", err
	}

	var sha string
	if s.verify && info.Mode().IsRegular() {
		sha, err = duplicates.HashFile(abs)
		if err != nil {
			return "", "", fmt.Errorf("hashing %s: %w", abs, err)
		}
	}

	staged := s.destination(abs)
	if err := os.MkdirAll(filepath.Dir(staged), 0o700); err != nil {
		return "", "", fmt.Errorf("creating staging parents: %w", err)
	}

	err = os.Rename(abs, staged)
	if err == nil {
		return staged, sha, nil
	}
	if !isCrossDevice(err) {
		return "", "", fmt.Errorf("staging %s: %w", abs, err)
	}

	s.log.Debug("rename crossed devices, copying", "path", abs)
	if err := copyThenUnlink(abs, staged, info, sha); err != nil {
		return "", "", err
	}
	return staged, sha, nil
}

// destination maps an absolute path below the staging root, keeping
// the full original path.
func (s *Store) destination(abs string) string {
	rel := strings.TrimPrefix(abs, string(filepath.Separator))
	return filepath.Join(s.root, rel)
}

// Remove deletes the staging root and everything below it.
func (s *Store) Remove() error {
	return os.RemoveAll(s.root)
}

// copyThenUnlink is the cross-device fallback: copy, verify, restore
// metadata, then remove the original. A verification mismatch leaves
// the original untouched.
func copyThenUnlink(src, dst string, info os.FileInfo, wantSHA string) error {
	if info.IsDir() {
		if err := copyDir(src, dst); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	ts, timesErr := times.Stat(src)

	if err := copyFile(src, dst, info.Mode()); err != nil {
		return err
	}

	copied, err := os.Stat(dst)
	if err != nil {
		return err
	}
	if copied.Size() != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("%w: size mismatch for %s", ErrVerificationFailed, src)
	}
	if wantSHA != "" {
		gotSHA, err := duplicates.HashFile(dst)
		if err != nil {
			_ = os.Remove(dst)
			return err
		}
		if gotSHA != wantSHA {
			_ = os.Remove(dst)
			return fmt.Errorf("%w: digest mismatch for %s", ErrVerificationFailed, src)
		}
	}

	atime := time.Now()
	if timesErr == nil {
		atime = ts.AccessTime()
	}
	if err := os.Chtimes(dst, atime, info.ModTime()); err != nil {
		return err
	}

	return os.Remove(src)
}

// copyFile copies content and permissions.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

// copyDir copies a directory tree preserving modes and mtimes.
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm())
		case info.Mode().IsRegular():
			if err := copyFile(path, target, info.Mode()); err != nil {
				return err
			}
			return os.Chtimes(target, info.ModTime(), info.ModTime())
		default:
			// Symlinks and special files are recreated as links
			// when possible, otherwise skipped.
			if d.Type()&os.ModeSymlink != 0 {
				dest, err := os.Readlink(path)
				if err != nil {
					return err
				}
				return os.Symlink(dest, target)
			}
			return nil
		}
	})
}

// RestorePath moves a staged file or directory back to its original
// location. Existing files at the original path are never overwritten.
func RestorePath(staged, original string) error {
	if _, err := os.Lstat(staged); err != nil {
		return fmt.Errorf("staged path missing: %w", err)
	}
	if _, err := os.Lstat(original); err == nil {
		return fmt.Errorf("original path already exists: %s", original)
	}

	if err := os.MkdirAll(filepath.Dir(original), 0o755); err != nil {
		return fmt.Errorf("recreating parent directories: %w", err)
	}

	err := os.Rename(staged, original)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("restoring %s: %w", original, err)
	}

	info, err := os.Lstat(staged)
	if err != nil {
		return err
	}
	return copyThenUnlink(staged, original, info, "")
}

// PruneEmptyDirs removes now-empty directories below root, then root
// itself when empty.
func PruneEmptyDirs(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			if err := PruneEmptyDirs(filepath.Join(root, entry.Name())); err != nil {
				return err
			}
		}
	}

	entries, err = os.ReadDir(root)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return os.Remove(root)
	}
	return nil
}
