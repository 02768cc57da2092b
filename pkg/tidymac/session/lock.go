package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
	"github.com/shirou/gopsutil/v4/process"
)

// ErrLocked indicates another live process holds the session lock.
var ErrLocked = errors.New("another cleanup session is in progress")

// lockInfo is the lockfile content.
type lockInfo struct {
	PID       int       `json:"pid"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// Lock is a held session lockfile. At most one cleaner session may be
// open at a time across processes.
type Lock struct {
	path  string
	token string
}

// AcquireLock takes the session lockfile. A lockfile whose owning
// process is gone is reclaimed with a warning.
func AcquireLock() (*Lock, error) {
	log := logging.Get("session")
	path := config.LockPath()

	if err := os.MkdirAll(config.StateDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		lock, err := tryAcquire(path)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}

		holder, readErr := readLock(path)
		if readErr == nil {
			alive, aliveErr := process.PidExists(int32(holder.PID))
			if aliveErr == nil && alive {
				return nil, fmt.Errorf("%w (pid %d since %s)", ErrLocked,
					holder.PID, holder.CreatedAt.Format(time.RFC3339))
			}
		}

		// Owner is gone or the lockfile is unreadable: reclaim.
		log.Warn("reclaiming stale session lock", "path", path)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reclaiming stale lock: %w", err)
		}
	}

	return nil, ErrLocked
}

// tryAcquire creates the lockfile exclusively.
func tryAcquire(path string) (*Lock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	info := lockInfo{
		PID:       os.Getpid(),
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if err := json.NewEncoder(file).Encode(info); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("writing lockfile: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	return &Lock{path: path, token: info.Token}, nil
}

// readLock parses an existing lockfile.
func readLock(path string) (*lockInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Release removes the lockfile if this process still owns it.
func (l *Lock) Release() error {
	holder, err := readLock(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if holder.Token != l.token {
		// Someone reclaimed the lock out from under us; leave it.
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("releasing session lock: %w", err)
	}
	return nil
}
