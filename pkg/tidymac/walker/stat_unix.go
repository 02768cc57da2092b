//go:build unix

package walker

import (
	"os"
	"syscall"
)

// fileID identifies a filesystem object by device and inode.
type fileID struct {
	dev uint64
	ino uint64
}

// statID extracts the (device, inode) pair from file info.
func statID(info os.FileInfo) (fileID, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, false
	}
	return fileID{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true
}
