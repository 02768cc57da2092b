//go:build !unix

package walker

import "os"

// fileID identifies a filesystem object by device and inode.
type fileID struct {
	dev uint64
	ino uint64
}

// statID is unavailable on platforms without stat device/inode data;
// cycle detection is skipped there.
func statID(_ os.FileInfo) (fileID, bool) {
	return fileID{}, false
}
