//go:build unix

package staging

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isCrossDevice reports a rename that failed because source and
// destination live on different filesystems.
func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
