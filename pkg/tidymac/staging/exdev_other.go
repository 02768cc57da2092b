//go:build !unix

package staging

import (
	"errors"
	"os"
)

// isCrossDevice approximates cross-device detection where EXDEV is
// unavailable: any LinkError triggers the copy fallback.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr)
}
