// Package duplicates implements the four-stage duplicate detection
// pipeline: size partitioning, prefix hashing, full-content hashing,
// and optional perceptual matching for images.
package duplicates

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"
)

// prefixSize is the number of leading bytes hashed in stage 2.
const prefixSize = 4096

// hashChunkSize is the read granularity for full-content hashing.
// Cancellation is checked between chunks.
const hashChunkSize = 1024 * 1024

var hashBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, hashChunkSize)
		return &buf
	},
}

// PrefixHash computes the SHA-256 of the first 4 KiB of a file.
// Files smaller than 4 KiB hash their full content.
func PrefixHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, prefixSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("reading prefix of %s: %w", path, err)
	}

	sum := sha256.Sum256(buf[:n])
	return hex.EncodeToString(sum[:]), nil
}

// FullHash computes the SHA-256 of the complete file content,
// checking for cancellation between chunks.
func FullHash(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	bufPtr := hashBufferPool.Get().(*[]byte)
	defer hashBufferPool.Put(bufPtr)
	buf := *bufPtr

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := file.Read(buf)
		if n > 0 {
			hasher.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("hashing %s: %w", path, readErr)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// HashFile computes the SHA-256 of a file without cancellation,
// for callers outside the pipeline (staging verification).
func HashFile(path string) (string, error) {
	return FullHash(context.Background(), path)
}
