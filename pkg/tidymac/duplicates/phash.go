package duplicates

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"

	// Decoders for the supported perceptual formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// sniffSize is how many leading bytes magic-byte detection needs.
const sniffSize = 262

// IsImage reports whether the file's magic bytes identify one of the
// supported perceptual formats: JPEG, PNG, GIF, BMP, WEBP. Extension
// is not consulted.
func IsImage(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}

	kind, err := filetype.Match(buf[:n])
	if err != nil {
		return false
	}
	switch kind {
	case matchers.TypeJpeg, matchers.TypePng, matchers.TypeGif, matchers.TypeBmp, matchers.TypeWebp:
		return true
	default:
		return false
	}
}

// DifferenceHash computes the 64-bit difference hash of an image file:
// the image is downscaled to a 9x8 grayscale grid and each output bit
// is 1 iff the left neighbor is brighter than the right.
func DifferenceHash(path string) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", path, err)
	}

	grid := downscaleGray(img, 9, 8)

	var hash uint64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			hash <<= 1
			if grid[y][x] > grid[y][x+1] {
				hash |= 1
			}
		}
	}
	return hash, nil
}

// downscaleGray box-samples an image to a w-by-h grayscale grid.
func downscaleGray(img image.Image, w, h int) [][]float64 {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	grid := make([][]float64, h)
	for gy := 0; gy < h; gy++ {
		grid[gy] = make([]float64, w)
		for gx := 0; gx < w; gx++ {
			x0 := bounds.Min.X + gx*srcW/w
			x1 := bounds.Min.X + (gx+1)*srcW/w
			y0 := bounds.Min.Y + gy*srcH/h
			y1 := bounds.Min.Y + (gy+1)*srcH/h
			if x1 <= x0 {
				x1 = x0 + 1
			}
			if y1 <= y0 {
				y1 = y0 + 1
			}

			var sum float64
			var count int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					// ITU-R 601 luma from 16-bit channels.
					sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
					count++
				}
			}
			grid[gy][gx] = sum / float64(count) / 257.0
		}
	}
	return grid
}
