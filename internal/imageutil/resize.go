// Package imageutil holds the stateless image helpers used by the
// review surface.
package imageutil

import (
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// DefaultMaxSize is the longest-side bound for review thumbnails.
const DefaultMaxSize = 512

// Thumbnail decodes the image at path and scales it so its longest side
// is at most maxSize pixels, preserving aspect ratio. Images already
// within bounds are returned unscaled.
func Thumbnail(path string, maxSize int) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSize && h <= maxSize {
		return src, nil
	}

	var newW, newH int
	if w > h {
		newW = maxSize
		newH = h * maxSize / w
	} else {
		newH = maxSize
		newW = w * maxSize / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst, nil
}

// EncodePNG writes img to w as PNG, the format thumbnails are served in.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
