package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestThumbnail_ScalesLandscape(t *testing.T) {
	path := writePNG(t, 800, 400)

	img, err := Thumbnail(path, 200)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 200, bounds.Dx())
	assert.Equal(t, 100, bounds.Dy(), "aspect ratio must be preserved")
}

func TestThumbnail_ScalesPortrait(t *testing.T) {
	path := writePNG(t, 300, 600)

	img, err := Thumbnail(path, 300)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 150, bounds.Dx())
	assert.Equal(t, 300, bounds.Dy())
}

func TestThumbnail_SmallImageUnscaled(t *testing.T) {
	path := writePNG(t, 100, 50)

	img, err := Thumbnail(path, 512)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 100, bounds.Dx())
	assert.Equal(t, 50, bounds.Dy())
}

func TestThumbnail_MissingFile(t *testing.T) {
	_, err := Thumbnail(filepath.Join(t.TempDir(), "nope.png"), 512)
	require.Error(t, err)
}

func TestThumbnail_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	_, err := Thumbnail(path, 512)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode image")
}

func TestEncodePNG(t *testing.T) {
	path := writePNG(t, 64, 64)
	img, err := Thumbnail(path, 32)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))

	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
}
