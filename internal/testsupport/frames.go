package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
)

// Frame builds a grayscale frame of the given size filled with background,
// with an optional bright square of side size at (x, y).
func Frame(width, height int, background uint8, square *image.Rectangle, fill uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = background
	}
	if square != nil {
		r := square.Intersect(img.Bounds())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: fill})
			}
		}
	}
	return img
}

// EncodeJPEG returns img encoded at high quality.
func EncodeJPEG(t testing.TB, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// WriteFrame writes img as a JPEG file, creating parent directories.
func WriteFrame(t testing.TB, path string, img image.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, EncodeJPEG(t, img), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
