package pipeline

import (
	"image"

	"github.com/nfnt/resize"
)

// Thumbnail scales img to fit within size x size, keeping the aspect ratio.
// Images already small enough are returned unchanged.
func Thumbnail(img image.Image, size int) image.Image {
	if img == nil || size <= 0 {
		return img
	}
	return resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3)
}
