package photos

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
)

type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
)

func (f Format) Extension() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

type Encoder struct {
	Format      Format
	JPEGQuality int
}

func (e Encoder) Encode(w io.Writer, img image.Image) error {
	if img == nil {
		return fmt.Errorf("no image to encode")
	}

	switch e.Format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG, "":
		quality := e.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = 95
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unsupported format %q", e.Format)
	}
}
