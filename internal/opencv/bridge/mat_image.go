// Package bridge converts between image.Image and tracked OpenCV Mats.
package bridge

import (
	"fmt"
	"image"
	"image/color"
	"runtime"

	"catfilter/internal/opencv/memory"
	"catfilter/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// MatToImage renders a 1, 3 or 4 channel 8-bit Mat into a new image.
func MatToImage(mat *safe.Mat) (image.Image, error) {
	if err := safe.ValidateMatForOperation(mat, "MatToImage"); err != nil {
		return nil, err
	}

	rows, cols, channels := mat.Rows(), mat.Cols(), mat.Channels()
	data, err := mat.Bytes()
	if err != nil {
		return nil, err
	}
	if len(data) < rows*cols*channels {
		return nil, fmt.Errorf("Mat data too short: %d bytes for %dx%dx%d", len(data), cols, rows, channels)
	}

	switch channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, cols, rows))
		copy(img.Pix, data[:rows*cols])
		return img, nil
	case 3:
		img := image.NewRGBA(image.Rect(0, 0, cols, rows))
		for i, j := 0, 0; i < rows*cols*3; i, j = i+3, j+4 {
			img.Pix[j] = data[i+2]
			img.Pix[j+1] = data[i+1]
			img.Pix[j+2] = data[i]
			img.Pix[j+3] = 0xff
		}
		return img, nil
	case 4:
		img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
		for i := 0; i < rows*cols*4; i += 4 {
			img.Pix[i] = data[i+2]
			img.Pix[i+1] = data[i+1]
			img.Pix[i+2] = data[i]
			img.Pix[i+3] = data[i+3]
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported number of channels: %d", channels)
	}
}

// ImageToMat copies img into a tracked 8-bit BGR Mat.
func ImageToMat(mgr *memory.Manager, img image.Image, tag string) (*safe.Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has zero dimensions: %dx%d", width, height)
	}

	buf := toBGR(img, bounds)

	// NewMatFromBytes shares buf; the clone below owns its own copy.
	shared, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap pixel buffer: %w", err)
	}
	defer shared.Close()

	mat, err := mgr.CloneMat(shared, tag)
	runtime.KeepAlive(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to copy pixel buffer: %w", err)
	}
	return mat, nil
}

func toBGR(img image.Image, bounds image.Rectangle) []byte {
	width, height := bounds.Dx(), bounds.Dy()
	buf := make([]byte, width*height*3)

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < height; y++ {
			row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride+(bounds.Min.X-src.Rect.Min.X)*4:]
			for x := 0; x < width; x++ {
				o := (y*width + x) * 3
				buf[o] = row[x*4+2]
				buf[o+1] = row[x*4+1]
				buf[o+2] = row[x*4]
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			row := src.Pix[(y+bounds.Min.Y-src.Rect.Min.Y)*src.Stride+(bounds.Min.X-src.Rect.Min.X):]
			for x := 0; x < width; x++ {
				o := (y*width + x) * 3
				buf[o], buf[o+1], buf[o+2] = row[x], row[x], row[x]
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
				o := (y*width + x) * 3
				buf[o] = c.B
				buf[o+1] = c.G
				buf[o+2] = c.R
			}
		}
	}
	return buf
}
