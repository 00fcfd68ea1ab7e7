package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"catfilter/internal/logger"
	"catfilter/internal/opencv/bridge"
	"catfilter/internal/opencv/memory"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUndecodable = errors.New("content is not a decodable image")

type ImageData struct {
	Image  image.Image
	Width  int
	Height int
	Format string
}

// ImageLoader decodes downloaded content. Formats Go cannot read fall back
// to OpenCV when a memory manager is configured.
type ImageLoader struct {
	memoryManager *memory.Manager
	logger        logger.Logger
}

func NewImageLoader(memMgr *memory.Manager, log logger.Logger) *ImageLoader {
	return &ImageLoader{memoryManager: memMgr, logger: log}
}

func (l *ImageLoader) LoadFromBytes(data []byte) (*ImageData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty content", ErrUndecodable)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if l.memoryManager == nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		img, err = l.decodeWithOpenCV(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
		}
		format = "opencv"
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: zero-sized image", ErrUndecodable)
	}

	imageData := &ImageData{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}

	l.logger.Info("ImageLoader", "image decoded", map[string]interface{}{
		"width":  imageData.Width,
		"height": imageData.Height,
		"format": format,
		"bytes":  len(data),
	})
	return imageData, nil
}

func (l *ImageLoader) decodeWithOpenCV(data []byte) (image.Image, error) {
	decoded, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("opencv decode: %w", err)
	}
	mat, err := l.memoryManager.Adopt(decoded, "decoded_content")
	if err != nil {
		return nil, err
	}
	defer mat.Close()
	return bridge.MatToImage(mat)
}
