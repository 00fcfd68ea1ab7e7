package filters

import (
	"context"
	"fmt"
	"image"
	"time"

	"catfilter/internal/logger"
	"catfilter/internal/opencv/bridge"
	"catfilter/internal/opencv/memory"
)

const engineComponent = "FilterEngine"

// Engine applies catalogue filters to images through OpenCV.
type Engine struct {
	memoryManager *memory.Manager
	filters       *Manager
	logger        logger.Logger
}

func NewEngine(memMgr *memory.Manager, filters *Manager, log logger.Logger) *Engine {
	return &Engine{memoryManager: memMgr, filters: filters, logger: log}
}

func (e *Engine) Filters() *Manager {
	return e.filters
}

// Apply returns ctx.Err() and no image when cancelled at any checkpoint.
func (e *Engine) Apply(ctx context.Context, name string, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filter, err := e.filters.Get(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	src, err := bridge.ImageToMat(e.memoryManager, img, "filter_input")
	if err != nil {
		return nil, fmt.Errorf("prepare %s input: %w", name, err)
	}
	defer src.Close()

	out, err := filter.Apply(e.memoryManager, src)
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", name, err)
	}
	defer out.Close()
	if out.Empty() {
		return nil, fmt.Errorf("apply %s: %w", name, ErrNoFilterOutput)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rendered, err := bridge.MatToImage(out)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w: %v", name, ErrRenderNoImage, err)
	}
	if rendered == nil || rendered.Bounds().Empty() {
		return nil, fmt.Errorf("render %s: %w", name, ErrRenderNoImage)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug(engineComponent, "filter applied", map[string]interface{}{
		"filter":      name,
		"output_tag":  out.Tag(),
		"output_size": out.Size(),
		"width":       rendered.Bounds().Dx(),
		"height":      rendered.Bounds().Dy(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return rendered, nil
}
