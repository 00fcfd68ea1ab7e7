package gui

import (
	"image"

	"catfilter/internal/logger"
	"catfilter/internal/pipeline"
)

const (
	titleCancelled = "Cancelled"
	titleError     = "Error"
)

type LoadScreenState struct {
	Loading bool
	Title   string
	Image   image.Image
}

type LoadView interface {
	ShowLoadState(state LoadScreenState)
}

type Loader interface {
	Load() bool
	CancelLoad()
}

// EditorPresenter opens and closes the edit screen.
type EditorPresenter interface {
	PresentEditor(img image.Image, delegate EditDelegate)
	DismissEditor()
}

// LoadController drives the load screen. All methods run on the UI context.
type LoadController struct {
	loader    Loader
	view      LoadView
	presenter EditorPresenter
	logger    logger.Logger

	state LoadScreenState
}

func NewLoadController(loader Loader, log logger.Logger) *LoadController {
	return &LoadController{loader: loader, logger: log}
}

func (c *LoadController) SetView(v LoadView) {
	c.view = v
}

func (c *LoadController) SetPresenter(p EditorPresenter) {
	c.presenter = p
}

func (c *LoadController) State() LoadScreenState {
	return c.state
}

func (c *LoadController) Load() {
	if c.state.Loading {
		return
	}
	c.state = LoadScreenState{Loading: true}
	c.UpdateView()

	if !c.loader.Load() {
		c.logger.Warning("LoadController", "load rejected, previous load still running", nil)
	}
}

func (c *LoadController) Cancel() {
	c.loader.CancelLoad()
}

func (c *LoadController) UpdateView() {
	if c.view != nil {
		c.view.ShowLoadState(c.state)
	}
}

func (c *LoadController) Edit() {
	if c.state.Image == nil || c.presenter == nil {
		return
	}
	c.presenter.PresentEditor(c.state.Image, c)
}

// EditingFinished is called by the edit screen when it closes.
func (c *LoadController) EditingFinished() {
	if c.presenter != nil {
		c.presenter.DismissEditor()
	}
}

func (c *LoadController) LoadStarted() {
	c.logger.Debug("LoadController", "load in progress", nil)
}

func (c *LoadController) LoadStageFinished(o pipeline.LoadOutcome) {
	switch o.Stage {
	case pipeline.StageMetadata:
		c.metadataFinished(o)
	case pipeline.StageContent:
		c.contentFinished(o)
	}
	c.UpdateView()
}

func (c *LoadController) metadataFinished(o pipeline.LoadOutcome) {
	result := o.Result()
	c.state.Loading = result == pipeline.ResultSuccess
	if result == pipeline.ResultSuccess {
		c.state.Title = o.Resource.String()
		return
	}
	c.state.Title = failureTitle(result)
}

func (c *LoadController) contentFinished(o pipeline.LoadOutcome) {
	c.state.Loading = false

	result := o.Result()
	if result != pipeline.ResultSuccess {
		c.state.Title = failureTitle(result)
		return
	}

	// The coordinator decodes off the UI context; no image means no decoder.
	if o.Image == nil || o.Image.Image == nil {
		c.logger.Warning("LoadController", "content delivered without a decoded image", map[string]interface{}{
			"bytes": len(o.Data),
		})
		c.state.Title = titleError
		return
	}
	c.state.Image = o.Image.Image
}

func failureTitle(result pipeline.LoadResult) string {
	if result == pipeline.ResultCancelled {
		return titleCancelled
	}
	return titleError
}
