package gui

import (
	"image"
	"image/color"
	"image/draw"

	"catfilter/internal/logger"
	"catfilter/internal/photos"
	"catfilter/internal/pipeline"
)

const (
	msgSaveSucceeded  = "Saving image complete"
	msgSaveFailed     = "Failed to save image"
	msgSaveRestricted = "Access to photos library restricted"
	msgSaveDenied     = "Access to photos denied"
)

type FilterChoice struct {
	Name  string
	Title string
}

type EditView interface {
	ShowProcessing(processing bool)
	ShowImage(img image.Image)
	ShowSamples(samples []image.Image, titles []string)
	UpdateSample(index int, img image.Image)
}

type FilterLanes interface {
	PreviewFilter(filter string, img image.Image, done func(image.Image))
	CancelPreview()
	ProcessBatch(img image.Image, filters []string, done func(pipeline.TransformOutcome))
	CancelBatch()
}

type ImageSaver interface {
	SaveImage(img image.Image, done func(photos.SaveResult))
}

type MessagePresenter interface {
	ShowMessage(message string, onDismiss func())
}

type EditDelegate interface {
	EditingFinished()
}

// EditController drives the edit screen. All methods run on the UI context.
type EditController struct {
	lanes     FilterLanes
	saver     ImageSaver
	choices   []FilterChoice
	thumbSize int
	logger    logger.Logger

	view     EditView
	messages MessagePresenter
	delegate EditDelegate

	// session changes on every Open so late callbacks from a previous
	// session are ignored.
	session    int
	open       bool
	processing bool
	image      image.Image
	processed  image.Image
	thumbnail  image.Image
	samples    []image.Image
}

func NewEditController(lanes FilterLanes, saver ImageSaver, choices []FilterChoice, thumbSize int, log logger.Logger) *EditController {
	return &EditController{
		lanes:     lanes,
		saver:     saver,
		choices:   choices,
		thumbSize: thumbSize,
		logger:    log,
	}
}

func (c *EditController) SetView(v EditView) {
	c.view = v
}

func (c *EditController) SetMessagePresenter(m MessagePresenter) {
	c.messages = m
}

func (c *EditController) Open(img image.Image, delegate EditDelegate) {
	c.session++
	c.open = true
	c.delegate = delegate
	c.processing = false
	c.image = img
	c.processed = img
	c.thumbnail = pipeline.Thumbnail(img, c.thumbSize)

	placeholder := placeholderImage(c.thumbSize)
	c.samples = make([]image.Image, len(c.choices))
	for i := range c.samples {
		c.samples[i] = placeholder
	}
}

// UpdateView pushes the current state and starts rendering the samples.
func (c *EditController) UpdateView() {
	if !c.open {
		return
	}
	c.view.ShowProcessing(c.processing)
	c.view.ShowImage(c.processed)
	c.view.ShowSamples(append([]image.Image(nil), c.samples...), c.titles())

	session := c.session
	c.lanes.ProcessBatch(c.thumbnail, c.names(), func(o pipeline.TransformOutcome) {
		c.sampleFinished(session, o)
	})
}

func (c *EditController) SelectFilter(index int) {
	if !c.open || index < 0 || index >= len(c.choices) {
		return
	}
	c.processing = true
	c.view.ShowProcessing(true)

	session := c.session
	c.lanes.PreviewFilter(c.choices[index].Name, c.image, func(img image.Image) {
		c.previewFinished(session, img)
	})
}

func (c *EditController) Save() {
	if !c.open || c.processed == nil {
		return
	}
	c.saver.SaveImage(c.processed, func(r photos.SaveResult) {
		c.logger.Info("EditController", "save finished", map[string]interface{}{
			"result": r.String(),
		})
		if c.messages != nil {
			c.messages.ShowMessage(saveResultMessage(r), c.FinishEditing)
		}
	})
}

func (c *EditController) FinishEditing() {
	if !c.open {
		return
	}
	c.open = false
	c.processing = false
	c.lanes.CancelPreview()
	c.lanes.CancelBatch()
	if c.delegate != nil {
		c.delegate.EditingFinished()
	}
}

func (c *EditController) Processing() bool {
	return c.processing
}

func (c *EditController) Processed() image.Image {
	return c.processed
}

func (c *EditController) previewFinished(session int, img image.Image) {
	if session != c.session || !c.open {
		return
	}
	c.processing = false
	if img != nil {
		c.processed = img
	} else {
		c.processed = c.image
	}
	c.view.ShowProcessing(false)
	c.view.ShowImage(c.processed)
}

func (c *EditController) sampleFinished(session int, o pipeline.TransformOutcome) {
	if session != c.session || !c.open {
		return
	}
	if o.Status != pipeline.TransformSucceeded || o.Index < 0 || o.Index >= len(c.samples) {
		c.logger.Warning("EditController", "sample kept as placeholder", map[string]interface{}{
			"filter": o.Filter,
			"index":  o.Index,
		})
		return
	}
	c.samples[o.Index] = o.Image
	c.view.UpdateSample(o.Index, o.Image)
}

func (c *EditController) names() []string {
	names := make([]string, len(c.choices))
	for i, ch := range c.choices {
		names[i] = ch.Name
	}
	return names
}

func (c *EditController) titles() []string {
	titles := make([]string, len(c.choices))
	for i, ch := range c.choices {
		titles[i] = ch.Title
	}
	return titles
}

func saveResultMessage(r photos.SaveResult) string {
	switch r {
	case photos.SaveSucceeded:
		return msgSaveSucceeded
	case photos.SaveRestricted:
		return msgSaveRestricted
	case photos.SaveDenied:
		return msgSaveDenied
	default:
		return msgSaveFailed
	}
}

func placeholderImage(size int) image.Image {
	if size <= 0 {
		size = 16
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{R: 210, G: 208, B: 200, A: 255}}, image.Point{}, draw.Src)
	inset := size / 4
	inner := image.Rect(inset, inset, size-inset, size-inset)
	draw.Draw(img, inner, &image.Uniform{C: color.RGBA{R: 235, G: 233, B: 227, A: 255}}, image.Point{}, draw.Src)
	return img
}
