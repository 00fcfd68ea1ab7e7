package widgets

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	ImageAreaWidth  = 520
	ImageAreaHeight = 400
)

// ImageDisplay shows one image under a caption line with a busy indicator.
type ImageDisplay struct {
	container fyne.CanvasObject
	image     *canvas.Image
	caption   *widget.Label
	busy      *widget.ProgressBarInfinite
}

func NewImageDisplay() *ImageDisplay {
	display := &ImageDisplay{}
	display.createComponents()
	display.setupLayout()
	return display
}

func (id *ImageDisplay) createComponents() {
	id.image = canvas.NewImageFromImage(nil)
	id.image.FillMode = canvas.ImageFillContain
	id.image.ScaleMode = canvas.ImageScaleSmooth
	id.image.SetMinSize(fyne.NewSize(ImageAreaWidth, ImageAreaHeight))

	id.caption = widget.NewLabel("")
	id.caption.Alignment = fyne.TextAlignCenter
	id.caption.Truncation = fyne.TextTruncateEllipsis

	id.busy = widget.NewProgressBarInfinite()
	id.busy.Stop()
	id.busy.Hide()
}

func (id *ImageDisplay) setupLayout() {
	id.container = container.NewBorder(
		id.caption,
		id.busy,
		nil, nil,
		id.image,
	)
}

func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.container
}

func (id *ImageDisplay) SetImage(img image.Image) {
	id.image.Image = img
	id.image.Refresh()
}

func (id *ImageDisplay) SetCaption(text string) {
	id.caption.SetText(text)
}

func (id *ImageDisplay) SetBusy(busy bool) {
	if busy {
		id.busy.Show()
		id.busy.Start()
		return
	}
	id.busy.Stop()
	id.busy.Hide()
}
