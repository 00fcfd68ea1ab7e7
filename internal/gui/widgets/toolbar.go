package widgets

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Toolbar is a row of action buttons with a status label on the right.
type Toolbar struct {
	container   *fyne.Container
	buttons     *fyne.Container
	statusLabel *widget.Label
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents()
	toolbar.buildLayout()
	return toolbar
}

func (t *Toolbar) createComponents() {
	t.buttons = container.NewHBox()
	t.statusLabel = widget.NewLabel("")
}

func (t *Toolbar) buildLayout() {
	background := canvas.NewRectangle(color.RGBA{R: 250, G: 249, B: 245, A: 255})
	border := canvas.NewRectangle(color.Transparent)
	border.StrokeWidth = 1.0
	border.StrokeColor = color.RGBA{R: 231, G: 231, B: 231, A: 255}

	content := container.NewBorder(nil, nil, t.buttons, t.statusLabel)

	t.container = container.NewStack(
		border,
		container.NewPadded(
			container.NewStack(background, container.NewPadded(content)),
		),
	)
}

// AddButton appends a button and returns it so callers can toggle it.
func (t *Toolbar) AddButton(label string, handler func()) *widget.Button {
	button := widget.NewButton(label, func() {
		if handler != nil {
			handler()
		}
	})
	button.Importance = widget.HighImportance
	t.buttons.Add(button)
	return button
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}
