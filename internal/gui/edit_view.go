package gui

import (
	"image"

	"catfilter/internal/gui/widgets"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// EditScreen is the Fyne rendering of the edit screen.
type EditScreen struct {
	controller *EditController

	display       *widgets.ImageDisplay
	samples       *widgets.SampleGrid
	toolbar       *widgets.Toolbar
	saveButton    *widget.Button
	mainContainer *fyne.Container
}

func NewEditScreen(controller *EditController) *EditScreen {
	s := &EditScreen{controller: controller}
	s.setupComponents()
	s.setupLayout()
	controller.SetView(s)
	return s
}

func (s *EditScreen) setupComponents() {
	s.display = widgets.NewImageDisplay()
	s.samples = widgets.NewSampleGrid(s.controller.SelectFilter)
	s.toolbar = widgets.NewToolbar()
	s.toolbar.AddButton("Back", s.controller.FinishEditing)
	s.saveButton = s.toolbar.AddButton("Save", s.controller.Save)
}

func (s *EditScreen) setupLayout() {
	bottom := container.NewVBox(s.samples.GetContainer(), s.toolbar.GetContainer())
	s.mainContainer = container.NewBorder(nil, bottom, nil, nil, s.display.GetContainer())
}

func (s *EditScreen) Content() fyne.CanvasObject {
	return s.mainContainer
}

func (s *EditScreen) ShowProcessing(processing bool) {
	s.display.SetBusy(processing)
	setEnabled(s.saveButton, !processing)
	if processing {
		s.toolbar.SetStatus("Applying filter...")
	} else {
		s.toolbar.SetStatus("")
	}
}

func (s *EditScreen) ShowImage(img image.Image) {
	s.display.SetImage(img)
}

func (s *EditScreen) ShowSamples(samples []image.Image, titles []string) {
	s.samples.SetSamples(samples, titles)
}

func (s *EditScreen) UpdateSample(index int, img image.Image) {
	s.samples.UpdateSample(index, img)
}
