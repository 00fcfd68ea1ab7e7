package gui

import (
	"catfilter/internal/gui/widgets"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// LoadScreen is the Fyne rendering of the load screen.
type LoadScreen struct {
	controller *LoadController

	display       *widgets.ImageDisplay
	toolbar       *widgets.Toolbar
	loadButton    *widget.Button
	cancelButton  *widget.Button
	editButton    *widget.Button
	mainContainer *fyne.Container
}

func NewLoadScreen(controller *LoadController) *LoadScreen {
	s := &LoadScreen{controller: controller}
	s.setupComponents()
	s.setupLayout()
	controller.SetView(s)
	return s
}

func (s *LoadScreen) setupComponents() {
	s.display = widgets.NewImageDisplay()
	s.toolbar = widgets.NewToolbar()
	s.loadButton = s.toolbar.AddButton("Load", s.controller.Load)
	s.cancelButton = s.toolbar.AddButton("Cancel", s.controller.Cancel)
	s.editButton = s.toolbar.AddButton("Edit", s.controller.Edit)
}

func (s *LoadScreen) setupLayout() {
	s.mainContainer = container.NewBorder(nil, s.toolbar.GetContainer(), nil, nil, s.display.GetContainer())
}

func (s *LoadScreen) Content() fyne.CanvasObject {
	return s.mainContainer
}

func (s *LoadScreen) ShowLoadState(state LoadScreenState) {
	s.display.SetBusy(state.Loading)
	s.display.SetCaption(state.Title)
	s.display.SetImage(state.Image)

	setEnabled(s.loadButton, !state.Loading)
	setEnabled(s.cancelButton, state.Loading)
	setEnabled(s.editButton, !state.Loading && state.Image != nil)

	switch {
	case state.Loading:
		s.toolbar.SetStatus("Loading...")
	case state.Image != nil:
		s.toolbar.SetStatus("Ready")
	default:
		s.toolbar.SetStatus("")
	}
}

func setEnabled(b *widget.Button, enabled bool) {
	if enabled {
		b.Enable()
	} else {
		b.Disable()
	}
}
