package gui

import (
	"image"

	"catfilter/internal/logger"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// Manager owns the window and switches between the load and edit screens.
type Manager struct {
	window fyne.Window
	logger logger.Logger

	loadController *LoadController
	editController *EditController
	loadScreen     *LoadScreen
	editScreen     *EditScreen

	editing    bool
	isShutdown bool
}

func NewManager(window fyne.Window, load *LoadController, edit *EditController, log logger.Logger) *Manager {
	m := &Manager{
		window:         window,
		logger:         log,
		loadController: load,
		editController: edit,
	}

	m.loadScreen = NewLoadScreen(load)
	m.editScreen = NewEditScreen(edit)
	load.SetPresenter(m)
	edit.SetMessagePresenter(m)

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"window_title": window.Title(),
	})
	return m
}

func (m *Manager) Show() {
	m.window.SetContent(m.loadScreen.Content())
	m.loadController.UpdateView()
	m.window.Show()
	m.logger.Info("GUIManager", "GUI displayed", nil)
}

// RequestLoad starts a load from outside the load screen. It is ignored
// while the edit screen is showing.
func (m *Manager) RequestLoad() {
	if m.isShutdown || m.editing {
		m.logger.Debug("GUIManager", "load request ignored", map[string]interface{}{
			"editing": m.editing,
		})
		return
	}
	m.loadController.Load()
}

func (m *Manager) PresentEditor(img image.Image, delegate EditDelegate) {
	if m.isShutdown {
		return
	}
	m.editing = true
	m.editController.Open(img, delegate)
	m.window.SetContent(m.editScreen.Content())
	m.editController.UpdateView()
	m.logger.Debug("GUIManager", "edit screen presented", nil)
}

func (m *Manager) DismissEditor() {
	if !m.editing {
		return
	}
	m.editing = false
	m.window.SetContent(m.loadScreen.Content())
	m.loadController.UpdateView()
	m.logger.Debug("GUIManager", "edit screen dismissed", nil)
}

// ShowMessage shows an information dialog; onDismiss runs when it closes.
func (m *Manager) ShowMessage(message string, onDismiss func()) {
	d := dialog.NewInformation(m.window.Title(), message, m.window)
	d.SetOnClosed(func() {
		if onDismiss != nil {
			onDismiss()
		}
	})
	d.Show()
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}
	m.isShutdown = true
	m.logger.Info("GUIManager", "shutdown initiated", nil)

	m.loadController.Cancel()
	if m.editing {
		m.editController.FinishEditing()
	}

	m.logger.Info("GUIManager", "shutdown completed", nil)
}
