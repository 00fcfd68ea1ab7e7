// Package dispatch provides the single context on which UI-facing callbacks run.
package dispatch

import "fyne.io/fyne/v2"

// Dispatcher runs fn on the UI-update context. Calls are executed one at a
// time in the order they were submitted.
type Dispatcher interface {
	Do(fn func())
}

// Fyne hands callbacks to the Fyne main-thread queue.
type Fyne struct{}

func (Fyne) Do(fn func()) {
	if fn == nil {
		return
	}
	fyne.Do(fn)
}
