package gui

import (
	"image"
	"testing"

	"catfilter/internal/logger"
	"catfilter/internal/pipeline"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/require"
)

func TestManagerIgnoresLoadWhileEditing(t *testing.T) {
	a := test.NewApp()
	defer a.Quit()
	w := test.NewWindow(nil)
	defer w.Close()

	loader := &fakeLoader{}
	load := NewLoadController(loader, logger.NewNop())
	edit := NewEditController(&fakeLanes{}, &fakeSaver{}, []FilterChoice{{Name: "mono", Title: "Mono"}}, 16, logger.NewNop())
	m := NewManager(w, load, edit, logger.NewNop())
	m.Show()

	m.RequestLoad()
	require.Equal(t, 1, loader.loads)

	cat := image.NewRGBA(image.Rect(0, 0, 4, 4))
	res := testResource(t)
	load.LoadStageFinished(pipeline.LoadOutcome{Stage: pipeline.StageMetadata, Resource: res})
	load.LoadStageFinished(pipeline.LoadOutcome{
		Stage:    pipeline.StageContent,
		Resource: res,
		Image:    &pipeline.ImageData{Image: cat, Width: 4, Height: 4, Format: "png"},
	})

	load.Edit()
	m.RequestLoad()
	require.Equal(t, 1, loader.loads, "load requested while editing must be ignored")
	require.Same(t, cat, load.State().Image)

	edit.FinishEditing()
	m.RequestLoad()
	require.Equal(t, 2, loader.loads)
}
