package gui

import (
	"errors"
	"image"
	"net/url"
	"testing"

	"catfilter/internal/logger"
	"catfilter/internal/photos"
	"catfilter/internal/pipeline"
	"catfilter/internal/store"

	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	loads   int
	cancels int
}

func (l *fakeLoader) Load() bool { l.loads++; return true }
func (l *fakeLoader) CancelLoad() { l.cancels++ }

type fakeLoadView struct {
	states []LoadScreenState
}

func (v *fakeLoadView) ShowLoadState(s LoadScreenState) { v.states = append(v.states, s) }

func (v *fakeLoadView) last() LoadScreenState { return v.states[len(v.states)-1] }

type fakePresenter struct {
	presented image.Image
	dismissed int
}

func (p *fakePresenter) PresentEditor(img image.Image, _ EditDelegate) { p.presented = img }
func (p *fakePresenter) DismissEditor()                                 { p.dismissed++ }

func testResource(t *testing.T) *store.Resource {
	t.Helper()
	u, err := url.Parse("https://example.com/cat.jpg")
	require.NoError(t, err)
	return store.NewResource(u)
}

func newLoadFixture() (*LoadController, *fakeLoader, *fakeLoadView, *fakePresenter) {
	loader := &fakeLoader{}
	view := &fakeLoadView{}
	presenter := &fakePresenter{}
	c := NewLoadController(loader, logger.NewNop())
	c.SetView(view)
	c.SetPresenter(presenter)
	return c, loader, view, presenter
}

func TestLoadControllerHappyPath(t *testing.T) {
	cat := image.NewRGBA(image.Rect(0, 0, 3, 3))
	c, loader, view, presenter := newLoadFixture()
	res := testResource(t)

	c.Load()
	require.Equal(t, 1, loader.loads)
	require.Equal(t, LoadScreenState{Loading: true}, view.last())

	c.Load()
	require.Equal(t, 1, loader.loads, "second load while loading is ignored")

	c.LoadStageFinished(pipeline.LoadOutcome{Stage: pipeline.StageMetadata, Resource: res})
	require.True(t, view.last().Loading)
	require.Equal(t, "https://example.com/cat.jpg", view.last().Title)

	c.LoadStageFinished(pipeline.LoadOutcome{
		Stage:    pipeline.StageContent,
		Resource: res,
		Data:     []byte("png"),
		Image:    &pipeline.ImageData{Image: cat, Width: 3, Height: 3, Format: "png"},
	})
	require.False(t, view.last().Loading)
	require.Equal(t, "https://example.com/cat.jpg", view.last().Title)
	require.Same(t, cat, view.last().Image)

	c.Edit()
	require.Same(t, cat, presenter.presented)
	c.EditingFinished()
	require.Equal(t, 1, presenter.dismissed)
}

func TestLoadControllerFailureTitles(t *testing.T) {
	cases := []struct {
		name    string
		outcome pipeline.LoadOutcome
		title   string
	}{
		{"metadata cancelled", pipeline.LoadOutcome{Stage: pipeline.StageMetadata, Err: store.ErrCancelled}, "Cancelled"},
		{"metadata failed", pipeline.LoadOutcome{Stage: pipeline.StageMetadata, Err: store.ErrNetwork}, "Error"},
		{"content cancelled", pipeline.LoadOutcome{Stage: pipeline.StageContent, Err: store.ErrCancelled}, "Cancelled"},
		{"content failed", pipeline.LoadOutcome{Stage: pipeline.StageContent, Err: store.ErrServer}, "Error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, view, _ := newLoadFixture()
			c.Load()
			c.LoadStageFinished(tc.outcome)

			require.False(t, view.last().Loading)
			require.Equal(t, tc.title, view.last().Title)
			require.Nil(t, view.last().Image)
		})
	}
}

func TestLoadControllerUndecodableContent(t *testing.T) {
	undecodable := &store.LoadError{Kind: store.ErrFormat, Op: "decode content", Err: pipeline.ErrUndecodable}
	cases := []struct {
		name    string
		outcome pipeline.LoadOutcome
	}{
		{"decode failed", pipeline.LoadOutcome{Stage: pipeline.StageContent, Data: []byte("junk"), Err: undecodable}},
		{"no decoded image", pipeline.LoadOutcome{Stage: pipeline.StageContent, Data: []byte("png")}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, view, presenter := newLoadFixture()
			res := testResource(t)
			tc.outcome.Resource = res

			c.Load()
			c.LoadStageFinished(pipeline.LoadOutcome{Stage: pipeline.StageMetadata, Resource: res})
			c.LoadStageFinished(tc.outcome)

			require.False(t, view.last().Loading)
			require.Equal(t, "Error", view.last().Title)
			require.Nil(t, view.last().Image)

			c.Edit()
			require.Nil(t, presenter.presented)
		})
	}
}

func TestLoadControllerCancelForwards(t *testing.T) {
	c, loader, _, _ := newLoadFixture()
	c.Load()
	c.Cancel()
	require.Equal(t, 1, loader.cancels)
}

type fakeLanes struct {
	previews      []string
	previewDone   func(image.Image)
	batches       [][]string
	batchSource   image.Image
	batchDone     func(pipeline.TransformOutcome)
	cancelPreview int
	cancelBatch   int
}

func (l *fakeLanes) PreviewFilter(filter string, _ image.Image, done func(image.Image)) {
	l.previews = append(l.previews, filter)
	l.previewDone = done
}
func (l *fakeLanes) CancelPreview() { l.cancelPreview++ }
func (l *fakeLanes) ProcessBatch(img image.Image, filters []string, done func(pipeline.TransformOutcome)) {
	l.batches = append(l.batches, filters)
	l.batchSource = img
	l.batchDone = done
}
func (l *fakeLanes) CancelBatch() { l.cancelBatch++ }

type fakeSaver struct {
	saved image.Image
	done  func(photos.SaveResult)
}

func (s *fakeSaver) SaveImage(img image.Image, done func(photos.SaveResult)) {
	s.saved = img
	s.done = done
}

type fakeEditView struct {
	processing []bool
	images     []image.Image
	samples    []image.Image
	titles     []string
	updated    map[int]image.Image
}

func (v *fakeEditView) ShowProcessing(p bool)     { v.processing = append(v.processing, p) }
func (v *fakeEditView) ShowImage(img image.Image) { v.images = append(v.images, img) }
func (v *fakeEditView) ShowSamples(s []image.Image, titles []string) {
	v.samples, v.titles = s, titles
}
func (v *fakeEditView) UpdateSample(i int, img image.Image) {
	if v.updated == nil {
		v.updated = make(map[int]image.Image)
	}
	v.updated[i] = img
}

type fakeMessages struct {
	messages  []string
	onDismiss func()
}

func (m *fakeMessages) ShowMessage(msg string, onDismiss func()) {
	m.messages = append(m.messages, msg)
	m.onDismiss = onDismiss
}

type countingDelegate struct{ finished int }

func (d *countingDelegate) EditingFinished() { d.finished++ }

var testChoices = []FilterChoice{{"mono", "Mono"}, {"sepia", "Sepia"}, {"invert", "Invert"}}

func newEditFixture() (*EditController, *fakeLanes, *fakeSaver, *fakeEditView, *fakeMessages) {
	lanes := &fakeLanes{}
	saver := &fakeSaver{}
	view := &fakeEditView{}
	msgs := &fakeMessages{}
	c := NewEditController(lanes, saver, testChoices, 32, logger.NewNop())
	c.SetView(view)
	c.SetMessagePresenter(msgs)
	return c, lanes, saver, view, msgs
}

func TestEditControllerOpenAndSamples(t *testing.T) {
	c, lanes, _, view, _ := newEditFixture()
	cat := image.NewRGBA(image.Rect(0, 0, 128, 64))

	c.Open(cat, &countingDelegate{})
	c.UpdateView()

	require.Equal(t, []bool{false}, view.processing)
	require.Same(t, cat, view.images[0])
	require.Len(t, view.samples, 3)
	require.Equal(t, []string{"Mono", "Sepia", "Invert"}, view.titles)
	require.Equal(t, [][]string{{"mono", "sepia", "invert"}}, lanes.batches)
	require.Equal(t, 32, lanes.batchSource.Bounds().Dx())

	sample := image.NewGray(image.Rect(0, 0, 2, 2))
	lanes.batchDone(pipeline.TransformOutcome{Index: 1, Filter: "sepia", Status: pipeline.TransformSucceeded, Image: sample})
	lanes.batchDone(pipeline.TransformOutcome{Index: 2, Filter: "invert", Status: pipeline.TransformFailed, Err: errors.New("boom")})

	require.Len(t, view.updated, 1)
	require.Same(t, sample, view.updated[1])
}

func TestEditControllerPreview(t *testing.T) {
	c, lanes, _, view, _ := newEditFixture()
	cat := image.NewRGBA(image.Rect(0, 0, 8, 8))
	c.Open(cat, &countingDelegate{})
	c.UpdateView()

	c.SelectFilter(1)
	require.True(t, c.Processing())
	require.Equal(t, []string{"sepia"}, lanes.previews)

	filtered := image.NewGray(image.Rect(0, 0, 8, 8))
	lanes.previewDone(filtered)
	require.False(t, c.Processing())
	require.Same(t, filtered, c.Processed())
	require.Same(t, filtered, view.images[len(view.images)-1])

	c.SelectFilter(0)
	lanes.previewDone(nil)
	require.Same(t, cat, c.Processed(), "failed preview falls back to the original")

	c.SelectFilter(99)
	require.Len(t, lanes.previews, 2)
}

func TestEditControllerSaveMessages(t *testing.T) {
	cases := map[photos.SaveResult]string{
		photos.SaveSucceeded:  "Saving image complete",
		photos.SaveFailed:     "Failed to save image",
		photos.SaveRestricted: "Access to photos library restricted",
		photos.SaveDenied:     "Access to photos denied",
	}

	for result, want := range cases {
		t.Run(result.String(), func(t *testing.T) {
			c, lanes, saver, view, msgs := newEditFixture()
			delegate := &countingDelegate{}
			cat := image.NewRGBA(image.Rect(0, 0, 8, 8))
			c.Open(cat, delegate)
			c.UpdateView()
			shown := len(view.images)

			c.Save()
			require.Same(t, cat, saver.saved)
			saver.done(result)

			require.Equal(t, []string{want}, msgs.messages)
			require.Len(t, view.images, shown, "save result must not touch the image")
			require.Zero(t, delegate.finished)

			msgs.onDismiss()
			require.Equal(t, 1, delegate.finished)
			require.Equal(t, 1, lanes.cancelPreview)
			require.Equal(t, 1, lanes.cancelBatch)
		})
	}
}

func TestEditControllerIgnoresLateCallbacks(t *testing.T) {
	c, lanes, _, view, _ := newEditFixture()
	delegate := &countingDelegate{}
	c.Open(image.NewRGBA(image.Rect(0, 0, 8, 8)), delegate)
	c.UpdateView()
	c.SelectFilter(0)
	staleBatch, stalePreview := lanes.batchDone, lanes.previewDone

	c.FinishEditing()
	c.FinishEditing()
	require.Equal(t, 1, delegate.finished)

	second := image.NewRGBA(image.Rect(0, 0, 4, 4))
	c.Open(second, delegate)
	c.UpdateView()
	shown := len(view.images)

	stalePreview(image.NewGray(image.Rect(0, 0, 1, 1)))
	staleBatch(pipeline.TransformOutcome{Index: 0, Status: pipeline.TransformSucceeded, Image: image.NewGray(image.Rect(0, 0, 1, 1))})

	require.Len(t, view.images, shown)
	require.Empty(t, view.updated)
	require.Same(t, second, c.Processed())
}
