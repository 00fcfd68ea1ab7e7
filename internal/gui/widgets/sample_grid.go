package widgets

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const SampleTileSize = 96

type sampleTile struct {
	image  *canvas.Image
	title  *widget.Label
	object fyne.CanvasObject
}

// SampleGrid is a horizontally scrolling strip of tappable filter samples.
type SampleGrid struct {
	container *container.Scroll
	row       *fyne.Container
	tiles     []*sampleTile
	onSelect  func(int)
}

func NewSampleGrid(onSelect func(int)) *SampleGrid {
	g := &SampleGrid{onSelect: onSelect}
	g.row = container.NewHBox()
	g.container = container.NewHScroll(g.row)
	g.container.SetMinSize(fyne.NewSize(SampleTileSize*4, SampleTileSize+40))
	return g
}

func (g *SampleGrid) GetContainer() fyne.CanvasObject {
	return g.container
}

// SetSamples rebuilds the strip.
func (g *SampleGrid) SetSamples(samples []image.Image, titles []string) {
	g.row.RemoveAll()
	g.tiles = g.tiles[:0]

	for i, img := range samples {
		title := ""
		if i < len(titles) {
			title = titles[i]
		}
		tile := g.newTile(i, img, title)
		g.tiles = append(g.tiles, tile)
		g.row.Add(tile.object)
	}
	g.row.Refresh()
}

func (g *SampleGrid) UpdateSample(index int, img image.Image) {
	if index < 0 || index >= len(g.tiles) {
		return
	}
	g.tiles[index].image.Image = img
	g.tiles[index].image.Refresh()
}

func (g *SampleGrid) newTile(index int, img image.Image, title string) *sampleTile {
	picture := canvas.NewImageFromImage(img)
	picture.FillMode = canvas.ImageFillContain
	picture.ScaleMode = canvas.ImageScaleFastest
	picture.SetMinSize(fyne.NewSize(SampleTileSize, SampleTileSize))

	label := widget.NewLabel(title)
	label.Alignment = fyne.TextAlignCenter

	// An empty low-importance button on top makes the picture tappable.
	tap := widget.NewButton("", func() {
		if g.onSelect != nil {
			g.onSelect(index)
		}
	})
	tap.Importance = widget.LowImportance

	return &sampleTile{
		image: picture,
		title: label,
		object: container.NewBorder(nil, label, nil, nil,
			container.NewStack(picture, tap)),
	}
}
