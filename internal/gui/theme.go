package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

type CatTheme struct{}

func NewCatTheme() fyne.Theme {
	return &CatTheme{}
}

func (t *CatTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	dark := variant == theme.VariantDark

	switch name {
	case theme.ColorNameBackground:
		if dark {
			return color.RGBA{R: 32, G: 30, B: 28, A: 255}
		}
		return color.RGBA{R: 250, G: 249, B: 245, A: 255}
	case theme.ColorNameButton:
		if dark {
			return color.RGBA{R: 62, G: 58, B: 54, A: 255}
		}
		return color.RGBA{R: 240, G: 238, B: 232, A: 255}
	case theme.ColorNamePrimary:
		if dark {
			return color.RGBA{R: 244, G: 162, B: 97, A: 255}
		}
		return color.RGBA{R: 217, G: 119, B: 54, A: 255}
	case theme.ColorNameHover:
		if dark {
			return color.RGBA{R: 255, G: 255, B: 255, A: 25}
		}
		return color.RGBA{R: 0, G: 0, B: 0, A: 25}
	case theme.ColorNameFocus:
		return t.Color(theme.ColorNamePrimary, variant)
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *CatTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *CatTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *CatTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
