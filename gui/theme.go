//go:build gui

package gui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var defaultText = color.NRGBA{255, 255, 255, 255}

// overlayTheme is the dark theme with a user-chosen text colour.
type overlayTheme struct {
	text color.Color
}

func (d *overlayTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.RGBA{18, 18, 18, 255}
	case theme.ColorNameForeground:
		return d.text
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (d *overlayTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (d *overlayTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (d *overlayTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}

// parseHex reads "#rrggbb".
func parseHex(s string) (color.Color, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, fmt.Errorf("bad colour %q: %w", s, err)
	}
	return color.NRGBA{r, g, b, 255}, nil
}
