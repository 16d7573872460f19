package main

import "strings"

const (
	minOpacity = 0.1
	maxOpacity = 1.0
)

// textColors is the palette the colour button cycles through. Names are
// understood by both the TUI (lipgloss) and the overlay.
var textColors = []string{"white", "yellow", "cyan", "green", "magenta", "orange"}

var colorHex = map[string]string{
	"white":   "#ffffff",
	"yellow":  "#ffd75f",
	"cyan":    "#5fd7ff",
	"green":   "#87d787",
	"magenta": "#d787d7",
	"orange":  "#ffaf5f",
}

// windowState holds the overlay's presentation settings.
type windowState struct {
	TextColor string
	Opacity   float64
	Expanded  bool
}

func newWindowState(color string, opacity float64, expanded bool) windowState {
	w := windowState{TextColor: strings.ToLower(color), Expanded: expanded}
	if _, ok := colorHex[w.TextColor]; !ok {
		w.TextColor = textColors[0]
	}
	w.SetOpacity(opacity)
	return w
}

func (w *windowState) SetOpacity(v float64) {
	w.Opacity = min(maxOpacity, max(minOpacity, v))
}

// NextColor advances to the next palette entry and returns it.
func (w *windowState) NextColor() string {
	i := 0
	for j, c := range textColors {
		if c == w.TextColor {
			i = j + 1
			break
		}
	}
	w.TextColor = textColors[i%len(textColors)]
	return w.TextColor
}

func (w *windowState) ToggleExpanded() bool {
	w.Expanded = !w.Expanded
	return w.Expanded
}

func (w windowState) Hex() string { return colorHex[w.TextColor] }
