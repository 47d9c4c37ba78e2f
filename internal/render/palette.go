package render

import (
	"image/color"

	"gonum.org/v1/plot/vg"
)

// Style is a line color plus dash pattern. Nil dashes draw a solid line.
type Style struct {
	Color  color.Color
	Dashes []vg.Length
}

var (
	red   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	green = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	blue  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	gray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

var (
	dashDot    = []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}
	dashDotDot = []vg.Length{vg.Points(6), vg.Points(2), vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}
)

// Fallback is handed out once a palette is exhausted.
var Fallback = Style{Color: blue}

// Palette hands out each style at most once, last entry first.
type Palette struct {
	styles []Style
}

// NewPalette builds the nine-entry palette: solid, dash-dot and
// dash-dash-dot, each in red, green and blue.
func NewPalette() *Palette {
	var styles []Style
	for _, dashes := range [][]vg.Length{nil, dashDot, dashDotDot} {
		for _, c := range []color.Color{red, green, blue} {
			styles = append(styles, Style{Color: c, Dashes: dashes})
		}
	}
	return &Palette{styles: styles}
}

// Next returns an unused style, or Fallback when none remain.
func (p *Palette) Next() Style {
	if len(p.styles) == 0 {
		return Fallback
	}
	s := p.styles[len(p.styles)-1]
	p.styles = p.styles[:len(p.styles)-1]
	return s
}

// Remaining is the number of unused styles.
func (p *Palette) Remaining() int {
	return len(p.styles)
}
