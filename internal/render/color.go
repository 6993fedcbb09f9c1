// Package render draws choropleth maps and the descriptive charts with
// gonum/plot.
package render

import (
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
)

// Background fills polygons without a displayable value.
var Background = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}

// Edge outlines every polygon (gray 0.8).
var Edge = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}

// orRd is the 9-class ColorBrewer OrRd ramp, light to dark.
var orRd = ramp{
	{0xff, 0xf7, 0xec, 0xff},
	{0xfe, 0xe8, 0xc8, 0xff},
	{0xfd, 0xd4, 0x9e, 0xff},
	{0xfd, 0xbb, 0x84, 0xff},
	{0xfc, 0x8d, 0x59, 0xff},
	{0xef, 0x65, 0x48, 0xff},
	{0xd7, 0x30, 0x1f, 0xff},
	{0xb3, 0x00, 0x00, 0xff},
	{0x7f, 0x00, 0x00, 0xff},
}

// rdBu is a diverging ramp for correlation matrices, blue (-1) to red (+1).
var rdBu = ramp{
	{0x21, 0x66, 0xac, 0xff},
	{0x43, 0x93, 0xc3, 0xff},
	{0x92, 0xc5, 0xde, 0xff},
	{0xd1, 0xe5, 0xf0, 0xff},
	{0xf7, 0xf7, 0xf7, 0xff},
	{0xfd, 0xdb, 0xc7, 0xff},
	{0xf4, 0xa5, 0x82, 0xff},
	{0xd6, 0x60, 0x4d, 0xff},
	{0xb2, 0x18, 0x2b, 0xff},
}

type ramp []color.RGBA

var _ palette.Palette = ramp(nil)

// Colors implements palette.Palette.
func (r ramp) Colors() []color.Color {
	out := make([]color.Color, len(r))
	for i, c := range r {
		out[i] = c
	}
	return out
}

// at interpolates the ramp at t in [0,1].
func (r ramp) at(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return r[0]
	}
	if t >= 1 {
		return r[len(r)-1]
	}
	pos := t * float64(len(r)-1)
	i := int(pos)
	w := pos - float64(i)
	a, b := r[i], r[i+1]
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x)*(1-w) + float64(y)*w)) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

// Scale maps values in [Min, Max] onto the OrRd ramp.
type Scale struct {
	Min, Max float64
}

// Color returns the ramp color for x.
func (s Scale) Color(x float64) color.RGBA {
	if s.Max <= s.Min {
		return orRd[len(orRd)/2]
	}
	return orRd.at((x - s.Min) / (s.Max - s.Min))
}
