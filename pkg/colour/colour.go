// Package colour provides the HSLA colour model used for labels and arrows.
//
// Colours are stored as hue in [0, 360], saturation and lightness in
// [0, 100] and alpha in [0, 1], which is also their wire representation in
// the compact diagram encoding. Conversion to and from 8-bit RGB supports the
// tikz-cd `{rgb,255:red,R;green,G;blue,B}` colour literal.
package colour

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Colour is an HSLA colour.
type Colour struct {
	H float64 // hue, degrees in [0, 360]
	S float64 // saturation, percent in [0, 100]
	L float64 // lightness, percent in [0, 100]
	A float64 // alpha in [0, 1]
}

// Black is the default colour of every label and arrow.
func Black() Colour { return Colour{A: 1} }

// New returns an opaque colour with the given hue, saturation and lightness.
func New(h, s, l float64) Colour { return Colour{H: h, S: s, L: l, A: 1} }

// Eq reports whether c and o describe the same colour. Hue is irrelevant
// for achromatic colours, so black with any hue equals Black().
func (c Colour) Eq(o Colour) bool {
	if c.A != o.A || c.S != o.S || c.L != o.L {
		return false
	}
	if c.S == 0 || c.L == 0 || c.L == 100 {
		return true
	}
	return c.H == o.H
}

// IsBlack reports whether c equals Black().
func (c Colour) IsBlack() bool { return c.Eq(Black()) }

// HSLA returns the compact wire form [h, s, l, a].
func (c Colour) HSLA() [4]float64 { return [4]float64{c.H, c.S, c.L, c.A} }

// FromHSLA is the inverse of HSLA.
func FromHSLA(v [4]float64) Colour { return Colour{H: v[0], S: v[1], L: v[2], A: v[3]} }

// Valid reports whether every component lies in its range.
func (c Colour) Valid() bool {
	return inRange(c.H, 0, 360) && inRange(c.S, 0, 100) && inRange(c.L, 0, 100) && inRange(c.A, 0, 1)
}

func inRange(v, lo, hi float64) bool { return !math.IsNaN(v) && v >= lo && v <= hi }

// FromRGB converts 8-bit RGB channels to an opaque colour.
func FromRGB(r, g, b uint8) Colour {
	h, s, l := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hsl()
	return Colour{H: round(h), S: round(s * 100), L: round(l * 100), A: 1}
}

// RGB converts c to 8-bit RGB channels, ignoring alpha.
func (c Colour) RGB() (r, g, b uint8) {
	return colorful.Hsl(c.H, c.S/100, c.L/100).Clamped().RGB255()
}

// round keeps two decimal places so that converted colours encode compactly.
func round(v float64) float64 { return math.Round(v*100) / 100 }

// TikZ formats c as a tikz colour literal.
func (c Colour) TikZ() string {
	r, g, b := c.RGB()
	if c.A < 1 {
		return fmt.Sprintf("{rgb,255:red,%d;green,%d;blue,%d}, opacity=%g", r, g, b, c.A)
	}
	return fmt.Sprintf("{rgb,255:red,%d;green,%d;blue,%d}", r, g, b)
}

// String implements fmt.Stringer.
func (c Colour) String() string {
	return fmt.Sprintf("hsla(%g, %g%%, %g%%, %g)", c.H, c.S, c.L, c.A)
}
