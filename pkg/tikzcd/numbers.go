package tikzcd

import (
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/quiverkit/pkg/colour"
)

// Lengths are normalised to TeX points.
var units = map[string]float64{
	"pt": 1,
	"bp": 72.27 / 72,
	"mm": 72.27 / 25.4,
	"cm": 72.27 / 2.54,
	"in": 72.27,
	"em": 10,
	"ex": 4.3,
}

var namedColours = map[string]colour.Colour{
	"black":   colour.Black(),
	"white":   colour.FromRGB(255, 255, 255),
	"red":     colour.FromRGB(255, 0, 0),
	"green":   colour.FromRGB(0, 255, 0),
	"blue":    colour.FromRGB(0, 0, 255),
	"cyan":    colour.FromRGB(0, 255, 255),
	"magenta": colour.FromRGB(255, 0, 255),
	"yellow":  colour.FromRGB(255, 255, 0),
	"gray":    colour.FromRGB(128, 128, 128),
	"orange":  colour.FromRGB(255, 128, 0),
	"purple":  colour.FromRGB(191, 0, 64),
}

func digits(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

// natural parses [0-9]+.
func (p *parser) natural() (int, *failure) {
	start := p.pos()
	n := digits(p.code)
	if n == 0 {
		return 0, errorAt(p.rangeHere(), plain("expected a natural number"))
	}
	v, err := strconv.Atoi(p.code[:n])
	p.code = p.code[n:]
	if err != nil {
		return 0, errorAt(p.rangeFrom(start), plain("number out of range"))
	}
	return v, nil
}

// integer parses -?[0-9]+.
func (p *parser) integer() (int, *failure) {
	start := p.pos()
	neg := p.eat("-")
	v, f := p.natural()
	if f != nil {
		return 0, errorAt(p.rangeFrom(start), plain("expected an integer"))
	}
	if neg {
		v = -v
	}
	return v, nil
}

// float parses -?[0-9]*\.?[0-9]* with at least one digit.
func (p *parser) float() (float64, *failure) {
	start := p.pos()
	i := 0
	if p.peek("-") {
		i++
	}
	n := digits(p.code[i:])
	i += n
	if i < len(p.code) && p.code[i] == '.' {
		i++
		m := digits(p.code[i:])
		i += m
		n += m
	}
	if n == 0 {
		return 0, errorAt(p.rangeHere(), plain("expected a number"))
	}
	v, err := strconv.ParseFloat(p.code[:i], 64)
	p.code = p.code[i:]
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errorAt(p.rangeFrom(start), plain("expected a number"))
	}
	return v, nil
}

// length parses a float followed by an optional TeX unit and returns it in
// points.
func (p *parser) length() (float64, *failure) {
	v, f := p.float()
	if f != nil {
		return 0, f
	}
	start := p.pos()
	n := 0
	for n < len(p.code) && isLetter(p.code[n]) {
		n++
	}
	if n == 0 {
		return v, nil
	}
	unit := p.code[:n]
	p.code = p.code[n:]
	scale, ok := units[unit]
	if !ok {
		return 0, errorAt(p.rangeFrom(start), plain("unknown unit "), lit(unit))
	}
	return v * scale, nil
}

// colour parses a named colour or a {rgb,255:red,R;green,G;blue,B} literal.
// Anything else is a malformed colour warning.
func (p *parser) colour() (colour.Colour, *failure) {
	start := p.pos()
	if p.peek("{") {
		n := groupLen(p.code)
		if n < 0 {
			return colour.Black(), errorAt(p.rest(), plain("unbalanced "), lit("{"))
		}
		body := p.code[1 : n-1]
		p.code = p.code[n:]
		c, ok := parseRGB(body)
		if !ok {
			return colour.Black(), warningAt(p.rangeFrom(start), plain("malformed colour "), lit(body))
		}
		return c, nil
	}
	n := 0
	for n < len(p.code) && isLetter(p.code[n]) {
		n++
	}
	name := p.code[:n]
	p.code = p.code[n:]
	c, ok := namedColours[name]
	if !ok {
		return colour.Black(), warningAt(p.rangeFrom(start), plain("malformed colour "), lit(name))
	}
	return c, nil
}

// parseRGB parses the body of an rgb colour literal. The scale must be 255
// and every channel a natural number no greater than it.
func parseRGB(body string) (colour.Colour, bool) {
	body = strings.Join(strings.Fields(body), "")
	rest, ok := strings.CutPrefix(body, "rgb,255:")
	if !ok {
		return colour.Colour{}, false
	}
	parts := strings.Split(rest, ";")
	if len(parts) != 3 {
		return colour.Colour{}, false
	}
	var rgb [3]uint8
	for i, name := range []string{"red", "green", "blue"} {
		v, ok := strings.CutPrefix(parts[i], name+",")
		if !ok || v == "" || digits(v) != len(v) {
			return colour.Colour{}, false
		}
		n, err := strconv.Atoi(v)
		if err != nil || n > 255 {
			return colour.Colour{}, false
		}
		rgb[i] = uint8(n)
	}
	return colour.FromRGB(rgb[0], rgb[1], rgb[2]), true
}

// textColour unwraps \textcolor{rgb,255:...}{label}.
func textColour(label string) (colour.Colour, string, bool) {
	rest, ok := strings.CutPrefix(label, `\textcolor`)
	if !ok {
		return colour.Colour{}, "", false
	}
	n := groupLen(rest)
	if n < 0 {
		return colour.Colour{}, "", false
	}
	c, ok := parseRGB(rest[1 : n-1])
	if !ok {
		return colour.Colour{}, "", false
	}
	inner := rest[n:]
	if m := groupLen(inner); m != len(inner) || m < 2 {
		return colour.Colour{}, "", false
	}
	return c, inner[1 : len(inner)-1], true
}
