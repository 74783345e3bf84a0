package tikzcd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matzehuels/quiverkit/pkg/colour"
)

func TestFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
		rest string
	}{
		{"1.5pt", 1.5, true, "pt"},
		{"-.25", -0.25, true, ""},
		{"3.", 3, true, ""},
		{"42", 42, true, ""},
		{"-", 0, false, "-"},
		{".", 0, false, "."},
		{"NaN", 0, false, "NaN"},
		{"", 0, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p := newParser(tt.in, nil)
			got, f := p.float()
			assert.Equal(t, tt.ok, f == nil)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rest, p.code)
		})
	}
}

func TestNaturalAndInteger(t *testing.T) {
	p := newParser("42x", nil)
	n, f := p.natural()
	assert.Nil(t, f)
	assert.Equal(t, 42, n)
	assert.Equal(t, "x", p.code)

	_, f = newParser("x", nil).natural()
	assert.NotNil(t, f)

	n, f = newParser("-7", nil).integer()
	assert.Nil(t, f)
	assert.Equal(t, -7, n)

	_, f = newParser("-x", nil).integer()
	assert.NotNil(t, f)
}

func TestLength(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"3", 3, true},
		{"3pt", 3, true},
		{"2em", 20, true},
		{"1in", 72.27, true},
		{"2furlongs", 0, false},
		{"pt", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, f := newParser(tt.in, nil).length()
			assert.Equal(t, tt.ok, f == nil)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseRGB(t *testing.T) {
	tests := []struct {
		in   string
		want colour.Colour
		ok   bool
	}{
		{"rgb,255:red,255;green,0;blue,0", colour.FromRGB(255, 0, 0), true},
		{"rgb, 255: red, 10; green, 20; blue, 30", colour.FromRGB(10, 20, 30), true},
		{"rgb,100:red,1;green,2;blue,3", colour.Colour{}, false},
		{"rgb,255:red,256;green,0;blue,0", colour.Colour{}, false},
		{"rgb,255:green,0;red,0;blue,0", colour.Colour{}, false},
		{"rgb,255:red,-1;green,0;blue,0", colour.Colour{}, false},
		{"rgb,255:red,1;green,2", colour.Colour{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseRGB(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColourOption(t *testing.T) {
	p := newParser("blue, x", nil)
	c, f := p.colour()
	assert.Nil(t, f)
	assert.Equal(t, colour.FromRGB(0, 0, 255), c)
	assert.Equal(t, ", x", p.code)

	p = newParser("chartreuse", nil)
	_, f = p.colour()
	if assert.NotNil(t, f) {
		assert.Equal(t, "malformed colour `chartreuse`", f.diag.Message.String())
		assert.Equal(t, 10, f.diag.Range.Length)
	}
}

func TestTextColour(t *testing.T) {
	c, label, ok := textColour(`\textcolor{rgb,255:red,0;green,128;blue,0}{x^2}`)
	assert.True(t, ok)
	assert.Equal(t, "x^2", label)
	assert.Equal(t, colour.FromRGB(0, 128, 0), c)

	_, _, ok = textColour(`\textcolor{red}{x}`)
	assert.False(t, ok)
	_, _, ok = textColour(`\textcolor{rgb,255:red,0;green,128;blue,0}{x} y`)
	assert.False(t, ok)
}

func TestGroupLen(t *testing.T) {
	assert.Equal(t, 5, groupLen("{a{}}b"))
	assert.Equal(t, 4, groupLen(`{\}}`))
	assert.Equal(t, -1, groupLen("{a"))
	assert.Equal(t, -1, groupLen("a}"))
	assert.Equal(t, "a", unbrace("{a}"))
	assert.Equal(t, "{a}b", unbrace("{a}b"))
}
