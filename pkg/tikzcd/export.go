package tikzcd

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/matzehuels/quiverkit/pkg/colour"
	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// Package names reported in Output.Dependencies.
const quiverPackage = "quiver"

// ExportOptions control the shape of the exported diagram.
type ExportOptions struct {
	// AmpersandReplacement separates columns with \& so the diagram can be
	// used inside macros.
	AmpersandReplacement bool
	// Centre wraps the diagram in \[ \].
	Centre  bool
	Cramped bool
	Sep     string
	// Metric converts shortenings back to points. Defaults to
	// geometry.DefaultGrid.
	Metric geometry.Metric
}

// Output is an exported diagram. Incompatibilities names features of the
// diagram that tikz-cd cannot express and that were dropped or
// approximated; Dependencies names the LaTeX packages the text needs beyond
// tikz-cd.
type Output struct {
	Text              string   `json:"text"`
	Incompatibilities []string `json:"incompatibilities,omitempty"`
	Dependencies      []string `json:"dependencies,omitempty"`
}

// Export writes q as tikz-cd. Vertices are laid out on the grid spanned by
// their bounding rectangle; arrows follow, in level order, addressed with
// from= and to=. Edges between edges refer to their endpoints by name.
func Export(q *quiver.Quiver, opts ExportOptions) Output {
	if opts.Metric == nil {
		opts.Metric = geometry.DefaultGrid()
	}
	x := &exporter{
		q:            q,
		opts:         opts,
		names:        make(map[quiver.Handle]int),
		phantoms:     make(map[quiver.Handle]bool),
		incompatible: make(map[string]bool),
		dependencies: make(map[string]bool),
	}
	return x.export()
}

type exporter struct {
	q      *quiver.Quiver
	opts   ExportOptions
	origin geometry.Point

	names        map[quiver.Handle]int
	phantoms     map[quiver.Handle]bool
	incompatible map[string]bool
	dependencies map[string]bool
}

func (x *exporter) export() Output {
	colSep := "&"
	var settings []string
	if x.opts.AmpersandReplacement {
		colSep = `\&`
		settings = append(settings, `ampersand replacement=\&`)
	}
	if x.opts.Cramped {
		settings = append(settings, "cramped")
	}
	if x.opts.Sep != "" {
		settings = append(settings, "sep="+x.opts.Sep)
	}

	var b strings.Builder
	if x.opts.Centre {
		b.WriteString(`\[`)
	}
	b.WriteString(beginTikzcd)
	if len(settings) > 0 {
		b.WriteString("[" + strings.Join(settings, ", ") + "]")
	}
	b.WriteString("\n")

	if lo, hi, ok := x.q.BoundingRect(); ok {
		x.origin = lo
		rows := x.grid(lo, hi)
		for i, row := range rows {
			b.WriteString("\t" + strings.TrimSpace(strings.Join(row, " "+colSep+" ")))
			if i < len(rows)-1 {
				b.WriteString(` \\`)
			}
			b.WriteString("\n")
		}
	}

	edges := x.q.Edges()
	x.assignNames(edges)
	for _, h := range edges {
		b.WriteString("\t" + x.arrow(h) + "\n")
		if x.phantoms[h] {
			b.WriteString("\t" + x.phantom(h) + "\n")
		}
	}

	b.WriteString(endTikzcd)
	if x.opts.Centre {
		b.WriteString(`\]`)
	}
	return Output{
		Text:              b.String(),
		Incompatibilities: slices.Sorted(maps.Keys(x.incompatible)),
		Dependencies:      slices.Sorted(maps.Keys(x.dependencies)),
	}
}

func (x *exporter) grid(lo, hi geometry.Point) [][]string {
	width := int(math.Round(hi.X-lo.X)) + 1
	rows := make([][]string, int(math.Round(hi.Y-lo.Y))+1)
	for i := range rows {
		rows[i] = make([]string, width)
	}
	for _, h := range x.q.Vertices() {
		c := x.q.Cell(h)
		col, row := x.coords(c.Position)
		if rows[row][col] != "" {
			x.incompatible["overlapping vertices"] = true
		}
		rows[row][col] = vertexLabel(c)
	}
	return rows
}

func (x *exporter) coords(p geometry.Point) (col, row int) {
	return int(math.Round(p.X - x.origin.X)), int(math.Round(p.Y - x.origin.Y))
}

func vertexLabel(c *quiver.Cell) string {
	if c.Label == "" {
		return ""
	}
	if !c.LabelColour.IsBlack() {
		return `{\textcolor` + rgbLiteral(c.LabelColour) + "{" + c.Label + "}}"
	}
	return "{" + c.Label + "}"
}

// assignNames numbers every edge that another edge attaches to, and notes
// which of them also need a phantom copy for attachments by label.
func (x *exporter) assignNames(edges []quiver.Handle) {
	for _, h := range edges {
		c := x.q.Cell(h)
		ends := []struct {
			h       quiver.Handle
			aligned bool
		}{{c.Source, c.Options.EdgeAlignment.Source}, {c.Target, c.Options.EdgeAlignment.Target}}
		for _, end := range ends {
			if !x.q.Cell(end.h).IsEdge() {
				continue
			}
			if _, ok := x.names[end.h]; !ok {
				x.names[end.h] = len(x.names)
			}
			if !end.aligned {
				x.phantoms[end.h] = true
			}
		}
	}
}

// ref addresses an endpoint in from= or to=.
func (x *exporter) ref(h quiver.Handle, aligned bool) string {
	c := x.q.Cell(h)
	if c.IsVertex() {
		col, row := x.coords(c.Position)
		return fmt.Sprintf("%d-%d", row+1, col+1)
	}
	name := strconv.Itoa(x.names[h])
	if !aligned {
		name += "p"
	}
	return name
}

func (x *exporter) arrow(h quiver.Handle) string {
	c := x.q.Cell(h)
	o := c.Options
	var parts []string

	label := c.Label
	switch o.Style.Name {
	case quiver.StyleAdjunction:
		x.dropLabel(label, "labelled adjunctions")
		parts = append(parts, `"\dashv"{anchor=center, rotate=-90}`)
		label = ""
	case quiver.StyleCorner, quiver.StyleCornerInverse:
		x.dropLabel(label, "labelled corners")
		corner := `\lrcorner`
		if o.Style.Name == quiver.StyleCornerInverse {
			corner = `\ulcorner`
		}
		parts = append(parts, `"`+corner+`"{anchor=center, pos=0.125}`)
		label = ""
	}
	if label != "" {
		parts = append(parts, x.label(c))
	}
	if _, named := x.names[h]; named {
		parts = append(parts, `""{name=`+strconv.Itoa(x.names[h])+`, anchor=center, inner sep=0}`)
	}

	if o.Style.Name == quiver.StyleArrow {
		parts = append(parts, x.style(c)...)
	} else {
		parts = append(parts, "draw=none")
	}
	if o.Offset > 0 {
		parts = append(parts, fmt.Sprintf("shift right=%d", o.Offset))
	} else if o.Offset < 0 {
		parts = append(parts, fmt.Sprintf("shift left=%d", -o.Offset))
	}
	if o.Curve != 0 {
		x.dependencies[quiverPackage] = true
		parts = append(parts, "curve={height="+number(-float64(o.Curve)*geometry.DefaultCurveStep)+"pt}")
	}
	if o.Shorten.Source > 0 || o.Shorten.Target > 0 {
		length := x.opts.Metric.ArcLength(x.q.Centre(c.Source), x.q.Centre(c.Target), o.Curve)
		if o.Shorten.Source > 0 {
			parts = append(parts, "shorten <="+number(o.Shorten.Source*length/100)+"pt")
		}
		if o.Shorten.Target > 0 {
			parts = append(parts, "shorten >="+number(o.Shorten.Target*length/100)+"pt")
		}
	}
	if !o.Colour.IsBlack() {
		parts = append(parts, "color="+o.Colour.TikZ())
	}
	if c.Source == c.Target {
		x.incompatible["loops"] = true
	}
	parts = append(parts,
		"from="+x.ref(c.Source, o.EdgeAlignment.Source),
		"to="+x.ref(c.Target, o.EdgeAlignment.Target))
	return `\arrow[` + strings.Join(parts, ", ") + "]"
}

func (x *exporter) dropLabel(label, feature string) {
	if label != "" {
		x.incompatible[feature] = true
	}
}

func (x *exporter) label(c *quiver.Cell) string {
	o := c.Options
	text := c.Label
	if strings.ContainsAny(text, `",]=`) || strings.TrimSpace(text) != text {
		text = "{" + text + "}"
	}
	out := `"` + text + `"`

	var opts []string
	switch o.LabelAlignment {
	case quiver.AlignRight:
		out += "'"
	case quiver.AlignCentre:
		opts = append(opts, "description")
	case quiver.AlignOver:
		opts = append(opts, "marking", "allow upside down")
	}
	if o.LabelPosition != 50 {
		opts = append(opts, "pos="+number(o.LabelPosition/100))
	}
	if !c.LabelColour.IsBlack() {
		opts = append(opts, "text="+rgbLiteral(c.LabelColour))
	}
	if len(opts) > 0 {
		out += "{" + strings.Join(opts, ", ") + "}"
	}
	return out
}

// style lists the options drawing the arrow's body, tail and head.
func (x *exporter) style(c *quiver.Cell) []string {
	o := c.Options
	var out []string
	switch {
	case o.Level == 1 && c.Level > 1:
		out = append(out, "rightarrow")
	case o.Level == 2:
		out = append(out, "Rightarrow")
	case o.Level == 3:
		x.dependencies[quiverPackage] = true
		out = append(out, "Rrightarrow")
	case o.Level >= 4:
		x.dependencies[quiverPackage] = true
		if o.Level > 4 {
			x.incompatible["arrows of level greater than 4"] = true
		}
		out = append(out, "RRightarrow")
	}

	switch t := o.Style.Tail; t.Name {
	case quiver.TailMapsTo:
		out = append(out, "maps to")
	case quiver.TailMono:
		out = append(out, "tail")
	case quiver.TailHook:
		out = append(out, sided("hook", t.Side))
	case quiver.TailArrowhead:
		out = append(out, "tail reversed")
	}

	switch o.Style.Body.Name {
	case quiver.BodyDashed:
		out = append(out, "dashed")
	case quiver.BodyDotted:
		out = append(out, "dotted")
	case quiver.BodySquiggly:
		x.dependencies[quiverPackage] = true
		out = append(out, "squiggly")
	case quiver.BodyBarred, quiver.BodyDoubleBarred:
		x.incompatible["barred arrows"] = true
	case quiver.BodyBulletSolid, quiver.BodyBulletHollow:
		x.incompatible["bullet arrows"] = true
	case quiver.BodyNone:
		out = append(out, "draw=none")
	}

	switch hd := o.Style.Head; hd.Name {
	case quiver.HeadNone:
		out = append(out, "no head")
	case quiver.HeadEpi:
		out = append(out, "two heads")
	case quiver.HeadHarpoon:
		out = append(out, sided("harpoon", hd.Side))
	}
	return out
}

// phantom is the invisible copy of a named edge that edges attached by
// label connect to.
func (x *exporter) phantom(h quiver.Handle) string {
	c := x.q.Cell(h)
	o := c.Options
	return fmt.Sprintf(`\arrow[""{name=%dp, anchor=center, inner sep=0}, phantom, from=%s, to=%s, start anchor=center, end anchor=center]`,
		x.names[h], x.ref(c.Source, o.EdgeAlignment.Source), x.ref(c.Target, o.EdgeAlignment.Target))
}

func sided(name, side string) string {
	if side == quiver.SideBottom {
		return name + "'"
	}
	return name
}

func rgbLiteral(c colour.Colour) string {
	r, g, b := c.RGB()
	return fmt.Sprintf("{rgb,255:red,%d;green,%d;blue,%d}", r, g, b)
}

// number formats v with at most two decimal places.
func number(v float64) string {
	v = math.Round(v*100) / 100
	if v == 0 {
		v = 0 // normalise -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
