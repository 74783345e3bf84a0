package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the level and grid position in node labels.
	// When false, only the cell label is shown.
	Detailed bool
}

// levelColours fills edge nodes by level; levels past the end reuse the
// last colour.
var levelColours = []string{"white", "#e8f0fe", "#fef3e0", "#e6f4ea", "#fce8e6"}

// ToDOT converts a quiver to Graphviz DOT format for node-link visualization.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Every live cell becomes a node ranked by its level: vertices on the first
// rank, 1-cells on the second and so on. An edge cell is joined to its
// source by a plain line and to its target by an arrow.
func ToDOT(q *quiver.Quiver, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")

	for level := 0; level <= q.MaxLevel(); level++ {
		cells := q.CellsAtLevel(level)
		if len(cells) == 0 {
			continue
		}
		fmt.Fprintf(&buf, "\n  subgraph level%d {\n    rank=same;\n", level)
		for _, h := range cells {
			c := q.Cell(h)
			fmt.Fprintf(&buf, "    %s [%s];\n", nodeID(h), strings.Join(fmtAttrs(c, fmtLabel(c, opts.Detailed)), ", "))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, h := range q.Edges() {
		c := q.Cell(h)
		fmt.Fprintf(&buf, "  %s -> %s [arrowhead=none];\n", nodeID(c.Source), nodeID(h))
		fmt.Fprintf(&buf, "  %s -> %s;\n", nodeID(h), nodeID(c.Target))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(h quiver.Handle) string {
	return "c" + strconv.Itoa(int(h))
}

func fmtLabel(c *quiver.Cell, detailed bool) string {
	label := c.Label
	if label == "" && c.IsEdge() {
		label = "·"
	}
	if !detailed {
		return label
	}
	if c.IsVertex() {
		return fmt.Sprintf("%s\nlevel: 0\nposition: (%g, %g)", label, c.Position.X, c.Position.Y)
	}
	return fmt.Sprintf("%s\nlevel: %d\nstyle: %s", label, c.Level, c.Options.Style.Name)
}

func fmtAttrs(c *quiver.Cell, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if c.IsVertex() {
		return attrs
	}
	fill := levelColours[min(c.Level, len(levelColours)-1)]
	attrs = append(attrs, "shape=ellipse", fmt.Sprintf("fillcolor=%q", fill), "fontsize=18")
	if c.Options.Style.Body.Name == quiver.BodyNone || c.Options.Style.Name != quiver.StyleArrow {
		attrs = append(attrs, "style=\"filled,dashed\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces graphviz's point-sized svg element with one
// whose size matches its viewBox, so that the image scales cleanly.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
