package nodelink

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

func square() *quiver.Quiver {
	q := quiver.New()
	a := q.AddVertex("A", geometry.Pt(0, 0))
	b := q.AddVertex("B", geometry.Pt(1, 0))
	f := q.AddEdge("f", a, b)
	g := q.AddEdge("g", a, b)
	alpha := q.AddEdge(`\alpha`, f, g)
	q.Cell(alpha).Options.Style.Body = quiver.Component{Name: quiver.BodyNone}
	return q
}

func TestToDOTRanksByLevel(t *testing.T) {
	dot := ToDOT(square(), Options{})

	assert.True(t, strings.HasPrefix(dot, "digraph G {\n"))
	assert.Contains(t, dot, "subgraph level0 {\n    rank=same;\n    c0 [label=\"A\"];\n    c1 [label=\"B\"];\n  }")
	assert.Contains(t, dot, "subgraph level1 {")
	assert.Contains(t, dot, "subgraph level2 {")
	assert.NotContains(t, dot, "subgraph level3")
	assert.Contains(t, dot, `c4 [label="\\alpha", shape=ellipse`)
}

func TestToDOTEdges(t *testing.T) {
	dot := ToDOT(square(), Options{})

	assert.Contains(t, dot, "c0 -> c2 [arrowhead=none];\n  c2 -> c1;")
	assert.Contains(t, dot, "c2 -> c4 [arrowhead=none];\n  c4 -> c3;")
	assert.Contains(t, dot, `style="filled,dashed"`, "undrawn arrows are dashed")
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(square(), Options{Detailed: true})

	assert.Contains(t, dot, `label="A\nlevel: 0\nposition: (0, 0)"`)
	assert.Contains(t, dot, `label="f\nlevel: 1\nstyle: arrow"`)
}

func TestToDOTUnlabelledEdge(t *testing.T) {
	q := quiver.New()
	a := q.AddVertex("A", geometry.Pt(0, 0))
	q.AddEdge("", a, a)

	assert.Contains(t, ToDOT(q, Options{}), `c1 [label="·"`)
}

func TestToDOTSkipsTombstones(t *testing.T) {
	q := square()
	q.Remove(0, 1)

	dot := ToDOT(q, Options{})
	assert.NotContains(t, dot, "c0 ")
	assert.NotContains(t, dot, "subgraph level1")
	assert.Contains(t, dot, `c1 [label="B"]`)
}

func TestNormalizeViewBox(t *testing.T) {
	svg := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(svg))
	assert.Contains(t, out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50">`)
	assert.Contains(t, out, "<g/>")

	plain := []byte(`<svg><g/></svg>`)
	assert.Equal(t, plain, normalizeViewBox(plain))
}
