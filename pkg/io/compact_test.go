package io

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/quiverkit/pkg/colour"
	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

func marshal(t *testing.T, q *quiver.Quiver) string {
	t.Helper()
	data, err := Marshal(q)
	require.NoError(t, err)
	return string(data)
}

func TestEncodeSquare(t *testing.T) {
	q := quiver.New()
	a := q.AddVertex("A", geometry.Pt(0, 0))
	b := q.AddVertex("B", geometry.Pt(1, 0))
	f := q.AddEdge("f", a, b)
	g := q.AddEdge("g", a, b)
	q.AddEdge(`\alpha`, f, g)

	assert.Equal(t, `[0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"],[0,1,"g"],[2,3,"\\alpha"]]`, marshal(t, q))
}

func TestEncodeEmpty(t *testing.T) {
	assert.Equal(t, `[0,0]`, marshal(t, quiver.New()))
}

func TestEncodeNormalisesPositions(t *testing.T) {
	q := quiver.New()
	q.AddVertex("A", geometry.Pt(2, 3))
	q.AddVertex("B", geometry.Pt(4, 5))
	q.AddVertex("C", geometry.Pt(3, 7))

	assert.Equal(t, `[0,3,[0,0,"A"],[2,2,"B"],[1,4,"C"]]`, marshal(t, q))
}

func TestEncodeTruncatesPositionally(t *testing.T) {
	q := quiver.New()
	a := q.AddVertex("", geometry.Pt(0, 0))
	q.Cell(a).LabelColour = colour.New(0, 100, 50)
	b := q.AddVertex("", geometry.Pt(1, 0))
	e := q.AddEdge("", a, b)
	q.Cell(e).Options.LabelAlignment = quiver.AlignCentre

	assert.Equal(t, `[0,2,[0,0,"",[0,100,50,1]],[1,0],[0,1,"",1]]`, marshal(t, q))
}

func TestEncodeOptionsDelta(t *testing.T) {
	q := quiver.New()
	a := q.AddVertex("A", geometry.Pt(0, 0))
	b := q.AddVertex("B", geometry.Pt(1, 0))
	e := q.AddEdge("f", a, b)
	opts := &q.Cell(e).Options
	opts.Curve = 2
	opts.Colour = colour.New(0, 100, 50)
	opts.Style.Head = quiver.Component{Name: quiver.HeadEpi}
	opts.Shorten.Target = 20

	assert.Equal(t,
		`[0,2,[0,0,"A"],[1,0,"B"],[0,1,"f",0,{"colour":[0,100,50,1],"curve":2,"shorten":{"target":20},"style":{"head":{"name":"epi"}}}]]`,
		marshal(t, q))
}

func TestEncodeSkipsTombstones(t *testing.T) {
	q := quiver.New()
	a := q.AddVertex("A", geometry.Pt(0, 0))
	b := q.AddVertex("B", geometry.Pt(1, 1))
	q.AddEdge("f", a, b)
	q.Remove(a, 1)

	assert.Equal(t, `[0,1,[0,0,"B"]]`, marshal(t, q))
}

func rich() *quiver.Quiver {
	q := quiver.New()
	a := q.AddVertex("A", geometry.Pt(-1, 2))
	b := q.AddVertex(`B \times C`, geometry.Pt(1, 2))
	c := q.AddVertex("", geometry.Pt(0, 4))
	q.Cell(c).LabelColour = colour.New(240, 60, 40)

	f := q.AddEdge("f", a, b)
	q.Cell(f).Options.Curve = -2
	q.Cell(f).Options.LabelAlignment = quiver.AlignOver
	q.Cell(f).Options.LabelPosition = 25

	g := q.AddEdge("g", a, b)
	q.Cell(g).Options.Curve = 2
	q.Cell(g).Options.Style.Tail = quiver.Component{Name: quiver.TailHook, Side: quiver.SideBottom}
	q.Cell(g).Options.Style.Body = quiver.Component{Name: quiver.BodySquiggly}
	q.Cell(g).LabelColour = colour.New(120, 100, 25)

	alpha := q.AddEdge(`\alpha`, f, g)
	q.Cell(alpha).Options.Shorten = quiver.Shorten{Source: 20, Target: 20}
	q.Cell(alpha).Options.EdgeAlignment.Source = false

	adj := q.AddEdge("", a, c)
	q.Cell(adj).Options.Style.Name = quiver.StyleAdjunction
	q.Cell(adj).Options.Offset = -1

	loop := q.AddEdge("h", c, c)
	q.Cell(loop).Options.Level = 3
	q.Cell(loop).Options.Colour = colour.Colour{H: 30, S: 50, L: 50, A: 0.5}

	q.AddEdge("", alpha, loop)
	return q
}

func TestRoundTrip(t *testing.T) {
	first := marshal(t, rich())

	q, err := Decode([]byte(first))
	require.NoError(t, err)
	require.NoError(t, q.Validate())
	assert.Equal(t, 9, q.Len())
	assert.Equal(t, 3, q.MaxLevel())
	assert.Equal(t, first, marshal(t, q))
}

func TestDecodeRestoresOptions(t *testing.T) {
	q, err := Decode([]byte(marshal(t, rich())))
	require.NoError(t, err)

	edges := q.Edges()
	require.Len(t, edges, 6)

	f := q.Cell(edges[0])
	assert.Equal(t, "f", f.Label)
	assert.Equal(t, -2, f.Options.Curve)
	assert.Equal(t, quiver.AlignOver, f.Options.LabelAlignment)
	assert.InDelta(t, 25, f.Options.LabelPosition, 1e-9)

	g := q.Cell(edges[1])
	assert.Equal(t, quiver.Component{Name: quiver.TailHook, Side: quiver.SideBottom}, g.Options.Style.Tail)
	assert.True(t, g.LabelColour.Eq(colour.New(120, 100, 25)))

	v := q.Cell(q.Vertices()[0])
	assert.Equal(t, geometry.Pt(0, 0), v.Position, "positions are normalised")
}

func TestDecodeVertexCountTooLarge(t *testing.T) {
	for _, input := range []string{
		`[0, 3, [0, 0], [1, 0]]`,
		`[0, 1e300]`,
		`[0, 1e300, [0, 0], [1, 0]]`,
		`[0, 9223372036854775808, [0, 0]]`,
	} {
		q, err := Decode([]byte(input))
		assert.Nil(t, q, input)
		assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat), input)
	}
}

func TestDecodeStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errors.Code
	}{
		{"malformed JSON", `[0, 1,`, errors.ErrCodeInvalidFormat},
		{"object", `{"version": 0}`, errors.ErrCodeInvalidFormat},
		{"too short", `[0]`, errors.ErrCodeInvalidFormat},
		{"future version", `[1, 0]`, errors.ErrCodeInvalidVersion},
		{"string version", `["0", 0]`, errors.ErrCodeInvalidVersion},
		{"negative count", `[0, -1]`, errors.ErrCodeInvalidFormat},
		{"fractional count", `[0, 0.5, [0, 0]]`, errors.ErrCodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Decode([]byte(tt.input))
			assert.Nil(t, q)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestDecodeSkipsMalformedCells(t *testing.T) {
	q, err := Decode([]byte(`[0, 3, [0, 0, "A"], [1.5, 0], [2, 0, "C"], [0, 1], [0, 2, "f"], [4, 0, 7]]`))
	require.NotNil(t, q)

	var ce *errors.CellError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 1, ce.Index, "the first failure is reported")

	// A, C and f survive; the edge to the malformed vertex and the
	// edge with a numeric label are skipped.
	assert.Equal(t, 3, q.Len())
	require.NoError(t, q.Validate())
	edges := q.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, "f", q.Cell(edges[0]).Label)
}

func TestDecodeCellValidation(t *testing.T) {
	tests := []struct {
		name string
		cell string
	}{
		{"alignment out of range", `[0, 1, "", 4]`},
		{"label not a string", `[0, 1, 3]`},
		{"forward reference", `[0, 3]`},
		{"self reference", `[0, 2]`},
		{"options not an object", `[0, 1, "", 0, []]`},
		{"label position", `[0, 1, "", 0, {"label_position": 120}]`},
		{"fractional curve", `[0, 1, "", 0, {"curve": 0.5}]`},
		{"shorten overlaps", `[0, 1, "", 0, {"shorten": {"source": 60, "target": 40}}]`},
		{"zero level", `[0, 1, "", 0, {"level": 0}]`},
		{"edge alignment", `[0, 1, "", 0, {"edge_alignment": {"source": 1}}]`},
		{"colour range", `[0, 1, "", 0, {"colour": [0, 0, 0, 2]}]`},
		{"style name", `[0, 1, "", 0, {"style": {"name": "zigzag"}}]`},
		{"head name", `[0, 1, "", 0, {"style": {"head": {"name": "hook"}}}]`},
		{"side", `[0, 1, "", 0, {"style": {"tail": {"name": "hook", "side": "left"}}}]`},
		{"label colour", `[0, 1, "", 0, {}, [0, 0, 0]]`},
		{"too many fields", `[0, 1, "", 0, {}, [0, 0, 0, 1], 1]`},
		{"not an array", `"edge"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Decode([]byte(`[0, 2, [0, 0], [1, 0], ` + tt.cell + `]`))
			require.NotNil(t, q)
			var ce *errors.CellError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, 2, ce.Index)
			assert.Empty(t, q.Edges())
			assert.Equal(t, 2, q.Len())
		})
	}
}

func TestDecodeLegacyFields(t *testing.T) {
	t.Run("length", func(t *testing.T) {
		q, err := Decode([]byte(`[0, 2, [0, 0], [1, 0], [0, 1, "", 0, {"length": 60}]]`))
		require.NoError(t, err)
		assert.Equal(t, quiver.Shorten{Source: 20, Target: 20}, q.Cell(q.Edges()[0]).Options.Shorten)
	})

	t.Run("zero length", func(t *testing.T) {
		q, err := Decode([]byte(`[0, 2, [0, 0], [1, 0], [0, 1, "", 0, {"length": 0}]]`))
		require.NoError(t, err)
		require.Len(t, q.Edges(), 1)
		assert.Equal(t, quiver.Shorten{}, q.Cell(q.Edges()[0]).Options.Shorten)
	})

	t.Run("shorten wins over length", func(t *testing.T) {
		q, err := Decode([]byte(`[0, 2, [0, 0], [1, 0], [0, 1, "", 0, {"length": 60, "shorten": {"source": 10}}]]`))
		require.NoError(t, err)
		assert.Equal(t, quiver.Shorten{Source: 10}, q.Cell(q.Edges()[0]).Options.Shorten)
	})

	t.Run("style level", func(t *testing.T) {
		q, err := Decode([]byte(`[0, 2, [0, 0], [1, 0], [0, 1, "", 0, {"level": 2, "style": {"level": 3}}]]`))
		require.NoError(t, err)
		assert.Equal(t, 3, q.Cell(q.Edges()[0]).Options.Level)
	})
}

func TestDecodeIgnoresUnknownOptions(t *testing.T) {
	q, err := Decode([]byte(`[0, 2, [0, 0], [1, 0], [0, 1, "", 0, {"wobble": true}]]`))
	require.NoError(t, err)
	assert.Equal(t, quiver.DefaultOptions(1), q.Cell(q.Edges()[0]).Options)
}
