package diagnostic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	r := FromTo(4, 9)
	assert.Equal(t, Range{Start: 4, Length: 5}, r)
	assert.Equal(t, 9, r.End())
	assert.Equal(t, Range{Start: 2, Length: 7}, r.Merge(FromTo(2, 3)))
	assert.Equal(t, Range{Start: 4, Length: 8}, r.Merge(At(12)))
	assert.Equal(t, FromTo(1, 3), FromTo(3, 1))
}

func TestRangeSlice(t *testing.T) {
	src := "hello world"
	assert.Equal(t, "world", FromTo(6, 11).Slice(src))
	assert.Equal(t, "world", FromTo(6, 40).Slice(src))
	assert.Equal(t, "", At(3).Slice(src))
}

func TestLineCol(t *testing.T) {
	src := "ab\ncd\nef"
	line, col := At(0).LineCol(src)
	assert.Equal(t, [2]int{1, 1}, [2]int{line, col})
	line, col = At(4).LineCol(src)
	assert.Equal(t, [2]int{2, 2}, [2]int{line, col})
	line, col = At(6).LineCol(src)
	assert.Equal(t, [2]int{3, 1}, [2]int{line, col})
}

func TestMessageString(t *testing.T) {
	m := Message{Text("unknown arrow option "), Code("x")}
	assert.Equal(t, "unknown arrow option `x`", m.String())
}

func TestDiagnosticWiden(t *testing.T) {
	d := Error(FromTo(5, 6), Text("bad"))
	w := d.Widen(FromTo(5, 10))
	assert.Equal(t, FromTo(5, 10), w.Range)
	assert.Equal(t, FromTo(5, 6), d.Range, "the original is not modified")
}

func TestList(t *testing.T) {
	var l List
	l.Add(Warning(At(9), Text("w")))
	fatal := Error(At(1), Text("e"))
	fatal.Fatal = true
	l.Add(fatal)

	assert.Len(t, l.Warnings(), 1)
	assert.Len(t, l.Errors(), 1)
	assert.True(t, l.HasErrors())
	assert.True(t, l.HasFatal())
	assert.Equal(t, 1, l.Sorted()[0].Range.Start)
	assert.Equal(t, 9, l[0].Range.Start)
}

func TestDiagnosticJSON(t *testing.T) {
	d := Warning(FromTo(2, 4), Text("unknown option "), Code("x"))
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"severity": "warning",
		"message": [{"text": "unknown option "}, {"text": "x", "code": true}],
		"range": {"start": 2, "length": 2}
	}`, string(data))

	var back Diagnostic
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
}
