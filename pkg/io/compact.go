package io

import (
	"encoding/json"
	"math"

	"github.com/matzehuels/quiverkit/pkg/colour"
	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// Version is the compact format version written by [Encode]. It is the
// only version [Decode] accepts.
const Version = 0

// Encode returns the compact form of the live cells of q:
//
//	[version, vertex_count, ...vertices, ...edges]
//
// Vertices come first in allocation order, translated so that the
// bounding rectangle starts at (0, 0). Edges follow in ascending level
// order, so every edge refers only to cells before it. Trailing fields
// holding their default value are dropped.
//
// The result marshals directly with encoding/json.
func Encode(q *quiver.Quiver) []any {
	out := []any{Version, 0}
	lo, _, ok := q.BoundingRect()
	if !ok {
		return out
	}

	index := make(map[quiver.Handle]int)
	for _, h := range q.Vertices() {
		c := q.Cell(h)
		p := c.Position.Sub(lo)
		index[h] = len(index)
		out = append(out, truncate(
			[]any{int(math.Round(p.X)), int(math.Round(p.Y)), c.Label, c.LabelColour.HSLA()},
			[]bool{false, false, c.Label == "", c.LabelColour.IsBlack()},
		))
	}
	out[1] = len(index)

	for _, h := range q.Edges() {
		c := q.Cell(h)
		delta := diff(optionsTree(c.Options), optionsTree(quiver.DefaultOptions(c.Level)))
		index[h] = len(index)
		out = append(out, truncate(
			[]any{index[c.Source], index[c.Target], c.Label, int(c.Options.LabelAlignment), delta, c.LabelColour.HSLA()},
			[]bool{false, false, c.Label == "", c.Options.LabelAlignment == quiver.AlignLeft, len(delta) == 0, c.LabelColour.IsBlack()},
		))
	}
	return out
}

// truncate drops trailing fields flagged as defaults. Omission is
// positional: a default followed by a non-default field is kept.
func truncate(fields []any, defaults []bool) []any {
	n := len(fields)
	for n > 0 && defaults[n-1] {
		n--
	}
	return fields[:n]
}

// Marshal encodes q with [Encode] and returns its JSON text.
func Marshal(q *quiver.Quiver) ([]byte, error) {
	return json.Marshal(Encode(q))
}

// Decode parses the compact form produced by [Encode] into a new quiver.
//
// The version and vertex count are checked before any cell is built, and
// failures there return a nil quiver. After that, every cell is validated
// independently: a malformed cell is skipped, along with any edge that
// refers to it, and decoding continues. The first cell failure is returned
// as an [errors.CellError] together with the quiver of the cells that
// did decode.
func Decode(data []byte) (*quiver.Quiver, error) {
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed diagram")
	}
	return DecodeValue(raw)
}

// DecodeValue is [Decode] for an already unmarshalled array.
func DecodeValue(raw []any) (*quiver.Quiver, error) {
	if len(raw) < 2 {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "expected [version, vertex_count, ...cells], got %d entries", len(raw))
	}
	version, ok := raw[0].(float64)
	if !ok || errors.ValidateNatural(version) != nil {
		return nil, errors.New(errors.ErrCodeInvalidVersion, "version must be a natural number, got %v", raw[0])
	}
	if version != Version {
		return nil, errors.New(errors.ErrCodeInvalidVersion, "unsupported version %v", version)
	}
	cells := raw[2:]
	count, ok := raw[1].(float64)
	if !ok || errors.ValidateNatural(count) != nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "vertex count must be a natural number, got %v", raw[1])
	}
	if count > float64(len(cells)) {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "vertex count %v exceeds the %d cells present", count, len(cells))
	}
	vertices := int(count)

	d := &decoder{q: quiver.New(), handles: make([]quiver.Handle, 0, len(cells))}
	var first error
	for i, cell := range cells {
		var h quiver.Handle
		var err error
		if i < vertices {
			h, err = d.vertex(cell)
		} else {
			h, err = d.edge(cell)
		}
		if err != nil {
			h = quiver.NoHandle
			if first == nil {
				first = &errors.CellError{Index: i, Err: err}
			}
		}
		d.handles = append(d.handles, h)
	}
	return d.q, first
}

type decoder struct {
	q       *quiver.Quiver
	handles []quiver.Handle // per cell index, NoHandle if skipped
}

func (d *decoder) vertex(cell any) (quiver.Handle, error) {
	fields, err := entry(cell, 2, 4)
	if err != nil {
		return quiver.NoHandle, err
	}
	var pos [2]float64
	for i := range pos {
		v, ok := fields[i].(float64)
		if !ok || errors.ValidateInteger(v) != nil {
			return quiver.NoHandle, errors.New(errors.ErrCodeInvalidInput, "vertex coordinate must be an integer, got %v", fields[i])
		}
		pos[i] = v
	}
	label, err := optionalLabel(fields, 2)
	if err != nil {
		return quiver.NoHandle, err
	}
	lc, err := optionalColour(fields, 3)
	if err != nil {
		return quiver.NoHandle, err
	}

	h := d.q.NewVertex(label, geometry.Pt(pos[0], pos[1]))
	d.q.Cell(h).LabelColour = lc
	d.q.Add(h)
	return h, nil
}

func (d *decoder) edge(cell any) (quiver.Handle, error) {
	fields, err := entry(cell, 2, 6)
	if err != nil {
		return quiver.NoHandle, err
	}
	var ends [2]quiver.Handle
	for i := range ends {
		if ends[i], err = d.reference(fields[i]); err != nil {
			return quiver.NoHandle, err
		}
	}
	label, err := optionalLabel(fields, 2)
	if err != nil {
		return quiver.NoHandle, err
	}
	align := quiver.AlignLeft
	if len(fields) > 3 {
		v, ok := fields[3].(float64)
		if !ok || errors.ValidateNatural(v) != nil || !quiver.Alignment(v).Valid() {
			return quiver.NoHandle, errors.New(errors.ErrCodeInvalidInput, "label alignment must be 0, 1, 2 or 3, got %v", fields[3])
		}
		align = quiver.Alignment(v)
	}
	level := max(d.q.Cell(ends[0]).Level, d.q.Cell(ends[1]).Level) + 1
	opts := quiver.DefaultOptions(level)
	if len(fields) > 4 {
		delta, ok := fields[4].(map[string]any)
		if !ok {
			return quiver.NoHandle, errors.New(errors.ErrCodeInvalidInput, "edge options must be an object, got %v", fields[4])
		}
		if err := applyDelta(&opts, delta); err != nil {
			return quiver.NoHandle, err
		}
	}
	opts.LabelAlignment = align
	lc, err := optionalColour(fields, 5)
	if err != nil {
		return quiver.NoHandle, err
	}

	h := d.q.NewEdge(label, ends[0], ends[1], opts)
	d.q.Cell(h).LabelColour = lc
	d.q.Add(h)
	d.q.Connect(ends[0], ends[1], h)
	return h, nil
}

// reference resolves an endpoint index against the cells decoded so far.
func (d *decoder) reference(v any) (quiver.Handle, error) {
	i, ok := v.(float64)
	if !ok || errors.ValidateNatural(i) != nil {
		return quiver.NoHandle, errors.New(errors.ErrCodeInvalidInput, "endpoint must be a cell index, got %v", v)
	}
	if int(i) >= len(d.handles) {
		return quiver.NoHandle, errors.New(errors.ErrCodeInvalidInput, "endpoint %d refers to a later cell", int(i))
	}
	h := d.handles[int(i)]
	if h == quiver.NoHandle {
		return quiver.NoHandle, errors.New(errors.ErrCodeInvalidInput, "endpoint %d refers to a malformed cell", int(i))
	}
	return h, nil
}

func entry(cell any, minLen, maxLen int) ([]any, error) {
	fields, ok := cell.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cell must be an array, got %v", cell)
	}
	if len(fields) < minLen || len(fields) > maxLen {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cell must have between %d and %d fields, got %d", minLen, maxLen, len(fields))
	}
	return fields, nil
}

func optionalLabel(fields []any, i int) (string, error) {
	if len(fields) <= i {
		return "", nil
	}
	s, ok := fields[i].(string)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "label must be a string, got %v", fields[i])
	}
	return s, nil
}

func optionalColour(fields []any, i int) (colour.Colour, error) {
	if len(fields) <= i {
		return colour.Black(), nil
	}
	return decodeColour(fields[i])
}

func decodeColour(v any) (colour.Colour, error) {
	parts, ok := v.([]any)
	if !ok {
		return colour.Colour{}, errors.New(errors.ErrCodeInvalidInput, "colour must be an array, got %v", v)
	}
	hsla := make([]float64, len(parts))
	for i, p := range parts {
		f, ok := p.(float64)
		if !ok {
			return colour.Colour{}, errors.New(errors.ErrCodeInvalidInput, "colour component must be a number, got %v", p)
		}
		hsla[i] = f
	}
	if err := errors.ValidateColour(hsla); err != nil {
		return colour.Colour{}, err
	}
	return colour.FromHSLA([4]float64(hsla)), nil
}
