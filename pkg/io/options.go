package io

import (
	"slices"

	"github.com/matzehuels/quiverkit/pkg/colour"
	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

var (
	styleNames = []string{quiver.StyleArrow, quiver.StyleAdjunction, quiver.StyleCorner, quiver.StyleCornerInverse}
	tailNames  = []string{quiver.TailNone, quiver.TailMapsTo, quiver.TailMono, quiver.TailHook, quiver.TailArrowhead}
	bodyNames  = []string{
		quiver.BodyCell, quiver.BodyDashed, quiver.BodyDotted, quiver.BodySquiggly, quiver.BodyBarred,
		quiver.BodyDoubleBarred, quiver.BodyBulletSolid, quiver.BodyBulletHollow, quiver.BodyNone,
	}
	headNames = []string{quiver.HeadArrowhead, quiver.HeadNone, quiver.HeadEpi, quiver.HeadHarpoon}
	sideNames = []string{quiver.SideTop, quiver.SideBottom}
)

// optionsTree lays out edge options the way they appear on the wire.
// Label alignment is a field of the edge entry and is not part of it.
func optionsTree(o quiver.EdgeOptions) map[string]any {
	return map[string]any{
		"label_position": o.LabelPosition,
		"offset":         o.Offset,
		"curve":          o.Curve,
		"shorten":        map[string]any{"source": o.Shorten.Source, "target": o.Shorten.Target},
		"level":          o.Level,
		"edge_alignment": map[string]any{"source": o.EdgeAlignment.Source, "target": o.EdgeAlignment.Target},
		"colour":         o.Colour.HSLA(),
		"style": map[string]any{
			"name": o.Style.Name,
			"tail": componentTree(o.Style.Tail),
			"body": componentTree(o.Style.Body),
			"head": componentTree(o.Style.Head),
		},
	}
}

func componentTree(c quiver.Component) map[string]any {
	t := map[string]any{"name": c.Name}
	if c.Side != "" {
		t["side"] = c.Side
	}
	return t
}

// diff returns the entries of value that differ from base, recursing into
// nested objects. Nested objects with no differences are omitted.
func diff(value, base map[string]any) map[string]any {
	d := make(map[string]any)
	for k, v := range value {
		b, ok := base[k]
		if vm, isMap := v.(map[string]any); isMap {
			if bm, isMap := b.(map[string]any); isMap {
				if sub := diff(vm, bm); len(sub) > 0 {
					d[k] = sub
				}
				continue
			}
		}
		if !ok || !same(v, b) {
			d[k] = v
		}
	}
	return d
}

func same(a, b any) bool {
	if ca, ok := a.([4]float64); ok {
		cb, ok := b.([4]float64)
		return ok && colour.FromHSLA(ca).Eq(colour.FromHSLA(cb))
	}
	return a == b
}

// applyDelta merges a decoded options object onto o, validating every field
// it recognises. Unrecognised keys are ignored.
func applyDelta(o *quiver.EdgeOptions, delta map[string]any) error {
	if v, ok := delta["label_position"]; ok {
		f, err := number(v, "label_position")
		if err != nil {
			return err
		}
		if err := errors.ValidatePercentage(f); err != nil {
			return err
		}
		o.LabelPosition = f
	}
	for _, p := range []struct {
		key   string
		field *int
	}{{"offset", &o.Offset}, {"curve", &o.Curve}} {
		v, ok := delta[p.key]
		if !ok {
			continue
		}
		f, err := number(v, p.key)
		if err != nil {
			return err
		}
		if err := errors.ValidateInteger(f); err != nil {
			return err
		}
		*p.field = int(f)
	}

	if v, ok := delta["shorten"]; ok {
		obj, err := object(v, "shorten")
		if err != nil {
			return err
		}
		if err := percentageField(obj, "source", &o.Shorten.Source); err != nil {
			return err
		}
		if err := percentageField(obj, "target", &o.Shorten.Target); err != nil {
			return err
		}
	} else if v, ok := delta["length"]; ok {
		f, err := number(v, "length")
		if err != nil {
			return err
		}
		if err := errors.ValidatePercentage(f); err != nil {
			return err
		}
		// A zero length cannot be drawn and reads as an unshortened arrow.
		if f > 0 {
			o.Shorten = quiver.Shorten{Source: (100 - f) / 2, Target: (100 - f) / 2}
		}
	}
	if !quiver.ValidShorten(o.Shorten) {
		return errors.New(errors.ErrCodeInvalidInput, "shortening %v + %v leaves no arrow", o.Shorten.Source, o.Shorten.Target)
	}

	if v, ok := delta["level"]; ok {
		if err := level(v, &o.Level); err != nil {
			return err
		}
	}

	if v, ok := delta["edge_alignment"]; ok {
		obj, err := object(v, "edge_alignment")
		if err != nil {
			return err
		}
		if err := boolField(obj, "source", &o.EdgeAlignment.Source); err != nil {
			return err
		}
		if err := boolField(obj, "target", &o.EdgeAlignment.Target); err != nil {
			return err
		}
	}

	if v, ok := delta["colour"]; ok {
		c, err := decodeColour(v)
		if err != nil {
			return err
		}
		o.Colour = c
	}

	if v, ok := delta["style"]; ok {
		obj, err := object(v, "style")
		if err != nil {
			return err
		}
		return applyStyle(o, obj)
	}
	return nil
}

func applyStyle(o *quiver.EdgeOptions, obj map[string]any) error {
	if v, ok := obj["name"]; ok {
		name, err := oneOf(v, "style.name", styleNames)
		if err != nil {
			return err
		}
		o.Style.Name = name
	}
	parts := []struct {
		key   string
		field *quiver.Component
		names []string
	}{
		{"tail", &o.Style.Tail, tailNames},
		{"body", &o.Style.Body, bodyNames},
		{"head", &o.Style.Head, headNames},
	}
	for _, p := range parts {
		v, ok := obj[p.key]
		if !ok {
			continue
		}
		c, err := object(v, "style."+p.key)
		if err != nil {
			return err
		}
		if name, ok := c["name"]; ok {
			if p.field.Name, err = oneOf(name, "style."+p.key+".name", p.names); err != nil {
				return err
			}
		}
		if side, ok := c["side"]; ok {
			if p.field.Side, err = oneOf(side, "style."+p.key+".side", sideNames); err != nil {
				return err
			}
		}
	}
	// Older diagrams stored the arrow multiplicity on the style.
	if v, ok := obj["level"]; ok {
		return level(v, &o.Level)
	}
	return nil
}

func level(v any, field *int) error {
	f, err := number(v, "level")
	if err != nil {
		return err
	}
	if err := errors.ValidateNatural(f); err != nil {
		return err
	}
	if f < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "level must be at least 1, got %v", f)
	}
	*field = int(f)
	return nil
}

func percentageField(obj map[string]any, key string, field *float64) error {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	f, err := number(v, key)
	if err != nil {
		return err
	}
	if err := errors.ValidatePercentage(f); err != nil {
		return err
	}
	*field = f
	return nil
}

func boolField(obj map[string]any, key string, field *bool) error {
	v, ok := obj[key]
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "edge_alignment.%s must be a boolean, got %v", key, v)
	}
	*field = b
	return nil
}

func number(v any, key string) (float64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, errors.New(errors.ErrCodeInvalidInput, "%s must be a number, got %v", key, v)
	}
	return f, nil
}

func object(v any, key string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s must be an object, got %v", key, v)
	}
	return m, nil
}

func oneOf(v any, key string, names []string) (string, error) {
	s, ok := v.(string)
	if !ok || !slices.Contains(names, s) {
		return "", errors.New(errors.ErrCodeInvalidInput, "%s must be one of %q, got %v", key, names, v)
	}
	return s, nil
}
