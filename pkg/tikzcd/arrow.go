package tikzcd

import (
	"math"
	"strings"

	"github.com/matzehuels/quiverkit/pkg/colour"
	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// endpoint refers to a cell by grid position or, when name is set, by the
// name of an arrow's label.
type endpoint struct {
	pos  geometry.Point
	name string
	rng  diagnostic.Range
}

// edgeRecord is an arrow as written. Records are turned into edges only
// once the whole diagram has been read.
type edgeRecord struct {
	at             geometry.Point
	source, target endpoint
	loop           bool

	label       string
	labelSet    bool
	labelColour colour.Colour
	alignSet    bool
	swap        bool
	phantom     bool
	drawNone    bool

	opts quiver.EdgeOptions // Level is 0 unless given explicitly

	shortenSource, shortenTarget float64 // in pt
	shortenRange                 diagnostic.Range

	rng diagnostic.Range
}

type edgeLabel struct {
	text      string
	name      string
	nameRange diagnostic.Range

	alignment   quiver.Alignment
	alignSet    bool
	position    float64
	positionSet bool
	colour      colour.Colour
	colourSet   bool
}

var arrowFlags = map[string]func(e *edgeRecord){
	"'":             func(e *edgeRecord) { e.swap = true },
	"swap":          func(e *edgeRecord) { e.swap = true },
	"rightarrow":    func(e *edgeRecord) { e.opts.Level = 1 },
	"Rightarrow":    func(e *edgeRecord) { e.opts.Level = 2 },
	"Rrightarrow":   func(e *edgeRecord) { e.opts.Level = 3 },
	"RRightarrow":   func(e *edgeRecord) { e.opts.Level = 4 },
	"equals":        equals,
	"dashed":        func(e *edgeRecord) { e.opts.Style.Body = quiver.Component{Name: quiver.BodyDashed} },
	"dotted":        func(e *edgeRecord) { e.opts.Style.Body = quiver.Component{Name: quiver.BodyDotted} },
	"squiggly":      func(e *edgeRecord) { e.opts.Style.Body = quiver.Component{Name: quiver.BodySquiggly} },
	"hook":          func(e *edgeRecord) { e.opts.Style.Tail = quiver.Component{Name: quiver.TailHook, Side: quiver.SideTop} },
	"hook'":         func(e *edgeRecord) { e.opts.Style.Tail = quiver.Component{Name: quiver.TailHook, Side: quiver.SideBottom} },
	"tail":          func(e *edgeRecord) { e.opts.Style.Tail = quiver.Component{Name: quiver.TailMono} },
	"maps to":       func(e *edgeRecord) { e.opts.Style.Tail = quiver.Component{Name: quiver.TailMapsTo} },
	"tail reversed": func(e *edgeRecord) { e.opts.Style.Tail = quiver.Component{Name: quiver.TailArrowhead} },
	"two heads":     func(e *edgeRecord) { e.opts.Style.Head = quiver.Component{Name: quiver.HeadEpi} },
	"no head":       func(e *edgeRecord) { e.opts.Style.Head = quiver.Component{Name: quiver.HeadNone} },
	"harpoon":       func(e *edgeRecord) { e.opts.Style.Head = quiver.Component{Name: quiver.HeadHarpoon, Side: quiver.SideTop} },
	"harpoon'":      func(e *edgeRecord) { e.opts.Style.Head = quiver.Component{Name: quiver.HeadHarpoon, Side: quiver.SideBottom} },
	"phantom":       func(e *edgeRecord) { e.phantom = true },
	"loop":          func(e *edgeRecord) { e.loop = true },
	"crossing over": func(e *edgeRecord) {},
}

func equals(e *edgeRecord) {
	e.opts.Level = 2
	e.opts.Style.Head = quiver.Component{Name: quiver.HeadNone}
}

var valuedArrowOptions = map[string]bool{
	"from":      true,
	"to":        true,
	"curve":     true,
	"shorten <": true,
	"shorten >": true,
	"shorten":   true,
	"color":     true,
	"colour":    true,
	"draw":      true,
	"text":      true,
	"opacity":   true,
}

// Options with no bearing on the graph. Their values are skipped.
var ignoredArrowOptions = map[string]bool{
	"start anchor": true,
	"end anchor":   true,
	"in":           true,
	"out":          true,
	"looseness":    true,
}

var ignoredLabelOptions = map[string]bool{
	"anchor":    true,
	"inner sep": true,
	"outer sep": true,
	"rotate":    true,
	"sloped":    true,
	"font":      true,
	"scale":     true,
}

var labelPositions = map[string]float64{
	"at start":        0,
	"very near start": 12.5,
	"near start":      25,
	"midway":          50,
	"near end":        75,
	"very near end":   87.5,
	"at end":          100,
}

// direction converts a tikz-cd direction such as "rrd" to a grid offset.
func direction(key string) (geometry.Point, bool) {
	var d geometry.Point
	for _, c := range key {
		switch c {
		case 'r':
			d.X++
		case 'l':
			d.X--
		case 'd':
			d.Y++
		case 'u':
			d.Y--
		default:
			return geometry.Point{}, false
		}
	}
	return d, key != ""
}

// arrow parses \arrow[...] and records the edge at the current cell.
func (p *parser) arrow() {
	start := p.pos()
	p.code = p.code[commandLen(p.code):]
	at := geometry.Pt(float64(p.col), float64(p.row))
	e := &edgeRecord{
		at:          at,
		source:      endpoint{pos: at},
		target:      endpoint{pos: at},
		labelColour: colour.Black(),
		opts:        quiver.DefaultOptions(1),
	}
	e.opts.Level = 0
	index := len(p.edges)
	p.edges = append(p.edges, e)

	p.skipSpace()
	if p.peek("[") {
		f := p.options('[', ']', func() *failure { return p.arrowOption(e, index) })
		if f != nil {
			p.diags.Add(f.diag)
		}
	}
	e.rng = p.rangeFrom(start)
}

func (p *parser) arrowOption(e *edgeRecord, index int) *failure {
	if p.peek(`"`) {
		return p.quotedLabel(e, index)
	}
	key, r := p.key(']')
	p.skipSpace()
	hasValue := p.eat("=")
	p.skipSpace()
	if key == "" {
		return errorAt(p.rangeHere(), plain("expected an arrow option"))
	}
	if d, ok := direction(key); ok && !hasValue {
		e.target = endpoint{pos: e.at.Add(d), rng: r}
		return nil
	}
	if set, ok := arrowFlags[key]; ok {
		if hasValue {
			return warningAt(r, plain("option "), lit(key), plain(" takes no value"))
		}
		set(e)
		return nil
	}
	if ignoredArrowOptions[key] {
		if hasValue {
			p.value(']')
		}
		return nil
	}
	if valuedArrowOptions[key] && !hasValue {
		return errorAt(r, plain("expected a value for "), lit(key))
	}

	switch key {
	case "from", "to":
		ep, f := p.endpointRef(']')
		if f != nil {
			return f
		}
		if key == "from" {
			e.source = ep
		} else {
			e.target = ep
		}
	case "shift left", "shift right":
		n := 1
		if hasValue {
			var f *failure
			if n, f = p.integer(); f != nil {
				return f
			}
		}
		if key == "shift left" {
			n = -n
		}
		e.opts.Offset = n
	case "bend left", "bend right":
		angle := 30.0
		if hasValue {
			var f *failure
			if angle, f = p.float(); f != nil {
				return f
			}
		}
		curve := int(math.Round(angle / 15))
		if key == "bend left" {
			curve = -curve
		}
		e.opts.Curve = curve
	case "curve":
		return p.group(func() *failure {
			p.skipSpace()
			if !p.eat("height") {
				return errorAt(p.rangeHere(), plain("expected "), lit("height"))
			}
			p.skipSpace()
			if !p.eat("=") {
				return errorAt(p.rangeHere(), plain("expected "), lit("="))
			}
			p.skipSpace()
			h, f := p.length()
			if f != nil {
				return f
			}
			e.opts.Curve = int(math.Round(-h / geometry.DefaultCurveStep))
			return nil
		})
	case "shorten <", "shorten >", "shorten":
		start := p.pos()
		v, f := p.length()
		if f != nil {
			return f
		}
		if v < 0 {
			return warningAt(p.rangeFrom(start), plain("shortening must not be negative"))
		}
		if key != "shorten >" {
			e.shortenSource = v
		}
		if key != "shorten <" {
			e.shortenTarget = v
		}
		e.shortenRange = r.Merge(p.rangeFrom(start))
	case "draw", "color", "colour":
		if key == "draw" && p.eat("none") {
			e.drawNone = true
			return nil
		}
		c, f := p.colour()
		if f != nil {
			return f
		}
		e.opts.Colour = c
	case "text":
		c, f := p.colour()
		if f != nil {
			return f
		}
		e.labelColour = c
	case "opacity":
		start := p.pos()
		v, f := p.float()
		if f != nil {
			return f
		}
		if v < 0 || v > 1 {
			return warningAt(p.rangeFrom(start), plain("opacity must be between 0 and 1"))
		}
		e.opts.Colour.A = v
	default:
		return warningAt(r, plain("unknown arrow option "), lit(key))
	}
	return nil
}

// endpointRef parses a from= or to= value: a 1-based row-column grid
// reference such as 2-3, or a label name.
func (p *parser) endpointRef(closer byte) (endpoint, *failure) {
	start := p.pos()
	if n := digits(p.code); n > 0 && n < len(p.code) && p.code[n] == '-' {
		row, f := p.natural()
		if f != nil {
			return endpoint{}, f
		}
		p.eat("-")
		col, f := p.natural()
		if f != nil {
			return endpoint{}, f
		}
		if row < 1 || col < 1 {
			return endpoint{}, errorAt(p.rangeFrom(start), plain("grid references start at "), lit("1-1"))
		}
		return endpoint{pos: geometry.Pt(float64(col-1), float64(row-1)), rng: p.rangeFrom(start)}, nil
	}
	name, r := p.value(closer)
	if name == "" {
		return endpoint{}, errorAt(r, plain("expected a cell reference"))
	}
	return endpoint{name: name, rng: r}, nil
}

// closingQuote returns the index of the '"' ending a label, skipping quotes
// inside braces, or -1.
func closingQuote(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// quotedLabel parses "text"'{options}.
func (p *parser) quotedLabel(e *edgeRecord, index int) *failure {
	start := p.pos()
	p.code = p.code[1:]
	n := closingQuote(p.code)
	if n < 0 {
		p.code = ""
		return errorAt(p.rangeFrom(start), plain("unterminated label"))
	}
	l := edgeLabel{
		text:      unbrace(strings.TrimSpace(p.code[:n])),
		alignment: quiver.AlignLeft,
		position:  50,
	}
	p.code = p.code[n+1:]
	if p.eat("'") {
		l.alignment, l.alignSet = quiver.AlignRight, true
	}
	if p.peek("{") {
		if f := p.options('{', '}', func() *failure { return p.labelOption(&l) }); f != nil {
			return f
		}
	}
	return p.applyLabel(e, index, l, p.rangeFrom(start))
}

func (p *parser) labelOption(l *edgeLabel) *failure {
	key, r := p.key('}')
	p.skipSpace()
	hasValue := p.eat("=")
	p.skipSpace()
	if pos, ok := labelPositions[key]; ok {
		l.position, l.positionSet = pos, true
		return nil
	}
	if ignoredLabelOptions[key] {
		if hasValue {
			p.value('}')
		}
		return nil
	}
	if (key == "name" || key == "pos" || key == "text") && !hasValue {
		return errorAt(r, plain("expected a value for "), lit(key))
	}
	switch key {
	case "name":
		name, nr := p.value('}')
		if name == "" {
			return errorAt(nr, plain("expected a name"))
		}
		l.name, l.nameRange = name, nr
	case "'", "swap":
		l.alignment, l.alignSet = quiver.AlignRight, true
	case "description":
		l.alignment, l.alignSet = quiver.AlignCentre, true
	case "marking", "allow upside down":
		l.alignment, l.alignSet = quiver.AlignOver, true
	case "pos":
		start := p.pos()
		v, f := p.float()
		if f != nil {
			return f
		}
		if v < 0 || v > 1 {
			return warningAt(p.rangeFrom(start), plain("label position must be between 0 and 1"))
		}
		l.position, l.positionSet = v*100, true
	case "text":
		c, f := p.colour()
		if f != nil {
			return f
		}
		l.colour, l.colourSet = c, true
	case "":
		return errorAt(p.rangeHere(), plain("expected a label option"))
	default:
		return warningAt(r, plain("unknown label option "), lit(key))
	}
	return nil
}

// applyLabel attaches l to e. A label with a name but no text only anchors
// the name, which is how edges between edges are written.
func (p *parser) applyLabel(e *edgeRecord, index int, l edgeLabel, r diagnostic.Range) *failure {
	if l.name != "" {
		if _, dup := p.names[l.name]; dup {
			p.diags.Add(diagnostic.Warning(l.nameRange, plain("duplicate name "), lit(l.name)))
		} else {
			p.names[l.name] = index
		}
		if l.text == "" {
			return nil
		}
	}
	if e.labelSet {
		return warningAt(r, plain("ignoring additional label "), lit(l.text))
	}
	e.label, e.labelSet = l.text, true
	e.opts.LabelAlignment, e.alignSet = l.alignment, l.alignSet
	if l.positionSet {
		e.opts.LabelPosition = l.position
	}
	if l.colourSet {
		e.labelColour = l.colour
	}
	return nil
}
