package tikzcd

import (
	"unicode/utf8"

	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/geometry"
)

const (
	beginTikzcd = `\begin{tikzcd}`
	endTikzcd   = `\end{tikzcd}`
)

// Settings are the diagram-wide options read from \begin{tikzcd}[...].
type Settings struct {
	AmpersandReplacement string `json:"ampersand_replacement,omitempty"`
	Sep                  string `json:"sep,omitempty"`
	ColumnSep            string `json:"column_sep,omitempty"`
	RowSep               string `json:"row_sep,omitempty"`
	Cramped              bool   `json:"cramped,omitempty"`
}

// diagram := '\['? '\begin{tikzcd}' options? (cell | col-sep | row-sep)*
// '\end{tikzcd}' '\]'?
func (p *parser) diagram() *failure {
	p.skipSpace()
	p.eat(`\[`)
	p.skipSpace()
	if !p.eat(beginTikzcd) {
		return fatalAt(p.rest(), plain("expected "), lit(beginTikzcd))
	}
	p.skipSpace()
	if p.peek("[") {
		if f := p.options('[', ']', p.diagramOption); f != nil {
			p.diags.Add(f.diag)
		}
	}

	body := p.pos()
	for {
		p.skipSpace()
		if p.eat(endTikzcd) {
			break
		}
		if p.code == "" {
			return fatalAt(diagnostic.FromTo(body, len(p.source)), plain("expected "), lit(endTikzcd))
		}
		if f := p.cell(); f != nil {
			if f.diag.Fatal {
				return f
			}
			start := p.pos()
			p.skipCell()
			p.diags.Add(f.diag.Widen(p.rangeFrom(start)))
		}
	}

	p.skipSpace()
	p.eat(`\]`)
	p.skipSpace()
	if p.code != "" {
		return fatalAt(p.rest(), plain("unexpected content after "), lit(endTikzcd))
	}
	return nil
}

func (p *parser) diagramOption() *failure {
	key, r := p.key(']')
	p.skipSpace()
	hasValue := p.eat("=")
	p.skipSpace()
	switch key {
	case "ampersand replacement", "sep", "column sep", "row sep":
		if !hasValue {
			return errorAt(r, plain("expected a value for "), lit(key))
		}
		v, vr := p.value(']')
		if v == "" {
			return errorAt(vr, plain("expected a value for "), lit(key))
		}
		switch key {
		case "ampersand replacement":
			p.settings.AmpersandReplacement = v
			p.colSep = v
		case "sep":
			p.settings.Sep = v
		case "column sep":
			p.settings.ColumnSep = v
		case "row sep":
			p.settings.RowSep = v
		}
	case "cramped":
		p.settings.Cramped = true
	case "":
		return errorAt(p.rangeHere(), plain("expected a diagram option"))
	default:
		return warningAt(r, plain("unknown diagram option "), lit(key))
	}
	return nil
}

// cell parses one item of the diagram body. Edges and separators are tried
// before node labels, since an unbraced label would otherwise swallow them.
func (p *parser) cell() *failure {
	switch name := commandName(p.code); {
	case name == "arrow" || name == "ar":
		p.arrow()
		return nil
	case p.eat(p.colSep):
		p.col++
		return nil
	case p.eat(`\\`):
		p.row++
		p.col = 0
		if p.peek("[") {
			return p.options('[', ']', func() *failure {
				p.skipToSync(']')
				return nil
			})
		}
		return nil
	case name == "end":
		start := p.pos()
		p.code = p.code[commandLen(p.code):]
		return errorAt(p.rangeFrom(start), plain("unexpected "), lit(`\end`), plain(", expected "), lit(endTikzcd))
	}
	return p.node()
}

// delimiter reports whether s starts with something that ends an unbraced
// label.
func (p *parser) delimiter(s string) bool {
	if s == "" || isSpace(s[0]) || s[0] == '%' || s[0] == '}' {
		return true
	}
	if len(s) >= len(p.colSep) && s[:len(p.colSep)] == p.colSep {
		return true
	}
	if len(s) >= 2 && s[:2] == `\\` {
		return true
	}
	switch commandName(s) {
	case "arrow", "ar", "end":
		return true
	}
	return false
}

// node parses a vertex label: a run of tokens, extended across single
// spaces while the next token does not end the label.
func (p *parser) node() *failure {
	start := p.pos()
	for !p.delimiter(p.code) || p.peek(" ") {
		if p.code[0] == ' ' {
			if len(p.code) > 1 && !p.delimiter(p.code[1:]) {
				p.code = p.code[1:]
				continue
			}
			break
		}
		if f := p.token(); f != nil {
			return f
		}
	}
	if p.pos() == start {
		_, size := utf8.DecodeRuneInString(p.code)
		return errorAt(diagnostic.Range{Start: start, Length: size}, plain("unexpected "), lit(p.code[:size]))
	}
	p.label(p.source[start:p.pos()])
	return nil
}

// token consumes one label token: a brace group, a control sequence or a
// single character.
func (p *parser) token() *failure {
	switch p.code[0] {
	case '{':
		n := groupLen(p.code)
		if n < 0 {
			return errorAt(p.rest(), plain("unbalanced "), lit("{"))
		}
		p.code = p.code[n:]
	case '\\':
		p.code = p.code[commandLen(p.code):]
	default:
		_, size := utf8.DecodeRuneInString(p.code)
		p.code = p.code[size:]
	}
	return nil
}

// skipCell discards the rest of a cell item that failed to parse, up to the
// next whitespace. It always makes progress.
func (p *parser) skipCell() {
	for first := true; p.code != "" && (first || !isSpace(p.code[0])); first = false {
		n := 1
		switch p.code[0] {
		case '{':
			if g := groupLen(p.code); g > 0 {
				n = g
			}
		case '\\':
			n = commandLen(p.code)
		default:
			_, n = utf8.DecodeRuneInString(p.code)
		}
		p.code = p.code[n:]
	}
}

// label places a vertex labelled text at the current cell. A second label in
// the same cell is appended to the first.
func (p *parser) label(text string) {
	text = unbrace(text)
	c, inner, coloured := textColour(text)
	if coloured {
		text = inner
	}
	at := geometry.Pt(float64(p.col), float64(p.row))
	if h, ok := p.vertices[at]; ok {
		cell := p.b.Cell(h)
		cell.Label += " " + text
		if coloured {
			cell.LabelColour = c
		}
		return
	}
	h := p.b.NewVertex(text, at)
	if coloured {
		p.b.Cell(h).LabelColour = c
	}
	p.b.Add(h)
	p.vertices[at] = h
	p.cells = append(p.cells, h)
}
