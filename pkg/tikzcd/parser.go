package tikzcd

import (
	"strings"
	"unicode/utf8"

	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// Builder is the graph the parser constructs cells in. The parser only
// allocates, registers and connects cells; it never reads back anything it
// did not create. *quiver.Quiver implements Builder.
type Builder interface {
	NewVertex(label string, pos geometry.Point) quiver.Handle
	NewEdge(label string, source, target quiver.Handle, opts quiver.EdgeOptions) quiver.Handle
	Cell(h quiver.Handle) *quiver.Cell
	Centre(h quiver.Handle) geometry.Point
	Add(h quiver.Handle)
	Remove(h quiver.Handle, at int) []quiver.Handle
	Flush(at int)
	Connect(source, target, edge quiver.Handle)
}

var _ Builder = (*quiver.Quiver)(nil)

var (
	plain = diagnostic.Text
	lit   = diagnostic.Code
)

// failure is a diagnostic raised by a parse step. Steps return nil on
// success. A non-fatal failure is logged by the nearest recover and parsing
// resumes at the next synchronisation point; a fatal one ends the parse.
type failure struct {
	diag diagnostic.Diagnostic
}

func errorAt(r diagnostic.Range, msg ...diagnostic.Fragment) *failure {
	return &failure{diag: diagnostic.Error(r, msg...)}
}

func warningAt(r diagnostic.Range, msg ...diagnostic.Fragment) *failure {
	return &failure{diag: diagnostic.Warning(r, msg...)}
}

func fatalAt(r diagnostic.Range, msg ...diagnostic.Fragment) *failure {
	d := diagnostic.Error(r, msg...)
	d.Fatal = true
	return &failure{diag: d}
}

// parser holds the cursor over the remaining input. Positions are always
// offsets into source, computed from how much of it code has consumed.
type parser struct {
	source string
	code   string
	b      Builder

	diags    diagnostic.List
	settings Settings
	colSep   string
	col, row int

	cells    []quiver.Handle
	vertices map[geometry.Point]quiver.Handle
	edges    []*edgeRecord
	names    map[string]int
}

func newParser(source string, b Builder) *parser {
	return &parser{
		source:   source,
		code:     source,
		b:        b,
		colSep:   "&",
		vertices: make(map[geometry.Point]quiver.Handle),
		names:    make(map[string]int),
	}
}

func (p *parser) pos() int { return len(p.source) - len(p.code) }

func (p *parser) rangeFrom(start int) diagnostic.Range { return diagnostic.FromTo(start, p.pos()) }

func (p *parser) rangeHere() diagnostic.Range { return diagnostic.At(p.pos()) }

// rest is the range from the cursor to the end of the input.
func (p *parser) rest() diagnostic.Range { return diagnostic.FromTo(p.pos(), len(p.source)) }

func (p *parser) eat(s string) bool {
	if strings.HasPrefix(p.code, s) {
		p.code = p.code[len(s):]
		return true
	}
	return false
}

func (p *parser) peek(s string) bool { return strings.HasPrefix(p.code, s) }

// skipSpace skips whitespace and TeX comments.
func (p *parser) skipSpace() {
	for p.code != "" {
		switch c := p.code[0]; {
		case isSpace(c):
			p.code = p.code[1:]
		case c == '%':
			if i := strings.IndexByte(p.code, '\n'); i >= 0 {
				p.code = p.code[i+1:]
			} else {
				p.code = ""
			}
		default:
			return
		}
	}
}

// recover runs step. A recoverable failure is logged, widened over the input
// skipped to resynchronise at the next ',' or closer, and swallowed. Fatal
// failures are passed through.
func (p *parser) recover(closer byte, step func() *failure) *failure {
	f := step()
	if f == nil || f.diag.Fatal {
		return f
	}
	start := p.pos()
	p.skipToSync(closer)
	p.diags.Add(f.diag.Widen(p.rangeFrom(start)))
	return nil
}

// skipToSync advances to the next ',' or closer outside braces.
func (p *parser) skipToSync(closer byte) {
	depth := 0
	for p.code != "" {
		c := p.code[0]
		if depth == 0 && (c == ',' || c == closer) {
			return
		}
		switch c {
		case '\\':
			if len(p.code) > 1 {
				p.code = p.code[1:]
			}
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
		p.code = p.code[1:]
	}
}

// options parses a comma separated list delimited by open and closer,
// calling option with the cursor on the first character of each entry.
// Each entry is recovered on its own. Running out of input before closer is
// an error covering the whole list.
func (p *parser) options(open, closer byte, option func() *failure) *failure {
	start := p.pos()
	if !p.eat(string(open)) {
		return errorAt(p.rangeHere(), plain("expected "), lit(string(open)))
	}
	for {
		p.skipSpace()
		switch {
		case p.eat(string(closer)):
			return nil
		case p.code == "":
			return errorAt(p.rangeFrom(start), plain("unexpected end of options"))
		case p.eat(","):
			continue
		}
		f := p.recover(closer, func() *failure {
			if f := option(); f != nil {
				return f
			}
			p.skipSpace()
			if p.code == "" || p.peek(",") || p.peek(string(closer)) {
				return nil
			}
			return errorAt(p.rangeHere(), plain("expected "), lit(","), plain(" or "), lit(string(closer)))
		})
		if f != nil {
			return f
		}
	}
}

// group runs parse over the contents of the brace group at the cursor and
// leaves the cursor after the group, whether or not parse succeeded.
func (p *parser) group(parse func() *failure) *failure {
	start := p.pos()
	n := groupLen(p.code)
	if n < 0 {
		if p.peek("{") {
			return errorAt(p.rest(), plain("unbalanced "), lit("{"))
		}
		return errorAt(p.rangeHere(), plain("expected "), lit("{"))
	}
	source, rest := p.source, p.code[n:]
	p.source, p.code = source[:start+n-1], p.code[1:n-1]
	f := parse()
	if f == nil {
		p.skipSpace()
		if p.code != "" {
			f = errorAt(p.rest(), plain("unexpected "), lit(p.code))
		}
	}
	p.source, p.code = source, rest
	return f
}

// key reads an option name up to '=', ',', a brace, a quote or closer, with
// inner whitespace collapsed.
func (p *parser) key(closer byte) (string, diagnostic.Range) {
	i := strings.IndexFunc(p.code, func(r rune) bool {
		return r == '=' || r == ',' || r == '{' || r == '"' || r == rune(closer)
	})
	if i < 0 {
		i = len(p.code)
	}
	start := p.pos()
	raw := p.code[:i]
	p.code = p.code[i:]
	text, r := trimmed(start, raw)
	return strings.Join(strings.Fields(text), " "), r
}

// value reads a raw option value up to the next ',' or closer outside
// braces.
func (p *parser) value(closer byte) (string, diagnostic.Range) {
	start := p.pos()
	p.skipToSync(closer)
	return trimmed(start, p.source[start:p.pos()])
}

func trimmed(start int, raw string) (string, diagnostic.Range) {
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
	text := strings.TrimSpace(raw)
	return text, diagnostic.Range{Start: start + lead, Length: len(text)}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

// commandLen returns the length of the control sequence at the start of s,
// or 0 if s does not start with a backslash.
func commandLen(s string) int {
	if s == "" || s[0] != '\\' {
		return 0
	}
	i := 1
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 1 && len(s) > 1 {
		_, size := utf8.DecodeRuneInString(s[1:])
		i += size
	}
	return i
}

// commandName returns the name of the control sequence at the start of s.
func commandName(s string) string {
	n := commandLen(s)
	if n == 0 {
		return ""
	}
	return s[1:n]
}

// groupLen returns the length of the balanced brace group at the start of
// s, or -1 if s does not start with one.
func groupLen(s string) int {
	if s == "" || s[0] != '{' {
		return -1
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// unbrace strips one pair of braces surrounding the whole of s.
func unbrace(s string) string {
	if n := groupLen(s); n == len(s) && n >= 2 {
		return s[1 : n-1]
	}
	return s
}
