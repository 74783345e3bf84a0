// Package diagnostic defines the structured warnings and errors produced
// while reading diagram sources.
//
// Every [Diagnostic] carries a [Range] over the original source text, so
// positions stay meaningful after parsing has finished, and a rich-text
// [Message] whose code fragments (option names, offending tokens) can be
// highlighted by the caller.
package diagnostic

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Range is a span of the original source: Length bytes starting at Start.
type Range struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// At returns the zero-length range at pos.
func At(pos int) Range { return Range{Start: pos} }

// FromTo returns the range covering [start, end).
func FromTo(start, end int) Range {
	if end < start {
		start, end = end, start
	}
	return Range{Start: start, Length: end - start}
}

// End returns the offset just past the range.
func (r Range) End() int { return r.Start + r.Length }

// Merge returns the smallest range covering both r and o.
func (r Range) Merge(o Range) Range {
	return FromTo(min(r.Start, o.Start), max(r.End(), o.End()))
}

// Slice returns the text of source covered by r, clamped to the source.
func (r Range) Slice(source string) string {
	start := min(max(r.Start, 0), len(source))
	end := min(max(r.End(), start), len(source))
	return source[start:end]
}

// LineCol returns the 1-based line and column of the start of r.
func (r Range) LineCol(source string) (line, col int) {
	prefix := source[:min(max(r.Start, 0), len(source))]
	line = strings.Count(prefix, "\n") + 1
	col = len(prefix) - strings.LastIndex(prefix, "\n")
	return line, col
}

// Severity classifies a diagnostic.
type Severity int

const (
	// SeverityWarning marks a best-guess decision; the input was understood
	// well enough to continue with a sensible default.
	SeverityWarning Severity = iota
	// SeverityError marks input that could not be understood at all.
	SeverityError
)

// String returns "warning" or "error".
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// MarshalJSON encodes the severity by name.
func (s Severity) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Fragment is a run of message text. Code fragments quote source tokens.
type Fragment struct {
	Text string `json:"text"`
	Code bool   `json:"code,omitempty"`
}

// Text returns a plain fragment.
func Text(s string) Fragment { return Fragment{Text: s} }

// Code returns a code fragment.
func Code(s string) Fragment { return Fragment{Text: s, Code: true} }

// Message is rich text made of fragments.
type Message []Fragment

// String renders the message with code fragments in backticks.
func (m Message) String() string {
	var b strings.Builder
	for _, f := range m {
		if f.Code {
			b.WriteString("`" + f.Text + "`")
		} else {
			b.WriteString(f.Text)
		}
	}
	return b.String()
}

// Diagnostic is a warning or error attached to a range of the source.
// Fatal errors ended the parse early.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Fatal    bool     `json:"fatal,omitempty"`
	Message  Message  `json:"message"`
	Range    Range    `json:"range"`
}

// Warning returns a warning diagnostic.
func Warning(r Range, msg ...Fragment) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Message: msg, Range: r}
}

// Error returns a recoverable error diagnostic.
func Error(r Range, msg ...Fragment) Diagnostic {
	return Diagnostic{Severity: SeverityError, Message: msg, Range: r}
}

// Widen returns a copy of d whose range also covers r.
func (d Diagnostic) Widen(r Range) Diagnostic {
	d.Range = d.Range.Merge(r)
	return d
}

// String implements fmt.Stringer.
func (d Diagnostic) String() string {
	kind := d.Severity.String()
	if d.Fatal {
		kind = "fatal " + kind
	}
	return fmt.Sprintf("%s at %d..%d: %s", kind, d.Range.Start, d.Range.End(), d.Message)
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Add appends d.
func (l *List) Add(d Diagnostic) { *l = append(*l, d) }

// Warnings returns the warnings in l.
func (l List) Warnings() List {
	return l.filter(func(d Diagnostic) bool { return d.Severity == SeverityWarning })
}

// Errors returns the errors in l, fatal or not.
func (l List) Errors() List {
	return l.filter(func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// HasErrors reports whether l holds at least one error.
func (l List) HasErrors() bool {
	return slices.ContainsFunc(l, func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// HasFatal reports whether the parse that produced l was aborted.
func (l List) HasFatal() bool {
	return slices.ContainsFunc(l, func(d Diagnostic) bool { return d.Fatal })
}

// Sorted returns a copy of l ordered by position.
func (l List) Sorted() List {
	out := slices.Clone(l)
	slices.SortStableFunc(out, func(a, b Diagnostic) int { return a.Range.Start - b.Range.Start })
	return out
}

func (l List) filter(keep func(Diagnostic) bool) List {
	var out List
	for _, d := range l {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
