package quiver

import "github.com/matzehuels/quiverkit/pkg/colour"

// Alignment is the placement of an edge label relative to its arrow.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCentre
	AlignRight
	AlignOver
)

var alignmentNames = [...]string{"left", "centre", "right", "over"}

// String returns the alignment name.
func (a Alignment) String() string {
	if a < 0 || int(a) >= len(alignmentNames) {
		return "unknown"
	}
	return alignmentNames[a]
}

// Valid reports whether a is one of the four alignments.
func (a Alignment) Valid() bool { return a >= AlignLeft && a <= AlignOver }

// Style names.
const (
	StyleArrow         = "arrow"
	StyleAdjunction    = "adjunction"
	StyleCorner        = "corner"
	StyleCornerInverse = "corner-inverse"
)

// Tail names.
const (
	TailNone      = "none"
	TailMapsTo    = "maps to"
	TailMono      = "mono"
	TailHook      = "hook"
	TailArrowhead = "arrowhead"
)

// Body names.
const (
	BodyCell         = "cell"
	BodyDashed       = "dashed"
	BodyDotted       = "dotted"
	BodySquiggly     = "squiggly"
	BodyBarred       = "barred"
	BodyDoubleBarred = "double barred"
	BodyBulletSolid  = "bullet solid"
	BodyBulletHollow = "bullet hollow"
	BodyNone         = "none"
)

// Head names.
const (
	HeadArrowhead = "arrowhead"
	HeadNone      = "none"
	HeadEpi       = "epi"
	HeadHarpoon   = "harpoon"
)

// Side values for hooks and harpoons.
const (
	SideTop    = "top"
	SideBottom = "bottom"
)

// Component is one of the tail, body or head of an arrow. Side is only
// meaningful for hooks and harpoons.
type Component struct {
	Name string `json:"name"`
	Side string `json:"side,omitempty"`
}

// Style describes how an edge is drawn. Tail, Body and Head only apply to
// the "arrow" style.
type Style struct {
	Name string    `json:"name"`
	Tail Component `json:"tail"`
	Body Component `json:"body"`
	Head Component `json:"head"`
}

// Shorten holds the percentage of the arrow trimmed from each end.
type Shorten struct {
	Source float64 `json:"source"`
	Target float64 `json:"target"`
}

// EdgeAlignment records, per endpoint, whether an edge attaches to the
// arrow of an endpoint edge (true) or to the centre of its label (false).
type EdgeAlignment struct {
	Source bool `json:"source"`
	Target bool `json:"target"`
}

// EdgeOptions are the drawing options of an edge.
type EdgeOptions struct {
	LabelAlignment Alignment
	LabelPosition  float64 // percent along the arrow, in [0, 100]
	Offset         int
	Curve          int
	Shorten        Shorten
	Level          int // multiplicity of the arrow body: 1 for →, 2 for ⇒, ...
	EdgeAlignment  EdgeAlignment
	Colour         colour.Colour
	Style          Style
}

// DefaultStyle returns the plain arrow style.
func DefaultStyle() Style {
	return Style{
		Name: StyleArrow,
		Tail: Component{Name: TailNone},
		Body: Component{Name: BodyCell},
		Head: Component{Name: HeadArrowhead},
	}
}

// DefaultOptions returns the options a fresh edge of the given graph level
// starts with. Higher cells default to arrows of matching multiplicity, so a
// 2-cell is drawn as a double arrow.
func DefaultOptions(level int) EdgeOptions {
	if level < 1 {
		level = 1
	}
	return EdgeOptions{
		LabelAlignment: AlignLeft,
		LabelPosition:  50,
		Level:          level,
		EdgeAlignment:  EdgeAlignment{Source: true, Target: true},
		Colour:         colour.Black(),
		Style:          DefaultStyle(),
	}
}

// ValidShorten reports whether s is within range and leaves a visible
// arrow.
func ValidShorten(s Shorten) bool {
	return s.Source >= 0 && s.Target >= 0 && s.Source <= 100 && s.Target <= 100 && s.Source+s.Target < 100
}
