package tikzcd

import (
	"maps"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// Folded phantom edges are tombstoned at a time no host history reaches and
// flushed straight away.
const phantomRemovalTime = math.MaxInt

var phantomName = regexp.MustCompile(`^[0-9]+p$`)

// Result is the outcome of parsing a diagram. The diagram itself lives in
// the Builder passed to Parse.
type Result struct {
	// Cells lists every cell the parse created and kept, in creation order.
	Cells []quiver.Handle
	// Diagnostics holds every warning and error, including a fatal error
	// that ended the parse early.
	Diagnostics diagnostic.List
	Settings    Settings

	finalized bool
}

// ShorteningJob is an arrow shortening given in points. It can only be
// converted to the percentage stored on the edge once the arrow's length is
// known; see [Result.Finalize].
type ShorteningJob struct {
	Edge           quiver.Handle
	Source, Target float64
	Range          diagnostic.Range
}

// Parse reads a tikz-cd diagram into b. It never fails: problems are
// reported in the result's diagnostics and whatever could be built is kept,
// even after a fatal error.
//
// Shortenings are returned as jobs to pass to [Result.Finalize] once the
// host has settled the layout.
func Parse(source string, b Builder) (*Result, []ShorteningJob) {
	p := newParser(source, b)
	if f := p.diagram(); f != nil {
		p.diags.Add(f.diag)
	}
	jobs := p.resolve()
	return &Result{Cells: p.cells, Diagnostics: p.diags, Settings: p.settings}, jobs
}

// Finalize converts shortenings to percentages of each arrow's arc length
// as measured by m. A shortening that would leave nothing of the arrow is
// reset with a warning. Only the first call has any effect.
func (r *Result) Finalize(b Builder, jobs []ShorteningJob, m geometry.Metric) {
	if r.finalized {
		return
	}
	r.finalized = true
	for _, job := range jobs {
		c := b.Cell(job.Edge)
		if c == nil {
			continue
		}
		length := m.ArcLength(b.Centre(c.Source), b.Centre(c.Target), c.Options.Curve)
		if length <= 0 {
			r.Diagnostics.Add(diagnostic.Warning(job.Range, plain("cannot shorten an arrow of zero length")))
			continue
		}
		s := quiver.Shorten{Source: job.Source / length * 100, Target: job.Target / length * 100}
		if s.Source+s.Target >= 100 {
			r.Diagnostics.Add(diagnostic.Warning(job.Range, plain("shortening is longer than the arrow and was ignored")))
			s = quiver.Shorten{}
		}
		c.Options.Shorten = s
	}
}

const (
	unvisited = iota
	visiting
	done
	failed
)

type resolver struct {
	p       *parser
	state   []int
	handles []quiver.Handle
	folded  map[int]bool
	jobs    []ShorteningJob
}

// resolve turns the recorded arrows into edges, source before target, so
// names may be used before the arrow that defines them.
func (p *parser) resolve() []ShorteningJob {
	r := &resolver{
		p:       p,
		state:   make([]int, len(p.edges)),
		handles: make([]quiver.Handle, len(p.edges)),
		folded:  make(map[int]bool),
	}
	for i := range p.edges {
		r.materialise(i)
	}

	var removed []quiver.Handle
	for _, i := range slices.Sorted(maps.Keys(r.folded)) {
		if r.state[i] == done {
			removed = append(removed, p.b.Remove(r.handles[i], phantomRemovalTime)...)
		}
	}
	if len(removed) > 0 {
		p.b.Flush(phantomRemovalTime)
		p.cells = slices.DeleteFunc(p.cells, func(h quiver.Handle) bool { return slices.Contains(removed, h) })
		r.jobs = slices.DeleteFunc(r.jobs, func(j ShorteningJob) bool { return slices.Contains(removed, j.Edge) })
	}
	return r.jobs
}

func (r *resolver) materialise(i int) (quiver.Handle, bool) {
	switch r.state[i] {
	case done:
		return r.handles[i], true
	case failed, visiting:
		return quiver.NoHandle, false
	}
	r.state[i] = visiting

	e := r.p.edges[i]
	if e.loop {
		e.target = e.source
	}
	src, srcAligned, ok := r.endpoint(e.source)
	if !ok {
		r.state[i] = failed
		return quiver.NoHandle, false
	}
	tgt, tgtAligned, ok := r.endpoint(e.target)
	if !ok {
		r.state[i] = failed
		return quiver.NoHandle, false
	}

	b := r.p.b
	level := max(b.Cell(src).Level, b.Cell(tgt).Level) + 1
	label, opts := e.options(level)
	opts.EdgeAlignment = quiver.EdgeAlignment{Source: srcAligned, Target: tgtAligned}

	h := b.NewEdge(label, src, tgt, opts)
	b.Cell(h).LabelColour = e.labelColour
	b.Add(h)
	b.Connect(src, tgt, h)
	r.p.cells = append(r.p.cells, h)
	if e.shortenSource != 0 || e.shortenTarget != 0 {
		r.jobs = append(r.jobs, ShorteningJob{Edge: h, Source: e.shortenSource, Target: e.shortenTarget, Range: e.shortenRange})
	}

	r.state[i], r.handles[i] = done, h
	return h, true
}

// endpoint resolves a reference to a cell. Grid positions with no vertex get
// an empty one. A reference to the phantom copy of a named arrow resolves
// to the arrow itself, attached by its label rather than its body.
func (r *resolver) endpoint(ep endpoint) (h quiver.Handle, aligned, ok bool) {
	p := r.p
	if ep.name == "" {
		return r.vertexAt(ep.pos), true, true
	}
	j, ok := p.names[ep.name]
	if !ok {
		p.diags.Add(diagnostic.Error(ep.rng, plain("no arrow is named "), lit(ep.name)))
		return quiver.NoHandle, false, false
	}
	aligned = true
	if phantomName.MatchString(ep.name) && p.edges[j].phantom {
		if k, ok := p.names[strings.TrimSuffix(ep.name, "p")]; ok && !p.edges[k].phantom {
			r.folded[j] = true
			j, aligned = k, false
		}
	}
	if r.state[j] == visiting {
		p.diags.Add(diagnostic.Error(ep.rng, plain("arrow depends on itself through "), lit(ep.name)))
		return quiver.NoHandle, false, false
	}
	h, ok = r.materialise(j)
	return h, aligned, ok
}

func (r *resolver) vertexAt(pos geometry.Point) quiver.Handle {
	p := r.p
	if h, ok := p.vertices[pos]; ok {
		return h
	}
	h := p.b.NewVertex("", pos)
	p.b.Add(h)
	p.vertices[pos] = h
	p.cells = append(p.cells, h)
	return h
}

// options returns the label and options of the edge for an arrow whose
// endpoints give it the graph level level.
func (e *edgeRecord) options(level int) (string, quiver.EdgeOptions) {
	label, opts := e.label, e.opts
	if opts.Level == 0 {
		opts.Level = level
	}
	if e.swap && opts.LabelAlignment == quiver.AlignLeft {
		opts.LabelAlignment = quiver.AlignRight
	}
	if e.phantom {
		opts.Style.Tail = quiver.Component{Name: quiver.TailNone}
		opts.Style.Body = quiver.Component{Name: quiver.BodyNone}
		opts.Style.Head = quiver.Component{Name: quiver.HeadNone}
		if !e.alignSet {
			opts.LabelAlignment = quiver.AlignCentre
		}
	}
	if e.drawNone {
		switch label {
		case `\dashv`:
			label, opts.Style.Name = "", quiver.StyleAdjunction
		case `\lrcorner`:
			label, opts.Style.Name = "", quiver.StyleCorner
		case `\ulcorner`:
			label, opts.Style.Name = "", quiver.StyleCornerInverse
		default:
			opts.Style.Body = quiver.Component{Name: quiver.BodyNone}
		}
	}
	return label, opts
}
