package quiver

import (
	"cmp"
	"errors"
	"maps"
	"slices"

	"github.com/matzehuels/quiverkit/pkg/colour"
	"github.com/matzehuels/quiverkit/pkg/geometry"
)

var (
	// ErrUnknownCell is returned by [Quiver.Validate] when an edge refers to
	// an endpoint that was never allocated or has already been flushed.
	ErrUnknownCell = errors.New("unknown cell")

	// ErrLevelMismatch is returned by [Quiver.Validate] when a live edge's
	// level is not one more than the greater of its endpoints' levels.
	ErrLevelMismatch = errors.New("edge level does not match its endpoints")

	// ErrInconsistentDependencies is returned by [Quiver.Validate] when the
	// dependency and reverse-dependency maps disagree for a live cell.
	ErrInconsistentDependencies = errors.New("dependency maps are not mutual inverses")
)

// Handle identifies a cell within the [Quiver] that allocated it. Handles
// are never reused, so two cells with identical fields are still distinct.
type Handle int

// NoHandle is the zero-like sentinel for "no cell".
const NoHandle Handle = -1

// Kind distinguishes the two cell variants.
type Kind int

const (
	// KindVertex is a 0-cell: an object of the diagram at a grid position.
	KindVertex Kind = iota
	// KindEdge is an n-cell for n >= 1: an arrow between two cells, which
	// may themselves be edges.
	KindEdge
)

// Relation is the role a cell plays for a dependent edge.
type Relation int

const (
	RelationSource Relation = iota
	RelationTarget
)

// String returns "source" or "target".
func (r Relation) String() string {
	if r == RelationTarget {
		return "target"
	}
	return "source"
}

// Cell is a vertex or an edge. Position applies only to vertices; Source,
// Target and Options only to edges.
//
// Level is maintained by the owning [Quiver]: callers must not set it on
// an edge directly, use [Quiver.Connect] instead.
type Cell struct {
	Kind        Kind
	Level       int
	Label       string
	LabelColour colour.Colour

	Position geometry.Point

	Source  Handle
	Target  Handle
	Options EdgeOptions
}

// IsVertex reports whether the cell is a vertex.
func (c *Cell) IsVertex() bool { return c.Kind == KindVertex }

// IsEdge reports whether the cell is an edge.
func (c *Cell) IsEdge() bool { return c.Kind == KindEdge }

// Quiver is the dependency graph of a diagram. Cells live in an arena and
// are partitioned into level sets; edges record which cells they depend on
// and every cell records which edges depend on it.
//
// Removal is soft: removed cells are tombstoned with a logical timestamp and
// keep their dependency bookkeeping so that [Quiver.Add] can restore them.
// [Quiver.Flush] forgets tombstones once the host knows they can no longer
// be restored.
//
// The zero value is not usable - use New. A Quiver is not safe for
// concurrent use.
type Quiver struct {
	arena               []*Cell
	cells               []map[Handle]struct{}          // level -> live cells
	dependencies        map[Handle]map[Handle]Relation // cell -> edges that use it
	reverseDependencies map[Handle]map[Handle]struct{} // edge -> its endpoints
	deleted             map[Handle]int                 // tombstone -> deletion time
}

// New creates an empty quiver.
func New() *Quiver {
	return &Quiver{
		dependencies:        make(map[Handle]map[Handle]Relation),
		reverseDependencies: make(map[Handle]map[Handle]struct{}),
		deleted:             make(map[Handle]int),
	}
}

// NewVertex allocates an unregistered vertex. Call [Quiver.Add] to make it
// part of the diagram.
func (q *Quiver) NewVertex(label string, pos geometry.Point) Handle {
	return q.alloc(&Cell{
		Kind:        KindVertex,
		Label:       label,
		LabelColour: colour.Black(),
		Position:    pos,
		Source:      NoHandle,
		Target:      NoHandle,
	})
}

// NewEdge allocates an unregistered edge between source and target. Its
// level is derived from the endpoints. Call [Quiver.Add] followed by
// [Quiver.Connect] to install it.
func (q *Quiver) NewEdge(label string, source, target Handle, opts EdgeOptions) Handle {
	return q.alloc(&Cell{
		Kind:        KindEdge,
		Level:       max(q.arena[source].Level, q.arena[target].Level) + 1,
		Label:       label,
		LabelColour: colour.Black(),
		Source:      source,
		Target:      target,
		Options:     opts,
	})
}

func (q *Quiver) alloc(c *Cell) Handle {
	q.arena = append(q.arena, c)
	return Handle(len(q.arena) - 1)
}

// AddVertex allocates and registers a vertex in one step.
func (q *Quiver) AddVertex(label string, pos geometry.Point) Handle {
	h := q.NewVertex(label, pos)
	q.Add(h)
	return h
}

// AddEdge allocates, registers and connects an edge in one step. Options
// are the level-appropriate defaults.
func (q *Quiver) AddEdge(label string, source, target Handle) Handle {
	level := max(q.arena[source].Level, q.arena[target].Level) + 1
	h := q.NewEdge(label, source, target, DefaultOptions(level))
	q.Add(h)
	q.Connect(source, target, h)
	return h
}

// Cell returns the cell for h, or nil if h was never allocated or has been
// flushed. The returned pointer may be used to edit labels and options.
func (q *Quiver) Cell(h Handle) *Cell {
	if h < 0 || int(h) >= len(q.arena) {
		return nil
	}
	return q.arena[h]
}

// Add registers a newly allocated cell, or restores a tombstoned one with
// its dependency bookkeeping intact. Adding a live cell is a no-op.
func (q *Quiver) Add(h Handle) {
	c := q.arena[h]
	delete(q.deleted, h)
	q.levelSet(c.Level)[h] = struct{}{}
	q.ensure(h)
}

// Remove tombstones h and, breadth first, every live cell that depends on
// it, recording the deletion time at. It returns every cell it tombstoned,
// starting with h. Cells that are already tombstoned are not revisited.
func (q *Quiver) Remove(h Handle, at int) []Handle {
	var removed []Handle
	queue := []Handle{h}
	queued := map[Handle]bool{h: true}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if _, gone := q.deleted[c]; gone {
			continue
		}
		q.deleted[c] = at
		if set := q.levelAt(q.arena[c].Level); set != nil {
			delete(set, c)
		}
		removed = append(removed, c)
		for _, d := range slices.Sorted(maps.Keys(q.dependencies[c])) {
			if !queued[d] {
				queued[d] = true
				queue = append(queue, d)
			}
		}
	}
	return removed
}

// Flush forgets every tombstone whose deletion time is at or after at. Its
// bookkeeping is erased and stale entries are pruned from surviving cells.
// Flushed handles are no longer valid.
func (q *Quiver) Flush(at int) {
	for c, t := range q.deleted {
		if t < at {
			continue
		}
		delete(q.dependencies, c)
		for endpoint := range q.reverseDependencies[c] {
			// The endpoint may have been flushed already.
			if deps, ok := q.dependencies[endpoint]; ok {
				delete(deps, c)
			}
		}
		delete(q.reverseDependencies, c)
		delete(q.deleted, c)
		q.arena[c] = nil
	}
}

// Connect sets the endpoints of edge, replacing any previous ones, and
// re-levels the edge and every cell that transitively depends on it.
//
// An edge's level is always one more than the greater of its endpoints'
// levels, which makes cyclic dependencies impossible to express.
func (q *Quiver) Connect(source, target, edge Handle) {
	q.ensure(source)
	q.ensure(target)
	q.ensure(edge)

	for endpoint := range q.reverseDependencies[edge] {
		if deps, ok := q.dependencies[endpoint]; ok {
			delete(deps, edge)
		}
	}
	clear(q.reverseDependencies[edge])

	q.dependencies[source][edge] = RelationSource
	q.dependencies[target][edge] = RelationTarget
	q.reverseDependencies[edge][source] = struct{}{}
	q.reverseDependencies[edge][target] = struct{}{}

	e := q.arena[edge]
	e.Source, e.Target = source, target

	// Ascending level order visits endpoints before their dependents.
	for _, h := range q.TransitiveDependencies([]Handle{edge}, false) {
		c := q.arena[h]
		if !c.IsEdge() {
			continue
		}
		q.relevel(h, max(q.arena[c.Source].Level, q.arena[c.Target].Level)+1)
	}
}

func (q *Quiver) relevel(h Handle, level int) {
	c := q.arena[h]
	if c.Level == level {
		return
	}
	if q.Live(h) {
		delete(q.cells[c.Level], h)
		q.levelSet(level)[h] = struct{}{}
	}
	c.Level = level
}

func (q *Quiver) ensure(h Handle) {
	if _, ok := q.dependencies[h]; !ok {
		q.dependencies[h] = make(map[Handle]Relation)
	}
	if _, ok := q.reverseDependencies[h]; !ok {
		q.reverseDependencies[h] = make(map[Handle]struct{})
	}
}

// levelSet returns the set for level, growing the level vector as needed.
func (q *Quiver) levelSet(level int) map[Handle]struct{} {
	for len(q.cells) <= level {
		q.cells = append(q.cells, make(map[Handle]struct{}))
	}
	return q.cells[level]
}

func (q *Quiver) levelAt(level int) map[Handle]struct{} {
	if level < 0 || level >= len(q.cells) {
		return nil
	}
	return q.cells[level]
}

// Live reports whether h is registered and not tombstoned.
func (q *Quiver) Live(h Handle) bool {
	c := q.Cell(h)
	if c == nil {
		return false
	}
	_, ok := q.levelAt(c.Level)[h]
	return ok
}

// DeletedAt returns the deletion time of a tombstoned cell.
func (q *Quiver) DeletedAt(h Handle) (int, bool) {
	t, ok := q.deleted[h]
	return t, ok
}

// AllCells returns the live cells in ascending level order. Within a level
// cells appear in allocation order.
func (q *Quiver) AllCells() []Handle {
	var out []Handle
	for _, set := range q.cells {
		out = append(out, slices.Sorted(maps.Keys(set))...)
	}
	return out
}

// CellsAtLevel returns the live cells of the given level in allocation
// order.
func (q *Quiver) CellsAtLevel(level int) []Handle {
	return slices.Sorted(maps.Keys(q.levelAt(level)))
}

// Vertices returns the live vertices in allocation order.
func (q *Quiver) Vertices() []Handle { return q.CellsAtLevel(0) }

// Edges returns the live edges in ascending level order.
func (q *Quiver) Edges() []Handle {
	var out []Handle
	for level := 1; level < len(q.cells); level++ {
		out = append(out, q.CellsAtLevel(level)...)
	}
	return out
}

// Len returns the number of live cells.
func (q *Quiver) Len() int {
	n := 0
	for _, set := range q.cells {
		n += len(set)
	}
	return n
}

// IsEmpty reports whether the quiver has no live cells.
func (q *Quiver) IsEmpty() bool { return q.Len() == 0 }

// MaxLevel returns the highest level holding a live cell, or -1 if the
// quiver is empty.
func (q *Quiver) MaxLevel() int {
	for level := len(q.cells) - 1; level >= 0; level-- {
		if len(q.cells[level]) > 0 {
			return level
		}
	}
	return -1
}

// DependenciesOf returns the live edges that use h as an endpoint, with the
// role h plays for each.
func (q *Quiver) DependenciesOf(h Handle) map[Handle]Relation {
	out := make(map[Handle]Relation)
	for e, rel := range q.dependencies[h] {
		if _, gone := q.deleted[e]; !gone {
			out[e] = rel
		}
	}
	return out
}

// ReverseDependenciesOf returns the live endpoints of h in allocation
// order.
func (q *Quiver) ReverseDependenciesOf(h Handle) []Handle {
	var out []Handle
	for _, c := range slices.Sorted(maps.Keys(q.reverseDependencies[h])) {
		if _, gone := q.deleted[c]; !gone {
			out = append(out, c)
		}
	}
	return out
}

// TransitiveDependencies returns roots together with every live cell that
// depends on them, directly or indirectly. The result is ordered by
// ascending level, ties broken by discovery order, so drawing cells in this
// order always draws a cell after everything it depends on.
func (q *Quiver) TransitiveDependencies(roots []Handle, excludeRoots bool) []Handle {
	seen := make(map[Handle]bool)
	var closure []Handle
	for _, r := range roots {
		if !seen[r] {
			seen[r] = true
			closure = append(closure, r)
		}
	}
	for i := 0; i < len(closure); i++ {
		for _, d := range slices.Sorted(maps.Keys(q.DependenciesOf(closure[i]))) {
			if !seen[d] {
				seen[d] = true
				closure = append(closure, d)
			}
		}
	}
	if excludeRoots {
		closure = slices.DeleteFunc(closure, func(h Handle) bool { return slices.Contains(roots, h) })
	}
	slices.SortStableFunc(closure, func(a, b Handle) int {
		return cmp.Compare(q.arena[a].Level, q.arena[b].Level)
	})
	return closure
}

// BoundingRect returns the smallest rectangle containing every live
// vertex. ok is false when there are no live vertices.
func (q *Quiver) BoundingRect() (lo, hi geometry.Point, ok bool) {
	for _, h := range q.Vertices() {
		p := q.arena[h].Position
		if !ok {
			lo, hi, ok = p, p, true
			continue
		}
		lo, hi = geometry.Min(lo, p), geometry.Max(hi, p)
	}
	return lo, hi, ok
}

// Centre returns the point an edge attached to h aims for, in grid
// coordinates: a vertex's position, or the apex of an edge. A straight
// edge's apex is the midpoint between its endpoints; a curved one bulges to
// the right of its direction by Curve steps of the default grid.
func (q *Quiver) Centre(h Handle) geometry.Point {
	c := q.arena[h]
	if c.IsVertex() {
		return c.Position
	}
	from, to := q.Centre(c.Source), q.Centre(c.Target)
	mid := from.Lerp(to, 0.5)
	d := to.Sub(from)
	if c.Options.Curve == 0 || d.Length() == 0 {
		return mid
	}
	normal := geometry.Pt(-d.Y, d.X).Scale(1 / d.Length())
	return mid.Add(normal.Scale(float64(c.Options.Curve) * geometry.DefaultCurveStep / geometry.DefaultCellSize))
}

// Validate checks the level and dependency invariants for every live cell.
// It returns ErrUnknownCell, ErrLevelMismatch or
// ErrInconsistentDependencies on the first violation found, or nil.
func (q *Quiver) Validate() error {
	for _, h := range q.AllCells() {
		c := q.arena[h]
		if c.IsEdge() {
			src, tgt := q.Cell(c.Source), q.Cell(c.Target)
			if src == nil || tgt == nil {
				return ErrUnknownCell
			}
			if c.Level != max(src.Level, tgt.Level)+1 {
				return ErrLevelMismatch
			}
			for endpoint := range q.reverseDependencies[h] {
				if _, ok := q.dependencies[endpoint][h]; !ok {
					return ErrInconsistentDependencies
				}
			}
			if _, ok := q.reverseDependencies[h][c.Source]; !ok {
				return ErrInconsistentDependencies
			}
			if _, ok := q.reverseDependencies[h][c.Target]; !ok {
				return ErrInconsistentDependencies
			}
		}
		for e := range q.dependencies[h] {
			if _, ok := q.reverseDependencies[e][h]; !ok {
				return ErrInconsistentDependencies
			}
		}
	}
	return nil
}
