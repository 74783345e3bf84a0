// Package quiver provides the multi-level dependency graph behind a
// commutative diagram.
//
// # Overview
//
// A diagram is made of cells. Vertices (0-cells) sit on a grid; edges
// connect two cells, and because an edge may itself be the endpoint of
// another edge, diagrams contain 2-cells, 3-cells and so on. The level of a
// cell is 0 for a vertex and one more than the greater of its endpoints'
// levels for an edge.
//
// [Quiver] owns every cell in an arena addressed by [Handle] and partitions
// the live cells into one set per level. It tracks, for every cell, which
// edges depend on it (and as source or target), and for every edge, which
// cells it depends on. The two maps are kept as mutual inverses.
//
// # Basic Usage
//
// Allocate cells with [Quiver.NewVertex] and [Quiver.NewEdge], register them
// with [Quiver.Add] and attach edges with [Quiver.Connect]. The convenience
// methods [Quiver.AddVertex] and [Quiver.AddEdge] do both steps:
//
//	q := quiver.New()
//	a := q.AddVertex("A", geometry.Pt(0, 0))
//	b := q.AddVertex("B", geometry.Pt(1, 0))
//	f := q.AddEdge("f", a, b)
//	g := q.AddEdge("g", a, b)
//	q.AddEdge("α", f, g) // a 2-cell between f and g
//
// # Deletion and History
//
// [Quiver.Remove] does not erase anything. It tombstones the cell and every
// cell depending on it with a logical timestamp, typically an index into the
// host's edit history. A later [Quiver.Add] on the same handle restores the
// cell with its bookkeeping intact, which is all an undo operation needs.
// Once the host can no longer roll back to a point in history it calls
// [Quiver.Flush] with that timestamp to reclaim memory.
//
// # Levels
//
// Reconnecting an edge with [Quiver.Connect] recomputes the level of the
// edge and of every cell that transitively depends on it.
// [Quiver.TransitiveDependencies] returns cells in ascending level order,
// the order in which a renderer must draw them.
//
// # Concurrency
//
// Quiver instances are not safe for concurrent use. Parsing and editing are
// synchronous and run to completion.
package quiver
