// Package nodelink renders the level structure of a quiver as a node-link
// diagram.
//
// # Overview
//
// A commutative diagram is drawn on a grid, which hides how its cells
// depend on each other: a 2-cell is an arrow between arrows, a 3-cell an
// arrow between those. This package draws that dependency graph
// explicitly with Graphviz, one rank per level, which is useful when
// debugging imports of diagrams with higher cells.
//
// # Usage
//
// Convert a quiver to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(q, nodelink.Options{Detailed: false})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: When true, labels include the level and the grid position
//     or arrow style
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//
// Vertices are rounded boxes; edge cells are ellipses shaded by level,
// dashed when the arrow itself is not drawn (phantoms, adjunctions and
// corners).
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
