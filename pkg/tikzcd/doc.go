// Package tikzcd reads and writes commutative diagrams in the tikz-cd LaTeX
// syntax.
//
// # Parsing
//
// [Parse] is a recursive-descent parser that recovers from errors instead of
// stopping at the first one. Each entry of an option list is parsed on its
// own: a malformed or unknown option is reported as a diagnostic and parsing
// resumes at the next comma or closing bracket. Only structural problems
// (a missing \begin{tikzcd} or \end{tikzcd}, or text after the diagram) end
// the parse, and even then the cells built so far are kept:
//
//	q := quiver.New()
//	res, jobs := tikzcd.Parse(src, q)
//	res.Finalize(q, jobs, geometry.DefaultGrid())
//	for _, d := range res.Diagnostics {
//	    fmt.Println(d)
//	}
//
// Cells are built through the [Builder] interface, which *quiver.Quiver
// implements. Vertices are created as they are read. Arrows are recorded and
// only turned into edges once the whole diagram has been read, because
// from= and to= may name arrows that appear later. Endpoints that refer to an
// empty grid position get an empty vertex.
//
// # Edges between edges
//
// tikz-cd draws an arrow between arrows by naming a label on each endpoint
// arrow and using those names in from= and to=. An endpoint named like "0p"
// that refers to an invisible phantom copy of arrow "0" attaches to the
// label of arrow 0 rather than its body; the parser connects to arrow 0
// directly, records the attachment in [quiver.EdgeAlignment] and drops the
// phantom copy.
//
// # Shortening
//
// tikz-cd gives arrow shortenings in points, but edges store them as
// percentages of the arrow's length, which depends on layout. Parse returns
// them as [ShorteningJob]s for [Result.Finalize] to convert once a
// [geometry.Metric] is available.
//
// # Export
//
// [Export] is best effort: it reports features tikz-cd cannot express in
// [Output.Incompatibilities] and the LaTeX packages it relies on in
// [Output.Dependencies]. Text produced by Export parses back into the same
// diagram.
package tikzcd
