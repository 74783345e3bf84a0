// Package io provides the compact JSON encoding of quiver diagrams.
//
// # Overview
//
// The compact form is the canonical interchange format for a diagram. It is
// designed for:
//
//   - Share URLs, where every byte counts
//   - Storage of saved diagrams and cached import results
//   - Round-trip preservation: decode, re-encode and get identical output
//
// # Compact Format
//
// A diagram is a single JSON array:
//
//	[version, vertex_count, ...vertices, ...edges]
//
// The version is always 0. The first vertex_count cells are vertices, the
// remaining ones edges:
//
//	[0, 2, [0, 0, "A"], [1, 0, "B"], [0, 1, "f", 0, {"curve": 2}]]
//
// # Vertex Fields
//
// In order:
//   - x, y: Integer grid position
//   - label: String (optional, default "")
//   - label_colour: [h, s, l, a] (optional, default black)
//
// # Edge Fields
//
// In order:
//   - source, target: Index of an earlier cell, counting vertices first
//   - label: String (optional, default "")
//   - alignment: 0, 1, 2 or 3 for left, centre, right or over (optional)
//   - options: Object holding only the options that differ from the
//     defaults for the edge's level (optional)
//   - label_colour: [h, s, l, a] (optional, default black)
//
// Optional fields are omitted only from the end: a default value that is
// followed by a non-default one is written out.
//
// # Options
//
// The options object may contain label_position, offset, curve, shorten
// ({source, target} percentages), level, edge_alignment ({source, target}
// booleans), colour and style ({name, tail, body, head}, each component
// {name, side}). Nested objects are themselves diffs, so changing only the
// arrow head writes {"style": {"head": {"name": "epi"}}}.
//
// Two legacy fields are still read: "length" becomes a symmetric shorten
// when no "shorten" is present, and "style.level" takes precedence over
// "level".
//
// # Import
//
// Use [Decode] for a byte slice, [ReadJSON] for any io.Reader,
// [ImportJSON] for a file path and [DecodeURL] for a share URL:
//
//	q, err := io.ImportJSON("diagram.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Decoding validates every field. A malformed cell does not abort the
// import: it is skipped, decoding continues, and the first failure is
// reported as an [errors.CellError] once all cells have been attempted.
//
// # Export
//
// Use [Encode] for the raw array, [Marshal] for JSON bytes, [WriteJSON] and
// [ExportJSON] for writers and files, and [EncodeURL] or [ShareURL] for
// links:
//
//	link, err := io.ShareURL("https://q.uiver.app/", q)
//
// Export translates the diagram so that its top-left vertex sits at (0, 0)
// and drops tombstoned cells.
//
// # Concurrency
//
// Encoding only reads the quiver and may run concurrently with other
// readers, but not with modifications. Decoding always builds a fresh
// quiver.
package io
