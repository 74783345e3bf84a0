package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/quiverkit/pkg/io"
	"github.com/matzehuels/quiverkit/pkg/quiver"
	"github.com/matzehuels/quiverkit/pkg/render/nodelink"
	"github.com/matzehuels/quiverkit/pkg/tikzcd"
)

// Render generates output artifacts in the requested formats.
//
// Incompatibilities and dependencies are reported only when tikz-cd is
// among the formats.
func Render(ctx context.Context, q *quiver.Quiver, opts Options) (*Rendered, error) {
	out := &Rendered{Artifacts: make(map[string][]byte, len(opts.Formats))}

	var dot string
	for _, format := range opts.Formats {
		if _, done := out.Artifacts[format]; done {
			continue
		}

		var data []byte
		var err error

		switch format {
		case FormatTikZ:
			exported := tikzcd.Export(q, opts.ExportOptions())
			out.Incompatibilities = exported.Incompatibilities
			out.Dependencies = exported.Dependencies
			data = []byte(exported.Text)
		case FormatJSON:
			data, err = io.Marshal(q)
		case FormatURL:
			var url string
			url, err = io.ShareURL(opts.BaseURL, q)
			data = []byte(url)
		case FormatDOT, FormatSVG:
			if dot == "" {
				dot = nodelink.ToDOT(q, nodelink.Options{Detailed: opts.Detailed})
			}
			if format == FormatDOT {
				data = []byte(dot)
			} else {
				data, err = nodelink.RenderSVG(ctx, dot)
			}
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		out.Artifacts[format] = data
	}

	return out, nil
}
