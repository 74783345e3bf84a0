package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/io"
)

// =============================================================================
// Layout
// =============================================================================

// Layout settles a parsed diagram: shortenings given in points become
// percentages of each arrow's length on the grid described by opts, and the
// quiver is encoded in compact form.
//
// Shortening conversion may add warnings, so the diagnostics are sorted
// only once it has run.
func Layout(p *Parsed, opts Options) (*Imported, error) {
	p.Result.Finalize(p.Quiver, p.Jobs, opts.Metric())

	data, err := io.Marshal(p.Quiver)
	if err != nil {
		return nil, fmt.Errorf("encode diagram: %w", err)
	}
	diags := p.Result.Diagnostics.Sorted()
	if diags == nil {
		diags = diagnostic.List{}
	}
	return &Imported{
		Quiver:      p.Quiver,
		Diagram:     json.RawMessage(data),
		Diagnostics: diags,
		Settings:    p.Result.Settings,
	}, nil
}
