package pipeline

import (
	"github.com/matzehuels/quiverkit/pkg/quiver"
	"github.com/matzehuels/quiverkit/pkg/tikzcd"
)

// Parsed is a diagram read from tikz-cd whose shortenings are still given
// in points.
type Parsed struct {
	Quiver *quiver.Quiver
	Result *tikzcd.Result
	Jobs   []tikzcd.ShorteningJob
}

// Parse reads opts.Source into a new quiver. It never fails: problems in
// the source are reported in the result's diagnostics.
func Parse(opts Options) *Parsed {
	q := quiver.New()
	res, jobs := tikzcd.Parse(opts.Source, q)
	if opts.Logger != nil {
		for _, d := range res.Diagnostics {
			opts.Logger.Debug("diagnostic",
				"severity", d.Severity,
				"fatal", d.Fatal,
				"start", d.Range.Start,
				"end", d.Range.End(),
				"message", d.Message.String())
		}
	}
	return &Parsed{Quiver: q, Result: res, Jobs: jobs}
}
