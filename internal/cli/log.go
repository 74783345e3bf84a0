// Package cli implements the quiverkit command-line interface.
//
// This package provides commands for importing tikz-cd diagrams into
// quiver's compact format, exporting them back, converting between share
// URLs and JSON, drawing the level structure with Graphviz, and serving
// the conversions over HTTP. The CLI is built using cobra and logs through
// the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - import: Parse tikz-cd into compact JSON, a share URL or DOT
//   - export: Convert compact JSON or a share URL to tikz-cd
//   - encode/decode: Convert between compact JSON and share URLs
//   - dot: Draw the cells of a diagram ranked by level
//   - inspect: Summarise a diagram and browse its diagnostics
//   - serve: Run the HTTP API
//   - cache: Manage the local result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Diagnostics
// and status lines go to stderr so that stdout carries only the converted
// diagram.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
// The returned progress should call done when the operation completes.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// The duration is rounded to the nearest millisecond.
// Example output: "Imported 12 cells (3ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}
