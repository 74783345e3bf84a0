// Package pipeline provides the import and export pipeline for quiverkit.
//
// This package implements the complete parse → layout → render pipeline that
// is used by both the CLI and the HTTP server. By centralizing this logic,
// both entry points report the same diagnostics and produce the same output.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: Read tikz-cd source into a quiver, collecting diagnostics
//  2. Layout: Settle the geometry and convert absolute arrow shortenings
//     into percentages of each arrow's length
//  3. Render: Generate output in various formats (tikz-cd, compact JSON,
//     share URL, DOT, SVG)
//
// Parse and layout together form the import; its result is the compact
// encoding of the diagram plus its diagnostics. Render can also start from
// a compact encoding, which is how the server exports stored diagrams.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Source:  source,
//	    Formats: []string{pipeline.FormatTikZ},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(string(result.Artifacts[pipeline.FormatTikZ]))
//
// Run individual stages:
//
//	// Import only
//	imported, err := runner.Import(ctx, opts)
//
//	// Render an encoded diagram
//	rendered, err := runner.Render(ctx, diagram, opts)
package pipeline

import (
	"encoding/json"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/quiverkit/pkg/cache"
	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/geometry"
	"github.com/matzehuels/quiverkit/pkg/quiver"
	"github.com/matzehuels/quiverkit/pkg/tikzcd"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultCellSize is the distance between grid cells in points, used to
	// convert shortenings given in points.
	DefaultCellSize = geometry.DefaultCellSize

	// DefaultBaseURL prefixes share URLs.
	DefaultBaseURL = "https://q.uiver.app/"

	// MaxSourceBytes bounds the size of an imported diagram.
	MaxSourceBytes = 1 << 20
)

// Format constants for output formats.
const (
	FormatTikZ = "tikz-cd"
	FormatJSON = "json"
	FormatURL  = "url"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatTikZ: true,
	FormatJSON: true,
	FormatURL:  true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Import options
	Source   string  `json:"source,omitempty"`
	CellSize float64 `json:"cell_size,omitempty"`
	Strict   bool    `json:"strict,omitempty"` // Fail when the source has errors
	Refresh  bool    `json:"refresh,omitempty"`

	// Render options
	Formats              []string `json:"formats,omitempty"`
	AmpersandReplacement bool     `json:"ampersand_replacement,omitempty"`
	Centre               bool     `json:"centre,omitempty"`
	Cramped              bool     `json:"cramped,omitempty"`
	Sep                  string   `json:"sep,omitempty"`
	BaseURL              string   `json:"base_url,omitempty"`
	Detailed             bool     `json:"detailed,omitempty"` // Detailed DOT labels

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// Imported is the result of the parse and layout stages.
type Imported struct {
	// Quiver is the imported diagram.
	Quiver *quiver.Quiver `json:"-"`

	// Diagram is the compact encoding of Quiver.
	Diagram json.RawMessage `json:"diagram"`

	// Diagnostics are the warnings and errors found in the source, ordered
	// by position.
	Diagnostics diagnostic.List `json:"diagnostics"`

	// Settings are the diagram-wide options found in the source.
	Settings tikzcd.Settings `json:"settings"`
}

// Rendered is the result of the render stage.
type Rendered struct {
	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte `json:"artifacts"`

	// Incompatibilities lists what the tikz-cd output could not express.
	Incompatibilities []string `json:"incompatibilities,omitempty"`

	// Dependencies lists the LaTeX packages the tikz-cd output needs.
	Dependencies []string `json:"dependencies,omitempty"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Imported
	Rendered

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	VertexCount int
	EdgeCount   int
	ImportTime  time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	ImportHit bool // Whether the import came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: tikz-cd, json, url, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForImport(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForImport checks required fields for importing.
func (o *Options) ValidateForImport() error {
	if o.Source == "" {
		return errors.New(errors.ErrCodeInvalidInput, "source is required")
	}
	if len(o.Source) > MaxSourceBytes {
		return errors.New(errors.ErrCodeInvalidInput, "source too large (max %d bytes)", MaxSourceBytes)
	}
	if o.CellSize < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "cell_size must be positive, got %v", o.CellSize)
	}
	if o.CellSize == 0 {
		o.CellSize = DefaultCellSize
	}
	o.setLogger()
	return nil
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatTikZ}
	}
	if o.CellSize == 0 {
		o.CellSize = DefaultCellSize
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.setLogger()
	return ValidateFormats(o.Formats)
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Metric returns the grid used to measure arrows.
func (o *Options) Metric() geometry.Metric {
	return geometry.Grid{CellSize: o.CellSize, CurveStep: geometry.DefaultCurveStep}
}

// ExportOptions returns the tikz-cd export options.
func (o *Options) ExportOptions() tikzcd.ExportOptions {
	return tikzcd.ExportOptions{
		AmpersandReplacement: o.AmpersandReplacement,
		Centre:               o.Centre,
		Cramped:              o.Cramped,
		Sep:                  o.Sep,
		Metric:               o.Metric(),
	}
}

// ImportKeyOpts returns cache key options for importing.
func (o *Options) ImportKeyOpts() cache.ImportKeyOpts {
	return cache.ImportKeyOpts{CellSize: o.CellSize}
}

// ExportKeyOpts returns cache key options for rendering.
func (o *Options) ExportKeyOpts() cache.ExportKeyOpts {
	formats := slices.Clone(o.Formats)
	slices.Sort(formats)
	return cache.ExportKeyOpts{
		Formats:              slices.Compact(formats),
		AmpersandReplacement: o.AmpersandReplacement,
		Centre:               o.Centre,
		Cramped:              o.Cramped,
		Sep:                  o.Sep,
		CellSize:             o.CellSize,
		BaseURL:              o.BaseURL,
		Detailed:             o.Detailed,
	}
}

// describe joins formats for observability hooks.
func describe(formats []string) string {
	return strings.Join(formats, ",")
}
