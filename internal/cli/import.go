package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
)

// importOpts holds the flags of the import command.
type importOpts struct {
	output   string
	formats  string
	strict   bool
	noCache  bool
	refresh  bool
	cellSize float64
	quiet    bool
	export   exportFlags
}

// importCommand creates the import command, which parses tikz-cd.
func (c *CLI) importCommand() *cobra.Command {
	var opts importOpts

	cmd := &cobra.Command{
		Use:   "import [file.tex|-]",
		Short: "Import a tikz-cd diagram",
		Long: `Import a tikz-cd diagram into quiver's compact JSON format.

The source may be wrapped in \[ \] and may contain anything tikz-cd accepts;
unsupported options are reported as diagnostics and skipped. Every
diagnostic is printed with the line it refers to.

Use -f to produce other formats from the same import: json (default),
url, tikz-cd (normalised), dot or svg.

Results are cached locally for faster subsequent runs.`,
		Example: `  quiverkit import square.tex
  quiverkit import -f url square.tex
  pbpaste | quiverkit import -`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInput(sourceExts...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runImport(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple); default stdout")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): json (default), url, tikz-cd, dot, svg (comma-separated)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail if the source has errors")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().Float64Var(&opts.cellSize, "cell-size", 0, "grid cell size in pt, for shortenings (default from config, 60)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print diagnostics")
	opts.export.register(cmd)

	return cmd
}

// runImport reads the source, runs the pipeline and writes its artifacts.
func (c *CLI) runImport(cmd *cobra.Command, input string, opts *importOpts) error {
	ctx := cmd.Context()
	source, err := readInput(cmd, input)
	if err != nil {
		return err
	}

	popts := pipeline.Options{
		Source:  string(source),
		Strict:  opts.strict,
		Refresh: opts.refresh,
		Formats: parseFormats(opts.formats, pipeline.FormatJSON),
		Logger:  c.Logger,
	}
	opts.export.apply(cmd, c.Config, &popts)
	if opts.cellSize != 0 {
		popts.CellSize = opts.cellSize
	}
	if err := pipeline.ValidateFormats(popts.Formats); err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	result, err := spin(ctx, "Importing...", "Import failed", func() (*pipeline.Result, error) {
		return runner.Execute(ctx, popts)
	})
	if err != nil {
		// Strict imports fail without a result; the lenient import is cached.
		if errors.Is(err, errors.ErrCodeParseFailed) && !opts.quiet {
			popts.Strict = false
			if imported, ierr := runner.Import(ctx, popts); ierr == nil {
				printDiagnostics(displayName(input), popts.Source, imported.Diagnostics)
			}
		}
		return err
	}
	prog.done(fmt.Sprintf("Imported %d cells", result.Quiver.Len()))

	if !opts.quiet {
		printDiagnostics(displayName(input), popts.Source, result.Diagnostics)
		reportExport(result.Rendered)
	}

	if err := writeArtifacts(cmd, result.Artifacts, popts.Formats, opts.output); err != nil {
		return err
	}
	printStats(result.Stats.VertexCount, result.Stats.EdgeCount, len(result.Diagnostics), result.CacheInfo.ImportHit)
	return nil
}

// displayName names the input in diagnostics.
func displayName(input string) string {
	if input == "-" {
		return "<stdin>"
	}
	return input
}

// reportExport prints what the tikz-cd output could not express and the
// packages it needs.
func reportExport(r pipeline.Rendered) {
	for _, what := range r.Incompatibilities {
		printWarning("tikz-cd cannot express %s; they were approximated or dropped", what)
	}
	if len(r.Dependencies) > 0 {
		printInfo("requires the LaTeX package(s): %s", strings.Join(r.Dependencies, ", "))
	}
}

// formatExtensions maps formats to file extensions for multi-format output.
var formatExtensions = map[string]string{
	pipeline.FormatTikZ: ".tex",
	pipeline.FormatJSON: ".json",
	pipeline.FormatURL:  ".url",
	pipeline.FormatDOT:  ".dot",
	pipeline.FormatSVG:  ".svg",
}

// writeArtifacts writes a single artifact to output (or stdout), or every
// artifact to output with a per-format extension.
func writeArtifacts(cmd *cobra.Command, artifacts map[string][]byte, formats []string, output string) error {
	if len(formats) == 1 {
		return writeOutput(cmd, output, artifacts[formats[0]])
	}
	if output == "" || output == "-" {
		return fmt.Errorf("multiple formats need --output as a base path")
	}
	base := strings.TrimSuffix(output, filepath.Ext(output))
	for _, format := range formats {
		if err := writeOutput(cmd, base+formatExtensions[format], artifacts[format]); err != nil {
			return err
		}
	}
	return nil
}
