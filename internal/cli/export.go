package cli

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/quiverkit/pkg/errors"
	qio "github.com/matzehuels/quiverkit/pkg/io"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// exportOpts holds the flags of the export command.
type exportOpts struct {
	output  string
	noCache bool
	export  exportFlags
}

// exportCommand creates the export command, which produces tikz-cd.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export [diagram.json|url|-]",
		Short: "Export a diagram to tikz-cd",
		Long: `Export a diagram to tikz-cd.

The diagram may be given as a file (or stdin) holding quiver's compact JSON
or a share URL, or as a share URL argument. Features tikz-cd cannot express
are reported; the LaTeX packages the output needs are listed.`,
		Example: `  quiverkit export square.json
  quiverkit export --centre 'https://q.uiver.app/#q=WzAsMl0='`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInput(diagramExts...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	opts.export.register(cmd)

	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, input string, opts *exportOpts) error {
	q, err := readDiagram(cmd, input)
	if err != nil {
		return err
	}

	popts := pipeline.Options{Formats: []string{pipeline.FormatTikZ}, Logger: c.Logger}
	opts.export.apply(cmd, c.Config, &popts)

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	rendered, hit, err := runner.RenderWithCacheInfo(cmd.Context(), q, popts)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	reportExport(*rendered)
	if err := writeOutput(cmd, opts.output, rendered.Artifacts[pipeline.FormatTikZ]); err != nil {
		return err
	}
	c.Logger.Debug("exported diagram", "cells", q.Len(), "cached", hit)
	return nil
}

// readDiagram loads a diagram from a share URL argument, or from a file (or
// stdin) holding compact JSON or a share URL. Malformed cells are skipped
// with a warning; anything else that fails to decode is an error.
func readDiagram(cmd *cobra.Command, input string) (*quiver.Quiver, error) {
	var (
		q   *quiver.Quiver
		err error
	)
	if looksLikeURL(input) {
		q, err = qio.DecodeURL(input)
	} else {
		var data []byte
		data, err = readInput(cmd, input)
		if err != nil {
			return nil, err
		}
		data = bytes.TrimSpace(data)
		if bytes.HasPrefix(data, []byte("[")) {
			q, err = qio.Decode(data)
		} else {
			q, err = qio.DecodeURL(string(data))
		}
	}

	var cellErr *errors.CellError
	if stderrors.As(err, &cellErr) && q != nil {
		printWarning("skipped malformed cells; first: %v", cellErr)
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", displayName(input), err)
	}
	return q, nil
}

func looksLikeURL(s string) bool {
	return strings.Contains(s, qio.ShareFragment) || strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
