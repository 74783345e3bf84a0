package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/quiverkit/pkg/pipeline"
)

// dotCommand creates the dot command, which draws the level structure.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "dot [diagram.json|url|-]",
		Short: "Draw the cells of a diagram ranked by level",
		Long: `Draw the cells of a diagram as a node-link graph, one rank per level:
vertices first, then arrows between them, then arrows between arrows.

The output is Graphviz DOT source, or SVG rendered in-process with -f svg.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInput(diagramExts...),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != pipeline.FormatDOT && format != pipeline.FormatSVG {
				return fmt.Errorf("invalid format: %s (must be 'dot' or 'svg')", format)
			}
			q, err := readDiagram(cmd, args[0])
			if err != nil {
				return err
			}

			runner, err := c.newRunner(noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			ctx := cmd.Context()
			opts := pipeline.Options{Formats: []string{format}, Detailed: detailed, Logger: c.Logger}
			rendered, err := spin(ctx, "Rendering...", "Rendering failed", func() (*pipeline.Rendered, error) {
				return runner.Render(ctx, q, opts)
			})
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, rendered.Artifacts[format])
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.FormatDOT, "output format: dot, svg")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "label cells with level and position or style")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}
