package cli

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/quiverkit/pkg/diagnostic"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		interactive bool
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "inspect [file|url|-]",
		Short: "Summarise a diagram and its diagnostics",
		Long: `Summarise a diagram: its cells grouped by level and, for tikz-cd
sources, every diagnostic the import produced.

With --interactive, browse the diagnostics of a tikz-cd source together
with the text they point at.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInput(anyExts...),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, source, diags, err := c.loadForInspect(cmd, args[0], noCache)
			if err != nil {
				return err
			}
			if interactive {
				if source == "" {
					return fmt.Errorf("--interactive needs a tikz-cd source")
				}
				if len(diags) == 0 {
					printSuccess("No diagnostics")
					return nil
				}
				_, err := tea.NewProgram(newDiagnosticModel(displayName(args[0]), source, diags), tea.WithContext(cmd.Context())).Run()
				return err
			}
			writeSummary(cmd.OutOrStdout(), q)
			printDiagnostics(displayName(args[0]), source, diags)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse diagnostics interactively")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

// loadForInspect imports tikz-cd sources and decodes anything else. The
// source is empty for decoded diagrams.
func (c *CLI) loadForInspect(cmd *cobra.Command, input string, noCache bool) (*quiver.Quiver, string, diagnostic.List, error) {
	if looksLikeURL(input) {
		q, err := readDiagram(cmd, input)
		return q, "", nil, err
	}
	data, err := readInput(cmd, input)
	if err != nil {
		return nil, "", nil, err
	}
	if !bytes.Contains(data, []byte(`\begin`)) {
		cmd.SetIn(bytes.NewReader(data))
		q, err := readDiagram(cmd, "-")
		return q, "", nil, err
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return nil, "", nil, fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	source := string(data)
	imported, err := runner.Import(cmd.Context(), pipeline.Options{Source: source, CellSize: c.Config.Geometry.CellSize, Logger: c.Logger})
	if err != nil {
		return nil, "", nil, err
	}
	return imported.Quiver, source, imported.Diagnostics, nil
}

// writeSummary prints the size of a diagram and a table of its cells.
func writeSummary(w io.Writer, q *quiver.Quiver) {
	fmt.Fprintln(w, StyleTitle.Render("Diagram"))
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	kv := func(key, value string) {
		fmt.Fprintln(w, keyStyle.Render(key)+" "+StyleValue.Render(value))
	}
	kv("vertices", strconv.Itoa(len(q.Vertices())))
	kv("edges", strconv.Itoa(len(q.Edges())))
	kv("max level", strconv.Itoa(q.MaxLevel()))
	if lo, hi, ok := q.BoundingRect(); ok {
		kv("grid", fmt.Sprintf("%g×%g from (%g, %g)", hi.X-lo.X+1, hi.Y-lo.Y+1, lo.X, lo.Y))
	}
	if q.IsEmpty() {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, cellTable(q).Render())
}

// cellTable lists every live cell by level.
func cellTable(q *quiver.Quiver) *table.Table {
	var rows [][]string
	for level := 0; level <= q.MaxLevel(); level++ {
		for _, h := range q.CellsAtLevel(level) {
			c := q.Cell(h)
			label := c.Label
			if label == "" {
				label = "—"
			}
			if c.IsVertex() {
				rows = append(rows, []string{strconv.Itoa(int(h)), "0", label, fmt.Sprintf("(%g, %g)", c.Position.X, c.Position.Y), ""})
				continue
			}
			rows = append(rows, []string{
				strconv.Itoa(int(h)),
				strconv.Itoa(c.Level),
				label,
				fmt.Sprintf("%d → %d", c.Source, c.Target),
				c.Options.Style.Name,
			})
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Level", "Label", "Position / Ends", "Style").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle().Padding(0, 1)
			if col == 0 || col == 1 {
				return base.Foreground(colorDim)
			}
			return base
		})
}
