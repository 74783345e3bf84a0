package cli

import (
	"github.com/spf13/cobra"

	qio "github.com/matzehuels/quiverkit/pkg/io"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
)

// encodeCommand creates the encode command: compact JSON to share URL.
func (c *CLI) encodeCommand() *cobra.Command {
	var (
		output  string
		baseURL string
		bare    bool
	)

	cmd := &cobra.Command{
		Use:               "encode [diagram.json|-]",
		Short:             "Encode a diagram as a share URL",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInput(diagramExts...),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readDiagram(cmd, args[0])
			if err != nil {
				return err
			}
			var url string
			if bare {
				url, err = qio.EncodeURL(q)
			} else {
				if baseURL == "" {
					baseURL = c.Config.Export.BaseURL
				}
				url, err = qio.ShareURL(baseURL, q)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, []byte(url))
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "base of the share URL (default: "+pipeline.DefaultBaseURL+")")
	cmd.Flags().BoolVar(&bare, "bare", false, "print only the base64 payload")

	return cmd
}

// decodeCommand creates the decode command: share URL to compact JSON.
func (c *CLI) decodeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:               "decode [url|file|-]",
		Short:             "Decode a share URL to compact JSON",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInput(diagramExts...),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readDiagram(cmd, args[0])
			if err != nil {
				return err
			}
			data, err := qio.Marshal(q)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}
