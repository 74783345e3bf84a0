package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/quiverkit/pkg/buildinfo"
	"github.com/matzehuels/quiverkit/pkg/cache"
	"github.com/matzehuels/quiverkit/pkg/config"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "quiverkit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "quiverkit converts commutative diagrams between tikz-cd and quiver",
		Long: `quiverkit imports tikz-cd diagrams into quiver's compact format, exports
them back to tikz-cd, and serves both conversions over HTTP.

Diagnostics point at the offending source text; import is best effort and
keeps everything it could make sense of.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/quiverkit/config.toml)")

	// Register all subcommands
	root.AddCommand(c.importCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.encodeCommand())
	root.AddCommand(c.decodeCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg
	c.Logger.Debug("loaded config", "path", c.configPath, "cell_size", cfg.Geometry.CellSize)
	return nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(noCache || c.Config.Cache.Disabled)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, falling back to the XDG
// standard (~/.cache/quiverkit/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// exportFlags holds the tikz-cd export flags. Flags the user did not set
// fall back to the config file, which is only loaded once the command runs.
type exportFlags struct {
	ampersandReplacement bool
	centre               bool
	cramped              bool
	sep                  string
	baseURL              string
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.ampersandReplacement, "ampersand-replacement", false, `use \& as the column separator`)
	cmd.Flags().BoolVar(&f.centre, "centre", false, `wrap the diagram in \[ \]`)
	cmd.Flags().BoolVar(&f.cramped, "cramped", false, "use the cramped diagram option")
	cmd.Flags().StringVar(&f.sep, "sep", "", "diagram sep option (e.g. 2em)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "base of share URLs (default: "+config.DefaultBaseURL+")")
}

// apply copies the flags into opts, taking unset flags from cfg.
func (f *exportFlags) apply(cmd *cobra.Command, cfg config.Config, opts *pipeline.Options) {
	pick := func(name string, flag, fromConfig bool) bool {
		if cmd.Flags().Changed(name) {
			return flag
		}
		return fromConfig
	}
	opts.AmpersandReplacement = pick("ampersand-replacement", f.ampersandReplacement, cfg.Export.AmpersandReplacement)
	opts.Centre = pick("centre", f.centre, cfg.Export.Centre)
	opts.Cramped = pick("cramped", f.cramped, cfg.Export.Cramped)
	opts.Sep = cfg.Export.Sep
	if cmd.Flags().Changed("sep") {
		opts.Sep = f.sep
	}
	opts.BaseURL = cfg.Export.BaseURL
	if f.baseURL != "" {
		opts.BaseURL = f.baseURL
	}
	opts.CellSize = cfg.Geometry.CellSize
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s, fallback string) []string {
	if s == "" {
		return []string{fallback}
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

// =============================================================================
// Input and Output
// =============================================================================

// readInput reads a file, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, or to the command's output when path is
// empty or "-". Text output gets a trailing newline.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		out := cmd.OutOrStdout()
		if _, err := out.Write(data); err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			_, err := io.WriteString(out, "\n")
			return err
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printFile(path)
	return nil
}
