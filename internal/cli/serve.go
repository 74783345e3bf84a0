package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/quiverkit/internal/server"
	"github.com/matzehuels/quiverkit/pkg/cache"
	"github.com/matzehuels/quiverkit/pkg/config"
	"github.com/matzehuels/quiverkit/pkg/observability"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
	"github.com/matzehuels/quiverkit/pkg/store"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr  string
		hooks bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API for importing, exporting and sharing diagrams.

Backends come from the [server] section of the config file: results are
cached in Redis when redis_url is set, and saved diagrams are kept in
MongoDB (mongo_uri), in a directory (data_dir) or in memory.`,
		Example: `  quiverkit serve
  quiverkit serve --addr :9000 --hooks`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config.Server
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if hooks {
				observability.SetPipelineHooks(observability.NewLogHooks(c.Logger))
				observability.SetCacheHooks(observability.NewLogHooks(c.Logger))
				observability.SetRequestHooks(observability.NewLogHooks(c.Logger))
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&hooks, "hooks", false, "log pipeline, cache and request events at debug level")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Server) error {
	ch, err := c.serverCache(ctx, cfg)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(ch, cache.NewScopedKeyer(cache.NewDefaultKeyer(), "server"), c.Logger)
	runner.ImportTTL = cfg.CacheTTL
	runner.ExportTTL = min(cfg.CacheTTL, cache.ExportTTL)

	st, err := c.serverStore(ctx, cfg)
	if err != nil {
		runner.Close()
		return err
	}

	exp := c.Config.Export
	srv := server.New(server.Options{
		Addr:   cfg.Addr,
		Runner: runner,
		Store:  st,
		Defaults: pipeline.Options{
			CellSize:             c.Config.Geometry.CellSize,
			AmpersandReplacement: exp.AmpersandReplacement,
			Centre:               exp.Centre,
			Cramped:              exp.Cramped,
			Sep:                  exp.Sep,
			BaseURL:              exp.BaseURL,
		},
		DiagramTTL: cfg.DiagramTTL,
		Logger:     c.Logger,
	})
	defer srv.Close()

	printInfo("Serving on %s", StyleLink.Render("http://localhost"+cfg.Addr))
	printNextStep("Try", fmt.Sprintf(`curl -d '{"source": "\\begin{tikzcd} A \\arrow[r] & B \\end{tikzcd}"}' localhost%s/v1/import`, cfg.Addr))
	return srv.Run(ctx)
}

// serverCache picks Redis when configured and no cache otherwise; the
// local file cache is per user and not shared between instances.
func (c *CLI) serverCache(ctx context.Context, cfg config.Server) (cache.Cache, error) {
	if cfg.RedisURL == "" || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.Logger.Debug("using redis cache", "url", cfg.RedisURL)
	return rc, nil
}

// serverStore picks MongoDB, then a data directory, then memory.
func (c *CLI) serverStore(ctx context.Context, cfg config.Server) (store.Store, error) {
	switch {
	case cfg.MongoURI != "":
		s, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("using mongo store", "database", cfg.MongoDatabase)
		return s, nil
	case cfg.DataDir != "":
		s, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open data dir: %w", err)
		}
		c.Logger.Debug("using file store", "dir", s.Path())
		return s, nil
	}
	printWarning("Saved diagrams are kept in memory and lost on exit")
	return store.NewMemoryStore(), nil
}
