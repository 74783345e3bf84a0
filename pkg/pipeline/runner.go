package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/quiverkit/pkg/cache"
	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/io"
	"github.com/matzehuels/quiverkit/pkg/observability"
	"github.com/matzehuels/quiverkit/pkg/quiver"
)

// Cache key types reported to observability hooks.
const (
	keyTypeImport = "import"
	keyTypeExport = "export"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// ImportTTL and ExportTTL bound the lifetime of cached results.
	ImportTTL time.Duration
	ExportTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:     c,
		Keyer:     keyer,
		Logger:    logger,
		ImportTTL: cache.ImportTTL,
		ExportTTL: cache.ExportTTL,
	}
}

// Execute runs the complete parse → layout → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	// Stages 1 and 2: Parse and layout
	importStart := time.Now()
	imported, importHit, err := r.ImportWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}
	result.Imported = *imported
	result.Stats.ImportTime = time.Since(importStart)
	result.Stats.VertexCount = len(imported.Quiver.Vertices())
	result.Stats.EdgeCount = len(imported.Quiver.Edges())
	result.CacheInfo.ImportHit = importHit

	// Stage 3: Render
	renderStart := time.Now()
	rendered, renderHit, err := r.RenderWithCacheInfo(ctx, imported.Quiver, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Rendered = *rendered
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// ImportWithCacheInfo parses and lays out a tikz-cd diagram with caching and
// returns cache hit info.
//
// With opts.Strict, a source with any error diagnostics fails with
// [errors.ErrCodeParseFailed]; otherwise errors are only reported.
func (r *Runner) ImportWithCacheInfo(ctx context.Context, opts Options) (imported *Imported, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForImport(); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnImportStart(ctx, len(opts.Source))
	start := time.Now()
	defer func() {
		cells, diags := 0, 0
		if imported != nil {
			cells, diags = imported.Quiver.Len(), len(imported.Diagnostics)
		}
		hooks.OnImportComplete(ctx, cells, diags, time.Since(start), err)
	}()

	if cache.Disabled(r.Cache) {
		imported, err = Layout(Parse(opts), opts)
		if err != nil {
			return nil, false, err
		}
	} else {
		cacheKey := r.Keyer.ImportKey(opts.Source, opts.ImportKeyOpts())
		if !opts.Refresh {
			imported, hit = r.cachedImport(ctx, cacheKey)
		}
		if !hit {
			observability.Cache().OnCacheMiss(ctx, keyTypeImport)
			imported, err = Layout(Parse(opts), opts)
			if err != nil {
				return nil, false, err
			}
			r.store(ctx, cacheKey, keyTypeImport, imported, r.ImportTTL)
		}
	}

	r.Logger.Info("imported diagram",
		"cells", imported.Quiver.Len(),
		"diagnostics", len(imported.Diagnostics),
		"cached", hit)

	if opts.Strict && imported.Diagnostics.HasErrors() {
		first := imported.Diagnostics.Errors()[0]
		return nil, hit, errors.New(errors.ErrCodeParseFailed,
			"%d error(s) in source, first at %d: %s", len(imported.Diagnostics.Errors()), first.Range.Start, first.Message)
	}
	return imported, hit, nil
}

// Import is a convenience wrapper that calls ImportWithCacheInfo and discards the cache hit info.
func (r *Runner) Import(ctx context.Context, opts Options) (*Imported, error) {
	imported, _, err := r.ImportWithCacheInfo(ctx, opts)
	return imported, err
}

// cachedImport loads an import result. An entry that no longer decodes is
// treated as a miss.
func (r *Runner) cachedImport(ctx context.Context, key string) (*Imported, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	var entry Imported
	if err := json.Unmarshal(data, &entry); err != nil {
		r.Logger.Warn("discarding cached import", "key", key, "err", err)
		return nil, false
	}
	q, err := io.Decode(entry.Diagram)
	if err != nil {
		r.Logger.Warn("discarding cached import", "key", key, "err", err)
		return nil, false
	}
	entry.Quiver = q
	observability.Cache().OnCacheHit(ctx, keyTypeImport)
	return &entry, true
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, q *quiver.Quiver, opts Options) (rendered *Rendered, hit bool, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	formats := describe(opts.Formats)
	hooks := observability.Pipeline()
	hooks.OnExportStart(ctx, formats)
	start := time.Now()
	defer func() {
		incompatibilities := 0
		if rendered != nil {
			incompatibilities = len(rendered.Incompatibilities)
		}
		hooks.OnExportComplete(ctx, formats, incompatibilities, time.Since(start), err)
	}()

	if cache.Disabled(r.Cache) {
		rendered, err = Render(ctx, q, opts)
		if err != nil {
			return nil, false, err
		}
		return rendered, false, nil
	}

	// Compute cache key from the encoded diagram
	encoded, err := io.Marshal(q)
	if err != nil {
		return nil, false, fmt.Errorf("encode diagram for cache key: %w", err)
	}
	cacheKey := r.Keyer.ExportKey(string(encoded), opts.ExportKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached Rendered
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeExport)
				return &cached, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
	}
	observability.Cache().OnCacheMiss(ctx, keyTypeExport)

	rendered, err = Render(ctx, q, opts)
	if err != nil {
		return nil, false, err
	}
	r.store(ctx, cacheKey, keyTypeExport, rendered, r.ExportTTL)

	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, q *quiver.Quiver, opts Options) (*Rendered, error) {
	rendered, _, err := r.RenderWithCacheInfo(ctx, q, opts)
	return rendered, err
}

// ExportEncoded renders a diagram given in compact form. A diagram with
// any malformed cell is rejected rather than exported partially.
func (r *Runner) ExportEncoded(ctx context.Context, diagram []byte, opts Options) (*Rendered, error) {
	q, err := io.Decode(diagram)
	if err != nil {
		if q != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidCell, err, "invalid diagram")
		}
		return nil, err
	}
	return r.Render(ctx, q, opts)
}

// store serializes v into the cache. Failures only cost a recomputation
// later, so they are logged and otherwise ignored.
func (r *Runner) store(ctx context.Context, key, keyType string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		r.Logger.Warn("cannot serialize cache entry", "key", key, "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
