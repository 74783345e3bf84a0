package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/quiverkit/pkg/cache"
	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/observability"
)

const square = `\begin{tikzcd} A \arrow[r, "f"] & B \end{tikzcd}`

func newRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	require.NoError(t, err)
	r := NewRunner(c, nil, log.NewWithOptions(&strings.Builder{}, log.Options{}))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"tikz-cd", false},
		{"json", false},
		{"url", false},
		{"dot", false},
		{"svg", false},
		{"png", true},
		{"JSON", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errors.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"tikz-cd", "json"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"json", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsValidateForImport(t *testing.T) {
	opts := Options{}
	assert.True(t, errors.Is(opts.ValidateForImport(), errors.ErrCodeInvalidInput), "missing source")

	opts = Options{Source: square, CellSize: -1}
	assert.Error(t, opts.ValidateForImport(), "negative cell size")

	opts = Options{Source: strings.Repeat("x", MaxSourceBytes+1)}
	assert.Error(t, opts.ValidateForImport(), "oversized source")

	opts = Options{Source: square}
	require.NoError(t, opts.ValidateForImport())
	assert.Equal(t, float64(DefaultCellSize), opts.CellSize)
	assert.NotNil(t, opts.Logger)
}

func TestOptionsValidateForRender(t *testing.T) {
	opts := Options{}
	require.NoError(t, opts.ValidateForRender())
	assert.Equal(t, []string{FormatTikZ}, opts.Formats)
	assert.Equal(t, DefaultBaseURL, opts.BaseURL)

	opts = Options{Formats: []string{"pdf"}}
	assert.Error(t, opts.ValidateForRender())
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Source: square}

	// First call
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}

	originalCellSize := opts.CellSize
	originalFormats := opts.Formats

	// Second call should be idempotent
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}

	assert.Equal(t, originalCellSize, opts.CellSize)
	assert.Equal(t, originalFormats, opts.Formats)
}

func TestExportKeyOptsNormalizesFormats(t *testing.T) {
	a := Options{Formats: []string{FormatJSON, FormatTikZ, FormatJSON}}
	b := Options{Formats: []string{FormatTikZ, FormatJSON}}
	assert.Equal(t, a.ExportKeyOpts(), b.ExportKeyOpts())
	assert.Equal(t, []string{FormatJSON, FormatTikZ}, a.ExportKeyOpts().Formats)
	assert.Equal(t, []string{FormatJSON, FormatTikZ, FormatJSON}, a.Formats, "options are not modified")
}

func TestExecute(t *testing.T) {
	r := newRunner(t)
	result, err := r.Execute(context.Background(), Options{
		Source:  square,
		Formats: []string{FormatTikZ, FormatJSON, FormatURL, FormatDOT},
	})
	require.NoError(t, err)

	assert.Equal(t, "\\begin{tikzcd}\n\t{A} & {B}\n\t\\arrow[\"f\", from=1-1, to=1-2]\n\\end{tikzcd}",
		string(result.Artifacts[FormatTikZ]))
	assert.JSONEq(t, `[0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"]]`, string(result.Artifacts[FormatJSON]))
	assert.JSONEq(t, string(result.Diagram), string(result.Artifacts[FormatJSON]))
	assert.True(t, strings.HasPrefix(string(result.Artifacts[FormatURL]), DefaultBaseURL+"#q="))
	assert.Contains(t, string(result.Artifacts[FormatDOT]), "digraph G {")

	assert.Empty(t, result.Diagnostics)
	assert.NotNil(t, result.Diagnostics, "diagnostics encode as an empty list")
	assert.Empty(t, result.Incompatibilities)
	assert.Equal(t, 2, result.Stats.VertexCount)
	assert.Equal(t, 1, result.Stats.EdgeCount)
	assert.False(t, result.CacheInfo.ImportHit)
	assert.False(t, result.CacheInfo.RenderHit)
}

func TestExecuteInvalidOptions(t *testing.T) {
	r := newRunner(t)
	_, err := r.Execute(context.Background(), Options{Source: square, Formats: []string{"gif"}})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestImportCaching(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	opts := Options{Source: `\begin{tikzcd} A \arrow[r, bend left] & B \arrow[x] \end{tikzcd}`}

	first, hit, err := r.ImportWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first.Diagnostics, 1)

	second, hit, err := r.ImportWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.JSONEq(t, string(first.Diagram), string(second.Diagram))
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	assert.Equal(t, first.Quiver.Len(), second.Quiver.Len())

	opts.Refresh = true
	_, hit, err = r.ImportWithCacheInfo(ctx, opts)
	require.NoError(t, err)
	assert.False(t, hit, "refresh bypasses the cache")
}

func TestImportCellSize(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	src := `\begin{tikzcd} A \arrow[r, shorten <=6pt] & B \end{tikzcd}`

	small, err := r.Import(ctx, Options{Source: src})
	require.NoError(t, err)
	large, err := r.Import(ctx, Options{Source: src, CellSize: 120})
	require.NoError(t, err)

	shorten := func(imp *Imported) float64 {
		return imp.Quiver.Cell(imp.Quiver.Edges()[0]).Options.Shorten.Source
	}
	assert.InDelta(t, 10, shorten(small), 1e-9)
	assert.InDelta(t, 5, shorten(large), 1e-9)
}

func TestImportStrict(t *testing.T) {
	r := newRunner(t)
	src := `\begin{tikzcd} A \arrow[r] & B`

	imported, err := r.Import(context.Background(), Options{Source: src})
	require.NoError(t, err)
	assert.True(t, imported.Diagnostics.HasFatal())
	assert.Equal(t, 3, imported.Quiver.Len())

	_, err = r.Import(context.Background(), Options{Source: src, Strict: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeParseFailed))
}

func TestRenderCaching(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	imported, err := r.Import(ctx, Options{Source: square})
	require.NoError(t, err)

	opts := Options{Formats: []string{FormatTikZ, FormatJSON}}
	first, hit, err := r.RenderWithCacheInfo(ctx, imported.Quiver, opts)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := r.RenderWithCacheInfo(ctx, imported.Quiver, opts)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Artifacts, second.Artifacts)

	opts.Centre = true
	third, hit, err := r.RenderWithCacheInfo(ctx, imported.Quiver, opts)
	require.NoError(t, err)
	assert.False(t, hit, "export options are part of the key")
	assert.True(t, strings.HasPrefix(string(third.Artifacts[FormatTikZ]), `\[`))
}

func TestRenderReportsIncompatibilities(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	imported, err := r.Import(ctx, Options{Source: `\begin{tikzcd} A \arrow[loop] \end{tikzcd}`})
	require.NoError(t, err)

	rendered, err := r.Render(ctx, imported.Quiver, Options{Formats: []string{FormatDOT}})
	require.NoError(t, err)
	assert.Empty(t, rendered.Incompatibilities, "only reported for tikz-cd")

	rendered, err = r.Render(ctx, imported.Quiver, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"loops"}, rendered.Incompatibilities)
}

func TestExportEncoded(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()

	rendered, err := r.ExportEncoded(ctx, []byte(`[0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"]]`), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(rendered.Artifacts[FormatTikZ]), `\arrow["f", from=1-1, to=1-2]`)

	_, err = r.ExportEncoded(ctx, []byte(`[0,1,[0,0,"A"],[0,7]]`), Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidCell))

	_, err = r.ExportEncoded(ctx, []byte(`[1,0]`), Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidVersion))

	_, err = r.ExportEncoded(ctx, []byte(`{`), Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
}

func (h *recordingHooks) OnImportStart(context.Context, int) { h.record("import-start") }

func (h *recordingHooks) OnImportComplete(_ context.Context, _, _ int, _ time.Duration, err error) {
	if err != nil {
		h.record("import-failed")
		return
	}
	h.record("import-complete")
}

func (h *recordingHooks) OnExportStart(_ context.Context, format string) {
	h.record("export-start " + format)
}

func TestRunnerHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	t.Cleanup(observability.Reset)

	r := newRunner(t)
	_, err := r.Execute(context.Background(), Options{Source: square, Formats: []string{FormatTikZ, FormatDOT}})
	require.NoError(t, err)
	_, err = r.Import(context.Background(), Options{Source: `\begin{tikzcd} A`, Strict: true})
	require.Error(t, err)

	assert.Equal(t, []string{
		"import-start", "import-complete", "export-start tikz-cd,dot",
		"import-start", "import-failed",
	}, hooks.events)
}

type countingKeyer struct {
	cache.Keyer
	calls int
}

func (k *countingKeyer) ImportKey(source string, opts cache.ImportKeyOpts) string {
	k.calls++
	return k.Keyer.ImportKey(source, opts)
}

func (k *countingKeyer) ExportKey(encoded string, opts cache.ExportKeyOpts) string {
	k.calls++
	return k.Keyer.ExportKey(encoded, opts)
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	misses int
}

func (h *countingCacheHooks) OnCacheMiss(context.Context, string) { h.misses++ }

func TestDisabledCacheSkipsKeys(t *testing.T) {
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	keyer := &countingKeyer{Keyer: cache.NewDefaultKeyer()}
	r := NewRunner(cache.NewNullCache(), keyer, log.NewWithOptions(&strings.Builder{}, log.Options{}))
	result, err := r.Execute(context.Background(), Options{Source: square, Formats: []string{FormatTikZ}})
	require.NoError(t, err)
	assert.False(t, result.CacheInfo.ImportHit)
	assert.False(t, result.CacheInfo.RenderHit)
	assert.Contains(t, string(result.Artifacts[FormatTikZ]), `\arrow`)

	assert.Zero(t, keyer.calls)
	assert.Zero(t, hooks.misses)
}
