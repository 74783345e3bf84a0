package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/quiverkit/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := New(os.Stderr, LogInfo).cacheDir()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".cache", appName), dir)
}

func TestCacheDirXDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", xdg)

	dir, err := New(os.Stderr, LogInfo).cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(xdg, appName), dir)
}

func TestCacheDirFromConfig(t *testing.T) {
	c := New(os.Stderr, LogInfo)
	c.Config.Cache.Dir = "/srv/quiverkit-cache"

	dir, err := c.cacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/srv/quiverkit-cache", dir)
}

func TestCacheCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	fc, err := cache.NewFileCache(filepath.Join(dir, appName))
	require.NoError(t, err)
	require.NoError(t, fc.Set(context.Background(), "import:abc", []byte("{}"), time.Hour))

	out, err := execute(t, "", "cache", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, appName), strings.TrimSpace(out))

	_, err = execute(t, "", "cache", "clear")
	require.NoError(t, err)

	_, hit, err := fc.Get(context.Background(), "import:abc")
	require.NoError(t, err)
	assert.False(t, hit)
}
