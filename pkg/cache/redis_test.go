package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+s.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, s
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, s := newTestRedis(t)

	_, hit, err := c.Get(ctx, "import:missing")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "import:abc", []byte(`{"diagram":[0,0]}`), time.Hour))
	data, hit, err := c.Get(ctx, "import:abc")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, `{"diagram":[0,0]}`, string(data))
	assert.Equal(t, time.Hour, s.TTL("import:abc"))

	require.NoError(t, c.Delete(ctx, "import:abc"))
	_, hit, err = c.Get(ctx, "import:abc")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, s := newTestRedis(t)

	require.NoError(t, c.Set(ctx, "export:abc", []byte("x"), time.Minute))
	s.FastForward(2 * time.Minute)

	_, hit, err := c.Get(ctx, "export:abc")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCacheServerGone(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, s := newTestRedis(t)
	s.Close()

	_, _, err := c.Get(ctx, "import:abc")
	assert.Error(t, err)
}
