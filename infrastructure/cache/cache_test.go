package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/application/ports"
)

func exerciseCache(t *testing.T, c ports.Cache) {
	t.Helper()
	ctx := context.Background()

	_, ok := c.Get(ctx, "notes")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "notes", []byte(`[1]`), time.Minute))
	got, ok := c.Get(ctx, "notes")
	require.True(t, ok)
	assert.Equal(t, []byte(`[1]`), got)

	require.NoError(t, c.Delete(ctx, "notes"))
	_, ok = c.Get(ctx, "notes")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Clear(ctx))
	_, okA := c.Get(ctx, "a")
	_, okB := c.Get(ctx, "b")
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()

	exerciseCache(t, c)
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_StoresCopies(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()
	value := []byte("abc")

	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'z'
	got, _ := c.Get(ctx, "k")
	got[1] = 'z'

	again, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func newRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+mr.Addr(), "quicknotes:", time.Minute, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache(t *testing.T) {
	c, _ := newRedis(t)
	exerciseCache(t, c)
}

func TestRedisCache_ClearKeepsForeignKeys(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("other:key", "keep"))
	require.NoError(t, c.Set(ctx, "notes", []byte("x"), 0))

	require.NoError(t, c.Clear(ctx))

	assert.True(t, mr.Exists("other:key"))
	assert.False(t, mr.Exists("quicknotes:notes"))
}

func TestRedisCache_TTL(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "notes", []byte("x"), 0))

	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "notes")
	assert.False(t, ok)
}

func TestRedisCache_FailureIsMiss(t *testing.T) {
	c, mr := newRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "notes", []byte("x"), 0))

	mr.Close()

	_, ok := c.Get(ctx, "notes")
	assert.False(t, ok)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "://nope", "p:", time.Minute, zap.NewNop())
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	var c ports.Cache = NoopCache{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), 0))
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
}
