package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestHelper(t *testing.T) (*Helper, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHelper(client, "test:"), mr
}

func TestHelper_SetGet(t *testing.T) {
	h, mr := newTestHelper(t)
	ctx := context.Background()

	require.NoError(t, h.Set(ctx, "a", payload{Name: "x", Count: 2}, time.Minute))
	assert.True(t, mr.Exists("test:a"))

	var got payload
	require.NoError(t, h.Get(ctx, "a", &got))
	assert.Equal(t, payload{Name: "x", Count: 2}, got)

	err := h.Get(ctx, "missing", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestHelper_TTLAndDelete(t *testing.T) {
	h, mr := newTestHelper(t)
	ctx := context.Background()

	require.NoError(t, h.SetString(ctx, "s", "1", time.Minute))
	ok, err := h.Exists(ctx, "s")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = h.Exists(ctx, "s")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, h.SetString(ctx, "d", "1", 0))
	require.NoError(t, h.Delete(ctx, "d"))
	_, err = h.GetString(ctx, "d")
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestHelper_NilClientDegrades(t *testing.T) {
	h := NewHelper(nil, "x:")
	ctx := context.Background()

	assert.NoError(t, h.Set(ctx, "a", 1, time.Minute))
	_, err := h.GetString(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
	_, err = h.Exists(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheNotAvailable)
}
