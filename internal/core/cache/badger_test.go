package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGetRoundtrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, c.Set(ctx, "k", payload{Name: "doc", Count: 3}, time.Hour))

	var got payload
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Name: "doc", Count: 3}, got)
}

func TestGetMissingKey(t *testing.T) {
	c := newTestCache(t)

	var out string
	ok, err := c.Get(context.Background(), "nope", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntryExpires(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "short", "v", time.Second))

	ok, err := c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	time.Sleep(2 * time.Second)

	ok, err = c.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must be invisible on read")
}

func TestZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "forever", 42, 0))

	var got int
	ok, err := c.Get(ctx, "forever", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, got)
}

func TestDeleteReportsExistence(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "k", "v", time.Hour))

	existed, err := c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestKeysByPrefix(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "metadata:a", 1, time.Hour))
	require.NoError(t, c.Set(ctx, "metadata:b", 2, time.Hour))
	require.NoError(t, c.Set(ctx, "embedding:a", 3, time.Hour))

	keys, err := c.Keys(ctx, "metadata:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"metadata:a", "metadata:b"}, keys)
}
