package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache[payload]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", payload{Token: "T1", Secret: "S1"}, time.Minute))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "T1", got.Token)
	assert.Equal(t, "S1", got.Secret)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache[payload]()

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache[payload]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", payload{Token: "T1"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache[payload]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", payload{Token: "T1"}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k1"))

	_, err := c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemoryCache[payload]()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", payload{Token: "old"}, time.Minute))
	require.NoError(t, c.Set(ctx, "k1", payload{Token: "new"}, time.Minute))

	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Token)
}
