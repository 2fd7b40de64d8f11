package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/spotlight/pkg/config"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClient_GetSet(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNilError(err))

	require.NoError(t, c.Set(ctx, "k", []byte(`{"ids":["mail:1"]}`), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ids":["mail:1"]}`, string(got))
}

func TestClient_FlushByPattern(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("search:%d", i), []byte("x"), time.Minute))
	}
	require.NoError(t, c.Set(ctx, "other", []byte("keep"), time.Minute))

	deleted, err := c.FlushByPattern(ctx, "search:*")
	require.NoError(t, err)
	assert.Equal(t, int64(250), deleted)

	got, err := c.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "keep", string(got))
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
