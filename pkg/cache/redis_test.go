package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 is never a Redis server.
	c, err := NewRedisCache(ctx, Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Nil(t, c)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestRedisCache_Key(t *testing.T) {
	c := &RedisCache{prefix: "nftmarket:"}
	assert.Equal(t, "nftmarket:market:stats", c.key("market:stats"))
}

func TestRedisCache_DeleteNothing(t *testing.T) {
	c := &RedisCache{prefix: "nftmarket:"}
	assert.NoError(t, c.Delete(context.Background()))
}
