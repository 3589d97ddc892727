package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldswap/internal/storage/storagetest"
)

func setupTestRedis(t *testing.T) *redis.Client {
	addr := os.Getenv("SHIELDSWAP_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(ctx).Err())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})
	return client
}

func TestStore(t *testing.T) {
	client := setupTestRedis(t)
	s, err := NewStore(client, "shieldswap-test:")
	require.NoError(t, err)

	storagetest.Run(t, s)
}

func TestNewStoreNilClient(t *testing.T) {
	_, err := NewStore(nil, "")
	assert.Error(t, err)
}
