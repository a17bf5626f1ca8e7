//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/storepulse/backend/internal/infrastructure/auth"
	"github.com/storepulse/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisResultCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	client := newRedisClient(t)
	store := cache.NewRedisStoreWithClient(client)
	c := cache.NewResultCache(store, "storepulse", nil)
	merchantID := uuid.New()
	key := cache.Key{Kind: cache.KindDashboard, MerchantID: merchantID, Period: "7d"}

	calls := 0
	fn := func(context.Context) (map[string]int, error) {
		calls++
		return map[string]int{"orders": 3}, nil
	}

	got, err := cache.GetOrCompute(ctx, c, key, time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 3, got["orders"])

	got, err = cache.GetOrCompute(ctx, c, key, time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, 3, got["orders"])
	assert.Equal(t, 1, calls)

	ttl, err := client.TTL(ctx, c.Format(key)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 50*time.Second)

	require.NoError(t, c.InvalidateMerchant(ctx, merchantID))
	_, err = store.Get(ctx, c.Format(key))
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestRedisStateGuard(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	guard := auth.NewRedisStateGuard(newRedisClient(t), "storepulse")

	first, err := guard.Consume(ctx, "state-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := guard.Consume(ctx, "state-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, again, "a consumed state must not be accepted twice")

	other, err := guard.Consume(ctx, "state-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, other)
}
