//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonsched/scheduler/internal/model"
	"github.com/anonsched/scheduler/internal/testutil"
)

func newTestCache(t *testing.T) (context.Context, *Cache) {
	t.Helper()
	url := testutil.RequireEnv(t, "TEST_REDIS_URL")
	ctx := context.Background()

	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, testutil.FlushRedis(ctx, client))
	return ctx, NewFromClient(client)
}

func TestIntegrationCache_PublicSettingsRoundTrip(t *testing.T) {
	ctx, c := newTestCache(t)

	_, err := c.GetPublicSettings(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)

	want := model.DefaultAppSettings().Public()
	want.SupportEmail = "help@example.com"
	require.NoError(t, c.SetPublicSettings(ctx, want))

	got, err := c.GetPublicSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	require.NoError(t, c.DeletePublicSettings(ctx))
	_, err = c.GetPublicSettings(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestIntegrationCache_UserRateLimitBurst(t *testing.T) {
	ctx, c := newTestCache(t)

	for i := 0; i < 3; i++ {
		res, err := c.CheckUserRateLimit(ctx, "user-1", 60, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d within burst", i)
	}

	res, err := c.CheckUserRateLimit(ctx, "user-1", 60, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	// other users have their own bucket
	res, err = c.CheckUserRateLimit(ctx, "user-2", 60, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestIntegrationCache_IPRateLimit(t *testing.T) {
	ctx, c := newTestCache(t)

	res, err := c.CheckIPRateLimit(ctx, "203.0.113.7", 1, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = c.CheckIPRateLimit(ctx, "203.0.113.7", 1, 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestIntegrationCache_BucketRefills(t *testing.T) {
	ctx, c := newTestCache(t)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	res, err := c.CheckIPRateLimit(ctx, "198.51.100.1", 2, 1)
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = c.CheckIPRateLimit(ctx, "198.51.100.1", 2, 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)

	now = now.Add(500 * time.Millisecond)
	res, err = c.CheckIPRateLimit(ctx, "198.51.100.1", 2, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestIntegrationCache_KeysAreNamespaced(t *testing.T) {
	ctx, c := newTestCache(t)

	_, err := c.CheckUserRateLimit(ctx, "user-9", 60, 3)
	require.NoError(t, err)

	n, err := c.Client().Exists(ctx, "sched:rl:user:user-9").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ttl, err := c.Client().PTTL(ctx, "sched:rl:user:user-9").Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, 4*time.Second)
	assert.Positive(t, ttl)
}
