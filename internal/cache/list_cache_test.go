package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, TicketListCache) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, NewTicketListCache(client, ttl)
}

func TestRedisListCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, c := newRedisCache(t, time.Minute)

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	outcome := "rebooted"
	created := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{{
		ID: "t-1", Topic: "VPN", Status: domain.TicketStatusResolved, Owner: "Ana",
		ProblemDescription: "down", Outcome: &outcome, CreatedAt: created, UpdatedAt: created,
	}}
	require.NoError(t, c.Set(ctx, 0, tickets))

	got, ok, err := c.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tickets, got)
}

func TestRedisListCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	srv, c := newRedisCache(t, time.Minute)

	require.NoError(t, c.Set(ctx, 0, []domain.Ticket{{ID: "t-1"}}))
	assert.True(t, srv.Exists(ListKey))

	require.NoError(t, c.Invalidate(ctx))
	assert.False(t, srv.Exists(ListKey))

	generation, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), generation)
}

func TestRedisListCacheSkipsStaleGeneration(t *testing.T) {
	ctx := context.Background()
	srv, c := newRedisCache(t, time.Minute)

	generation, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, generation)

	// a write lands while the list is being loaded
	require.NoError(t, c.Invalidate(ctx))

	err = c.Set(ctx, generation, []domain.Ticket{{ID: "deleted"}})
	assert.ErrorIs(t, err, ErrStaleGeneration)
	assert.False(t, srv.Exists(ListKey))

	generation, err = c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, generation, []domain.Ticket{}))
	assert.True(t, srv.Exists(ListKey))
}

func TestRedisListCacheExpires(t *testing.T) {
	ctx := context.Background()
	srv, c := newRedisCache(t, 30*time.Second)

	require.NoError(t, c.Set(ctx, 0, []domain.Ticket{}))
	srv.FastForward(31 * time.Second)

	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoopWhenDisabled(t *testing.T) {
	ctx := context.Background()
	c := NewTicketListCache(nil, time.Minute)

	require.NoError(t, c.Set(ctx, 0, []domain.Ticket{{ID: "t-1"}}))
	_, ok, err := c.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, c.Invalidate(ctx))

	_, isNoop := NewTicketListCache(redis.NewClient(&redis.Options{}), 0).(noopListCache)
	assert.True(t, isNoop)
}
