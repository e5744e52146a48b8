package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

const (
	// ListKey holds the cached dashboard list.
	ListKey = "tickets:list"
	// GenerationKey counts invalidations. A list read under one generation
	// is only stored while that generation is still current.
	GenerationKey = "tickets:list:gen"
)

// ErrStaleGeneration reports a Set skipped because the list was
// invalidated after the caller read its generation.
var ErrStaleGeneration = errors.New("ticket list invalidated since read")

// TicketListCache stores the rendered ticket list between writes.
// Callers read Generation before loading the list from the store and hand
// it back to Set, so a load that raced a write is never cached.
type TicketListCache interface {
	Get(ctx context.Context) ([]domain.Ticket, bool, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, generation int64, tickets []domain.Ticket) error
	Invalidate(ctx context.Context) error
}

type redisListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTicketListCache returns a Redis-backed cache, or a no-op cache when
// client is nil or ttl is zero.
func NewTicketListCache(client *redis.Client, ttl time.Duration) TicketListCache {
	if client == nil || ttl <= 0 {
		return Noop()
	}
	return &redisListCache{client: client, ttl: ttl}
}

func (c *redisListCache) Get(ctx context.Context) ([]domain.Ticket, bool, error) {
	raw, err := c.client.Get(ctx, ListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var tickets []domain.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, false, err
	}
	return tickets, true, nil
}

func (c *redisListCache) Generation(ctx context.Context) (int64, error) {
	return readGeneration(ctx, c.client)
}

func (c *redisListCache) Set(ctx context.Context, generation int64, tickets []domain.Ticket) error {
	raw, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return ErrStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, ListKey, raw, c.ttl)
			return nil
		})
		return err
	}, GenerationKey)
	// EXEC aborted: an Invalidate landed between WATCH and EXEC.
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStaleGeneration
	}
	return err
}

func (c *redisListCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, ListKey)
		return nil
	})
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, cmd getter) (int64, error) {
	n, err := cmd.Get(ctx, GenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

type noopListCache struct{}

// Noop returns a cache that never holds anything.
func Noop() TicketListCache {
	return noopListCache{}
}

func (noopListCache) Get(context.Context) ([]domain.Ticket, bool, error) { return nil, false, nil }
func (noopListCache) Generation(context.Context) (int64, error)          { return 0, nil }
func (noopListCache) Set(context.Context, int64, []domain.Ticket) error  { return nil }
func (noopListCache) Invalidate(context.Context) error                   { return nil }
