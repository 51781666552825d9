package processor

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper answers whether an event id is seen for the first time.
type Deduper interface {
	FirstDelivery(ctx context.Context, eventID string) (bool, error)
}

const dedupeKeyPrefix = "events:dedupe:"

// RedisDeduper marks delivered event ids in redis with a TTL. Queue
// redelivery within the TTL window is detected; a redis outage degrades to
// at-least-once processing.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisDeduper builds the deduper.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// FirstDelivery claims the event id atomically. It returns false when a
// previous delivery already claimed it.
func (d *RedisDeduper) FirstDelivery(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, dedupeKeyPrefix+eventID, 1, d.ttl).Result()
}
