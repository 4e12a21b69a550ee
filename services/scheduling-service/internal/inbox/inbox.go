// Package inbox remembers which consumed events were already handled.
package inbox

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "scheduling:inbox:"
	defaultTTL    = 7 * 24 * time.Hour
)

// RedisInbox records event ids with SETNX so a redelivered event is seen as a duplicate.
type RedisInbox struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisInbox(client redis.Cmdable, ttl time.Duration) *RedisInbox {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisInbox{client: client, prefix: defaultPrefix, ttl: ttl}
}

// Record returns true the first time eventID is seen. Events without an id
// cannot be deduplicated and are always reported as new.
func (i *RedisInbox) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	return i.client.SetNX(ctx, i.prefix+eventID, eventType, i.ttl).Result()
}

// Forget drops a record so the event is handled again on redelivery.
func (i *RedisInbox) Forget(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return i.client.Del(ctx, i.prefix+eventID).Err()
}
