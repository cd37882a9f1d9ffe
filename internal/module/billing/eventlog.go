package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const eventKeyPrefix = "billing:webhook:event:"

// EventLog remembers which webhook events were already applied.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// RedisEventLog stores processed event ids in Redis with a TTL.
type RedisEventLog struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisEventLog creates a Redis-backed event log.
func NewRedisEventLog(client redis.UniversalClient, ttl time.Duration) *RedisEventLog {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisEventLog{client: client, ttl: ttl}
}

func (l *RedisEventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, eventKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (l *RedisEventLog) MarkProcessed(ctx context.Context, eventID string) error {
	if err := l.client.Set(ctx, eventKeyPrefix+eventID, time.Now().Unix(), l.ttl).Err(); err != nil {
		return fmt.Errorf("mark event %s: %w", eventID, err)
	}
	return nil
}

// NopEventLog never reports an event as seen.
type NopEventLog struct{}

func (NopEventLog) Seen(context.Context, string) (bool, error) { return false, nil }
func (NopEventLog) MarkProcessed(context.Context, string) error { return nil }
