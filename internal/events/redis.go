package events

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/IshaanNene/bestsellers/internal/config"
)

// RedisPublisher appends session events to a Redis stream.
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher creates a publisher for cfg.Stream.
func NewRedisPublisher(cfg config.EventsConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})

	return &RedisPublisher{
		client: client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
	}
}

// Ping checks that the server is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Publish adds the event to the stream under the "event" key. The stream
// is trimmed approximately to maxLen entries.
func (p *RedisPublisher) Publish(ctx context.Context, ev SessionEvent) error {
	payload, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"category": ev.Category,
			"outcome":  ev.Outcome,
			"event":    string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return p.client.XAdd(ctx, args).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
