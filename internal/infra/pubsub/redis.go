// Package pubsub доставляет события статусов источников подписчикам.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"devfeed/internal/domain"
	"devfeed/internal/infra/metrics"
)

// RedisPublisher публикует события командой PUBLISH.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher создаёт публикатор.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish отправляет событие в канал.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, event domain.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	start := time.Now()
	err = p.client.Publish(ctx, channel, payload).Err()
	metrics.ObserveNetworkRequest("redis", "publish", "source_status", start, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}
