package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/model"
)

// EventPublisher fans session changes out to live monitors.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.SessionEvent) error
}

// AuditSink accepts transition records for asynchronous persistence.
type AuditSink interface {
	Enqueue(ctx context.Context, entry model.AuditEntry) error
}

// RedisEventBus publishes session events on Redis pub/sub and queues audit
// entries on a Redis list drained by the audit worker.
type RedisEventBus struct {
	rdb *redis.Client
}

// NewRedisEventBus creates a new RedisEventBus.
func NewRedisEventBus(rdb *redis.Client) *RedisEventBus {
	return &RedisEventBus{rdb: rdb}
}

// Publish sends ev to the exam monitor channel and the student's own channel.
func (b *RedisEventBus) Publish(ctx context.Context, ev model.SessionEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}
	examID := ev.ExamID.String()
	pipe := b.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID), data)
	pipe.Publish(ctx, config.CacheKey.StudentSessionChannel(examID, ev.UserID), data)
	_, err = pipe.Exec(ctx)
	return err
}

// Enqueue pushes entry onto the audit queue.
func (b *RedisEventBus) Enqueue(ctx context.Context, entry model.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	return b.rdb.RPush(ctx, config.WorkerKey.PersistAuditQueue, data).Err()
}

// Subscribe opens a pub/sub subscription on the given channels.
// The caller must Close it.
func (b *RedisEventBus) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, channels...)
}
