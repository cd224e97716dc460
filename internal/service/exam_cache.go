package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/model"
)

// ExamCache is a best-effort read-through cache for exam documents.
type ExamCache interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Exam, bool)
	Set(ctx context.Context, e *model.Exam)
}

// RedisExamCache caches exams in Redis. Exams never change after creation,
// so entries are only ever expired, not invalidated.
type RedisExamCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewRedisExamCache creates a new RedisExamCache.
func NewRedisExamCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisExamCache {
	return &RedisExamCache{rdb: rdb, ttl: ttl, log: log.With().Str("component", "exam_cache").Logger()}
}

func (c *RedisExamCache) Get(ctx context.Context, id uuid.UUID) (*model.Exam, bool) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.ExamKey(id.String())).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Exam cache read failed")
		}
		return nil, false
	}
	var e model.Exam
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Discarding malformed cached exam")
		return nil, false
	}
	return &e, true
}

func (c *RedisExamCache) Set(ctx context.Context, e *model.Exam) {
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, config.CacheKey.ExamKey(e.ID.String()), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("exam_id", e.ID.String()).Msg("Exam cache write failed")
	}
}
