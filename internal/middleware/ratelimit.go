package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/response"
)

// Counter increments key and returns its new value. The key expires window
// after its first increment.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter is a fixed-window Counter shared by every API replica.
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// UserRateLimiter limits violation reports per user per window.
type UserRateLimiter struct {
	counter Counter
	limit   int64
	window  time.Duration
	log     zerolog.Logger
}

// NewUserRateLimiter allows limit requests per user per window. A
// non-positive limit disables the check.
func NewUserRateLimiter(counter Counter, limit int, window time.Duration, log zerolog.Logger) *UserRateLimiter {
	return &UserRateLimiter{
		counter: counter,
		limit:   int64(limit),
		window:  window,
		log:     log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Allow counts one report for userID. Counter failures are returned with
// allowed set to true, so an unavailable Redis never blocks reports.
func (rl *UserRateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}
	n, err := rl.counter.Incr(ctx, config.CacheKey.ViolationRateKey(userID), rl.window)
	if err != nil {
		return true, err
	}
	return n <= rl.limit, nil
}

// Middleware must run after RequireAuth.
func (rl *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := GetIdentity(c)
		if ident == nil {
			c.Next()
			return
		}

		allowed, err := rl.Allow(c.Request.Context(), ident.UserID)
		if err != nil {
			rl.log.Warn().Err(err).Str("user_id", ident.UserID).Msg("Rate limit check failed, allowing request")
		}
		if !allowed {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
