package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockRepository implements short-lived mutual exclusion on Redis keys.
type LockRepository struct {
	rdb *redis.Client
}

// NewLockRepository creates a new LockRepository.
func NewLockRepository(rdb *redis.Client) *LockRepository {
	return &LockRepository{rdb: rdb}
}

// Acquire tries to take key for ttl. It returns the owner token on success
// and ok=false when someone else holds the lock.
func (r *LockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops key if token still owns it.
func (r *LockRepository) Release(ctx context.Context, key, token string) error {
	return releaseScript.Run(ctx, r.rdb, []string{key}, token).Err()
}
