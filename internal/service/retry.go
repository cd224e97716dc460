package service

import (
	"context"
	"errors"
	"time"

	"github.com/stemsi/proctor-backend/internal/repository"
)

const (
	readAttempts = 3
	readBackoff  = 50 * time.Millisecond
)

// retryRead runs an idempotent read, retrying transient store failures with
// linear backoff. Writes must not go through here.
func retryRead[T any](ctx context.Context, read func(context.Context) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= readAttempts; attempt++ {
		out, err = read(ctx)
		if err == nil || !errors.Is(err, repository.ErrStoreUnavailable) || attempt == readAttempts {
			return out, err
		}
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(time.Duration(attempt) * readBackoff):
		}
	}
	return out, err
}
