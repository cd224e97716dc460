package repository

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrStoreUnavailable wraps transient store failures (connection loss, timeouts).
	ErrStoreUnavailable = errors.New("repository: store unavailable")
	// ErrPreconditionFailed is returned when a guarded update matched no row.
	ErrPreconditionFailed = errors.New("repository: precondition failed")
)

// classify maps driver errors onto the repository sentinels. Errors that are
// neither missing rows nor transient are returned wrapped but unclassified.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case isTransient(err):
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
