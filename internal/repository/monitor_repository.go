package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

// MonitorRepository provides the aggregate reads behind the live exam monitor.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

// GetStatusCounts returns how many sessions of the exam are in each status.
func (r *MonitorRepository) GetStatusCounts(ctx context.Context, examID uuid.UUID) (map[model.SessionStatus]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*)
		 FROM exam_sessions
		 WHERE exam_id = $1
		 GROUP BY status`,
		examID,
	)
	if err != nil {
		return nil, classify("status counts", err)
	}
	defer rows.Close()

	counts := make(map[model.SessionStatus]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, classify("scan status count", err)
		}
		counts[model.SessionStatus(status)] = count
	}
	return counts, classify("status counts", rows.Err())
}

// GetViolationCounts returns the number of recorded violations per user.
// Users with none are omitted.
func (r *MonitorRepository) GetViolationCounts(ctx context.Context, examID uuid.UUID) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, jsonb_array_length(violations)
		 FROM exam_sessions
		 WHERE exam_id = $1 AND jsonb_array_length(violations) > 0`,
		examID,
	)
	if err != nil {
		return nil, classify("violation counts", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var uid string
		var count int64
		if err := rows.Scan(&uid, &count); err != nil {
			return nil, classify("scan violation count", err)
		}
		counts[uid] = count
	}
	return counts, classify("violation counts", rows.Err())
}
