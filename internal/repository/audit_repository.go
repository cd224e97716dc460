package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

var auditColumns = []string{"exam_id", "user_id", "actor_id", "action", "status", "detail", "recorded_at"}

// AuditRepository persists the session transition trail.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// CopyBatch bulk-inserts entries with COPY.
func (r *AuditRepository) CopyBatch(ctx context.Context, entries []model.AuditEntry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.ExamID, e.UserID, e.ActorID, string(e.Action), string(e.Status), detailOrNull(e), e.RecordedAt})
	}
	_, err := r.pool.CopyFrom(ctx, pgx.Identifier{"session_audit_log"}, auditColumns, pgx.CopyFromRows(rows))
	return classify("copy audit", err)
}

// Insert writes a single entry.
func (r *AuditRepository) Insert(ctx context.Context, e model.AuditEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_audit_log (exam_id, user_id, actor_id, action, status, detail, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)`,
		e.ExamID, e.UserID, e.ActorID, string(e.Action), string(e.Status), detailOrNull(e), e.RecordedAt)
	return classify("insert audit", err)
}

// ListBySession returns the trail of one session, oldest first.
func (r *AuditRepository) ListBySession(ctx context.Context, examID uuid.UUID, userID string) ([]model.AuditEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, user_id, actor_id, action, status, detail, recorded_at
		 FROM session_audit_log
		 WHERE exam_id = $1 AND user_id = $2
		 ORDER BY recorded_at, id`, examID, userID)
	if err != nil {
		return nil, classify("list audit", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AuditEntry, error) {
		var e model.AuditEntry
		var action, status string
		var detail []byte
		err := row.Scan(&e.ID, &e.ExamID, &e.UserID, &e.ActorID, &action, &status, &detail, &e.RecordedAt)
		e.Action = model.AuditAction(action)
		e.Status = model.SessionStatus(status)
		e.Detail = detail
		return e, err
	})
	if err != nil {
		return nil, classify("scan audit", err)
	}
	return entries, nil
}

func detailOrNull(e model.AuditEntry) any {
	if len(e.Detail) == 0 {
		return nil
	}
	return string(e.Detail)
}
