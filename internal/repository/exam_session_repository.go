package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

const sessionColumns = `exam_id, user_id, status, questions, violations, approvals,
	awaiting_approval, started_at, finished_at, answers, updated_at`

// ListField names an append-only JSONB list on a session document.
type ListField string

const (
	ViolationsField ListField = "violations"
	ApprovalsField  ListField = "approvals"
)

func (f ListField) valid() bool {
	return f == ViolationsField || f == ApprovalsField
}

// SessionPatch is a partial update applied to one session document.
// Nil fields are left untouched.
type SessionPatch struct {
	Status           *model.SessionStatus
	AwaitingApproval *bool
	Answers          map[string]any
	FinishedAt       *time.Time

	// PreserveStatuses leaves Status and AwaitingApproval unchanged when the
	// current status is one of these.
	PreserveStatuses []model.SessionStatus
	// OnlyIfStatus makes the update conditional on the current status.
	// A miss yields ErrPreconditionFailed.
	OnlyIfStatus []model.SessionStatus
}

// ExamSessionRepository is the session document store: one JSONB-bearing row
// per (exam_id, user_id). Every mutation returns the post-write document.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Get retrieves one session document.
func (r *ExamSessionRepository) Get(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE exam_id = $1 AND user_id = $2`, key.ExamID, key.UserID)
	s, err := scanSession(row)
	if err != nil {
		return nil, classify("get session", err)
	}
	return s, nil
}

// CreateIfAbsent inserts s unless a document already exists for its key.
// It returns the stored document and whether this call created it.
func (r *ExamSessionRepository) CreateIfAbsent(ctx context.Context, s *model.ExamSession) (*model.ExamSession, bool, error) {
	questions, err := json.Marshal(nonNil(s.Questions))
	if err != nil {
		return nil, false, fmt.Errorf("encode questions: %w", err)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, user_id, status, questions, started_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (exam_id, user_id) DO NOTHING
		 RETURNING `+sessionColumns,
		s.ExamID, s.UserID, s.Status, questions, s.StartedAt)
	created, err := scanSession(row)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, classify("create session", err)
	}

	// Lost the race: someone else inserted first.
	existing, err := r.Get(ctx, s.Key())
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Merge applies patch to an existing document.
func (r *ExamSessionRepository) Merge(ctx context.Context, key model.SessionKey, patch SessionPatch) (*model.ExamSession, error) {
	u := newSessionUpdate(key)
	if err := u.apply(patch); err != nil {
		return nil, err
	}
	return r.exec(ctx, "merge session", key, u)
}

// AppendTo appends record to the named list and applies patch in the same
// statement. When dedupeID is set and a record with that event_id is already
// present, nothing is written and the current document is returned with
// appended=false.
func (r *ExamSessionRepository) AppendTo(ctx context.Context, key model.SessionKey, field ListField, record any, dedupeID string, patch SessionPatch) (*model.ExamSession, bool, error) {
	if !field.valid() {
		return nil, false, fmt.Errorf("append to %q: unknown list field", field)
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, false, fmt.Errorf("encode %s record: %w", field, err)
	}

	u := newSessionUpdate(key)
	u.sets = append(u.sets, fmt.Sprintf("%s = %s || jsonb_build_array(%s::jsonb)", field, field, u.arg(raw)))
	if err := u.apply(patch); err != nil {
		return nil, false, err
	}

	var marker []byte
	if dedupeID != "" {
		marker, _ = json.Marshal([]map[string]string{{"event_id": dedupeID}})
		u.where = append(u.where, fmt.Sprintf("NOT (%s @> %s::jsonb)", field, u.arg(marker)))
	}

	s, err := r.exec(ctx, "append "+string(field), key, u)
	if err == nil {
		return s, true, nil
	}
	if dedupeID == "" || !errors.Is(err, ErrPreconditionFailed) {
		return nil, false, err
	}

	// The guard missed: either a duplicate delivery or the status guard.
	current, getErr := r.Get(ctx, key)
	if getErr != nil {
		return nil, false, getErr
	}
	if containsEvent(current, field, dedupeID) {
		return current, false, nil
	}
	return nil, false, err
}

// ListByExam returns every session of an exam, optionally only those awaiting approval.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID, pendingOnly bool) ([]model.ExamSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM exam_sessions WHERE exam_id = $1`
	if pendingOnly {
		query += ` AND awaiting_approval`
	}
	query += ` ORDER BY started_at`

	rows, err := r.pool.Query(ctx, query, examID)
	if err != nil {
		return nil, classify("list sessions", err)
	}
	defer rows.Close()

	sessions := make([]model.ExamSession, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, classify("scan session", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, classify("list sessions", rows.Err())
}

func (r *ExamSessionRepository) exec(ctx context.Context, op string, key model.SessionKey, u *sessionUpdate) (*model.ExamSession, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, u.sql(), u.args...))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) || len(u.where) == 0 {
		return nil, classify(op, err)
	}

	// A guarded update matched nothing: tell a missing row from a failed guard.
	if _, getErr := r.Get(ctx, key); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%s: %w", op, ErrPreconditionFailed)
}

// sessionUpdate accumulates a single UPDATE ... RETURNING statement.
type sessionUpdate struct {
	sets  []string
	where []string
	args  []any
}

func newSessionUpdate(key model.SessionKey) *sessionUpdate {
	return &sessionUpdate{
		sets: []string{"updated_at = NOW()"},
		args: []any{key.ExamID, key.UserID},
	}
}

func (u *sessionUpdate) arg(v any) string {
	u.args = append(u.args, v)
	return fmt.Sprintf("$%d", len(u.args))
}

func (u *sessionUpdate) apply(p SessionPatch) error {
	preserve := ""
	if len(p.PreserveStatuses) > 0 {
		preserve = fmt.Sprintf("status = ANY(%s::text[])", u.arg(statusStrings(p.PreserveStatuses)))
	}
	guarded := func(column, value string) string {
		if preserve == "" {
			return fmt.Sprintf("%s = %s", column, value)
		}
		return fmt.Sprintf("%s = CASE WHEN %s THEN %s ELSE %s END", column, preserve, column, value)
	}

	if p.Status != nil {
		u.sets = append(u.sets, guarded("status", u.arg(string(*p.Status))+"::text"))
	}
	if p.AwaitingApproval != nil {
		u.sets = append(u.sets, guarded("awaiting_approval", u.arg(*p.AwaitingApproval)+"::boolean"))
	}
	if p.Answers != nil {
		raw, err := json.Marshal(p.Answers)
		if err != nil {
			return fmt.Errorf("encode answers: %w", err)
		}
		u.sets = append(u.sets, fmt.Sprintf("answers = %s::jsonb", u.arg(raw)))
	}
	if p.FinishedAt != nil {
		u.sets = append(u.sets, fmt.Sprintf("finished_at = %s", u.arg(*p.FinishedAt)))
	}
	if len(p.OnlyIfStatus) > 0 {
		u.where = append(u.where, fmt.Sprintf("status = ANY(%s::text[])", u.arg(statusStrings(p.OnlyIfStatus))))
	}
	return nil
}

func (u *sessionUpdate) sql() string {
	var b strings.Builder
	b.WriteString("UPDATE exam_sessions SET ")
	b.WriteString(strings.Join(u.sets, ", "))
	b.WriteString(" WHERE exam_id = $1 AND user_id = $2")
	for _, w := range u.where {
		b.WriteString(" AND ")
		b.WriteString(w)
	}
	b.WriteString(" RETURNING ")
	b.WriteString(sessionColumns)
	return b.String()
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var status string
	err := row.Scan(&s.ExamID, &s.UserID, &status, &s.Questions, &s.Violations, &s.Approvals,
		&s.AwaitingApproval, &s.StartedAt, &s.FinishedAt, &s.Answers, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = model.SessionStatus(status)
	s.Questions = nonNil(s.Questions)
	s.Violations = nonNil(s.Violations)
	s.Approvals = nonNil(s.Approvals)
	return s, nil
}

func containsEvent(s *model.ExamSession, field ListField, eventID string) bool {
	if field != ViolationsField {
		return false
	}
	for _, v := range s.Violations {
		if v.EventID == eventID {
			return true
		}
	}
	return false
}

func statusStrings(statuses []model.SessionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
