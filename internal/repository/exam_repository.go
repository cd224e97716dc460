package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

const examColumns = `id, name, department, year, section, duration_minutes,
	start_time, end_time, random_question_count, created_by, created_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Department, &e.Year, &e.Section, &e.DurationMinutes,
		&e.StartTime, &e.EndTime, &e.RandomQuestionCount, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return nil, classify("get exam", err)
	}
	return e, nil
}

// ListAll retrieves every exam, newest start first.
func (r *ExamRepository) ListAll(ctx context.Context) ([]model.Exam, error) {
	return r.list(ctx, `SELECT `+examColumns+` FROM exams ORDER BY start_time DESC`)
}

// ListForYear retrieves exams for one academic year whose window has not closed.
// Department eligibility is decided by the caller.
func (r *ExamRepository) ListForYear(ctx context.Context, year int) ([]model.Exam, error) {
	return r.list(ctx,
		`SELECT `+examColumns+` FROM exams
		 WHERE year = $1 AND end_time >= NOW()
		 ORDER BY start_time ASC`, year)
}

func (r *ExamRepository) list(ctx context.Context, query string, args ...any) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list exams", err)
	}
	defer rows.Close()

	exams := make([]model.Exam, 0)
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.Year, &e.Section, &e.DurationMinutes,
			&e.StartTime, &e.EndTime, &e.RandomQuestionCount, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, classify("scan exam", err)
		}
		exams = append(exams, e)
	}
	return exams, classify("list exams", rows.Err())
}

// Create inserts a new exam and fills in its generated id and timestamp.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exams (name, department, year, section, duration_minutes,
		                    start_time, end_time, random_question_count, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		e.Name, e.Department, e.Year, e.Section, e.DurationMinutes,
		e.StartTime, e.EndTime, e.RandomQuestionCount, e.CreatedBy,
	).Scan(&e.ID, &e.CreatedAt)
	return classify("create exam", err)
}
