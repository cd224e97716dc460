package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/proctor-backend/internal/model"
)

// QuestionRepository is the question bank.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByFilter returns every question matching the section and year, and the
// department when one is given.
func (r *QuestionRepository) ListByFilter(ctx context.Context, f model.QuestionFilter) ([]model.Question, error) {
	query := `SELECT id, prompt, choices, answer, year, department, section, created_by, created_at
	          FROM questions
	          WHERE section = $1 AND year = $2`
	args := []any{f.Section, f.Year}
	if f.Department != "" {
		args = append(args, f.Department)
		query += fmt.Sprintf(" AND department = $%d", len(args))
	}
	query += " ORDER BY created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("list questions", err)
	}
	questions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Question, error) {
		var q model.Question
		err := row.Scan(&q.ID, &q.Prompt, &q.Choices, &q.Answer, &q.Year, &q.Department, &q.Section, &q.CreatedBy, &q.CreatedAt)
		return q, err
	})
	if err != nil {
		return nil, classify("scan questions", err)
	}
	return questions, nil
}

// CreateBatch bulk-loads questions with COPY. Used by the seed command.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) (int64, error) {
	rows := make([][]any, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, []any{q.Prompt, q.Choices, q.Answer, q.Year, q.Department, q.Section, q.CreatedBy})
	}
	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"questions"},
		[]string{"prompt", "choices", "answer", "year", "department", "section", "created_by"},
		pgx.CopyFromRows(rows),
	)
	return n, classify("copy questions", err)
}
