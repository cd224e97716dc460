package service

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/stemsi/proctor-backend/internal/model"
)

// QuestionBank is the filtered lookup into the question pool.
type QuestionBank interface {
	ListByFilter(ctx context.Context, f model.QuestionFilter) ([]model.Question, error)
}

// QuestionSelector draws the frozen question set of a new session.
type QuestionSelector struct {
	bank    QuestionBank
	shuffle func(n int, swap func(i, j int))
}

// NewQuestionSelector creates a selector sampling with a uniform Fisher-Yates shuffle.
func NewQuestionSelector(bank QuestionBank) *QuestionSelector {
	return &QuestionSelector{bank: bank, shuffle: rand.Shuffle}
}

// FilterFor builds the question-bank filter of an exam. A general exam draws
// from every department.
func FilterFor(exam *model.Exam) model.QuestionFilter {
	f := model.QuestionFilter{
		Section: model.NormalizeSection(exam.Section),
		Year:    exam.Year,
	}
	if dept := model.NormalizeDepartment(exam.Department); dept != model.DepartmentGeneral {
		f.Department = dept
	}
	return f
}

// Draw samples min(RandomQuestionCount, candidates) questions without
// replacement. A non-positive count takes every candidate; no candidates
// yields an empty set.
func (s *QuestionSelector) Draw(ctx context.Context, exam *model.Exam) ([]model.SessionQuestion, error) {
	candidates, err := s.bank.ListByFilter(ctx, FilterFor(exam))
	if err != nil {
		return nil, fmt.Errorf("list candidate questions: %w", err)
	}

	n := exam.RandomQuestionCount
	if n <= 0 || n > len(candidates) {
		n = len(candidates)
	}

	pool := make([]model.Question, len(candidates))
	copy(pool, candidates)
	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	drawn := make([]model.SessionQuestion, 0, n)
	for _, q := range pool[:n] {
		drawn = append(drawn, q.ForStudent())
	}
	return drawn, nil
}
