package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
)

// ExamStore is the exam persistence the service depends on.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListAll(ctx context.Context) ([]model.Exam, error)
	ListForYear(ctx context.Context, year int) ([]model.Exam, error)
	Create(ctx context.Context, e *model.Exam) error
}

// ExamService handles exam creation, listing and lookup.
type ExamService struct {
	repo  ExamStore
	cache ExamCache
	log   zerolog.Logger
	now   func() time.Time
}

// NewExamService creates a new ExamService. cache may be nil.
func NewExamService(repo ExamStore, cache ExamCache, log zerolog.Logger) *ExamService {
	return &ExamService{
		repo:  repo,
		cache: cache,
		log:   log.With().Str("component", "exam_service").Logger(),
		now:   time.Now,
	}
}

// Create stores a new exam authored by creatorID.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest, creatorID string) (*model.Exam, error) {
	if req.StartTime == nil || req.EndTime == nil || !req.StartTime.Before(*req.EndTime) {
		return nil, fmt.Errorf("%w: start time must be before end time", ErrInvalidExam)
	}

	exam := &model.Exam{
		Name:                req.Name,
		Department:          model.NormalizeDepartment(req.Department),
		Year:                req.Year.Int(),
		Section:             model.NormalizeSection(req.Section),
		DurationMinutes:     req.DurationMinutes.Int(),
		StartTime:           req.StartTime.UTC(),
		EndTime:             req.EndTime.UTC(),
		RandomQuestionCount: req.RandomQuestionCount.Int(),
		CreatedBy:           creatorID,
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		s.log.Error().Err(err).Str("op", "create_exam").Str("user_id", creatorID).Msg("Failed to create exam")
		return nil, fmt.Errorf("create exam: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, exam)
	}
	return exam, nil
}

// GetByID returns an exam, consulting the cache first.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	if s.cache != nil {
		if e, ok := s.cache.Get(ctx, id); ok {
			return e, nil
		}
	}

	exam, err := retryRead(ctx, func(ctx context.Context) (*model.Exam, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(ctx, exam)
	}
	return exam, nil
}

// ListForAdmin returns every exam with its live/upcoming/ended classification.
func (s *ExamService) ListForAdmin(ctx context.Context) ([]model.ExamListing, error) {
	exams, err := retryRead(ctx, s.repo.ListAll)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	now := s.now()
	out := make([]model.ExamListing, 0, len(exams))
	for _, e := range exams {
		out = append(out, Listing(e, now))
	}
	return out, nil
}

// ListForStudent returns the live and upcoming exams student is eligible for.
func (s *ExamService) ListForStudent(ctx context.Context, student *model.User) ([]model.ExamListing, error) {
	if !student.HasAcademicProfile() {
		return nil, ErrProfileIncomplete
	}

	exams, err := retryRead(ctx, func(ctx context.Context) ([]model.Exam, error) {
		return s.repo.ListForYear(ctx, student.Year)
	})
	if err != nil {
		return nil, fmt.Errorf("list exams for year %d: %w", student.Year, err)
	}

	now := s.now()
	out := make([]model.ExamListing, 0, len(exams))
	for i := range exams {
		if !IsEligible(&exams[i], student) {
			continue
		}
		l := Listing(exams[i], now)
		if l.Status == model.ExamWindowEnded {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
