package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
)

// memSessionStore mirrors the semantics of the Postgres session store.
type memSessionStore struct {
	mu       sync.Mutex
	docs     map[model.SessionKey]*model.ExamSession
	creates  int
	failGets int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{docs: make(map[model.SessionKey]*model.ExamSession)}
}

func (m *memSessionStore) Get(_ context.Context, key model.SessionKey) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGets > 0 {
		m.failGets--
		return nil, fmt.Errorf("get session: %w", repository.ErrStoreUnavailable)
	}
	s, ok := m.docs[key]
	if !ok {
		return nil, fmt.Errorf("get session: %w", repository.ErrNotFound)
	}
	return cloneSession(s), nil
}

func (m *memSessionStore) CreateIfAbsent(_ context.Context, s *model.ExamSession) (*model.ExamSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.docs[s.Key()]; ok {
		return cloneSession(existing), false, nil
	}
	m.creates++
	stored := cloneSession(s)
	stored.UpdatedAt = s.StartedAt
	m.docs[s.Key()] = stored
	return cloneSession(stored), true, nil
}

func (m *memSessionStore) Merge(_ context.Context, key model.SessionKey, patch repository.SessionPatch) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.docs[key]
	if !ok {
		return nil, fmt.Errorf("merge session: %w", repository.ErrNotFound)
	}
	if len(patch.OnlyIfStatus) > 0 && !slices.Contains(patch.OnlyIfStatus, s.Status) {
		return nil, fmt.Errorf("merge session: %w", repository.ErrPreconditionFailed)
	}
	applyPatch(s, patch)
	return cloneSession(s), nil
}

func (m *memSessionStore) AppendTo(_ context.Context, key model.SessionKey, field repository.ListField, record any, dedupeID string, patch repository.SessionPatch) (*model.ExamSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.docs[key]
	if !ok {
		return nil, false, fmt.Errorf("append: %w", repository.ErrNotFound)
	}
	switch field {
	case repository.ViolationsField:
		rec := record.(model.ViolationRecord)
		if dedupeID != "" {
			for _, v := range s.Violations {
				if v.EventID == dedupeID {
					return cloneSession(s), false, nil
				}
			}
		}
		s.Violations = append(s.Violations, rec)
	case repository.ApprovalsField:
		s.Approvals = append(s.Approvals, record.(model.ApprovalRecord))
	default:
		return nil, false, fmt.Errorf("append to %q: unknown list field", field)
	}
	applyPatch(s, patch)
	return cloneSession(s), true, nil
}

func (m *memSessionStore) ListByExam(_ context.Context, examID uuid.UUID, pendingOnly bool) ([]model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExamSession, 0)
	for k, s := range m.docs {
		if k.ExamID != examID || (pendingOnly && !s.AwaitingApproval) {
			continue
		}
		out = append(out, *cloneSession(s))
	}
	slices.SortFunc(out, func(a, b model.ExamSession) int { return a.StartedAt.Compare(b.StartedAt) })
	return out, nil
}

func applyPatch(s *model.ExamSession, p repository.SessionPatch) {
	preserved := slices.Contains(p.PreserveStatuses, s.Status)
	if p.Status != nil && !preserved {
		s.Status = *p.Status
	}
	if p.AwaitingApproval != nil && !preserved {
		s.AwaitingApproval = *p.AwaitingApproval
	}
	if p.Answers != nil {
		s.Answers = p.Answers
	}
	if p.FinishedAt != nil {
		t := *p.FinishedAt
		s.FinishedAt = &t
	}
}

func cloneSession(s *model.ExamSession) *model.ExamSession {
	c := *s
	c.Questions = slices.Clone(s.Questions)
	c.Violations = slices.Clone(s.Violations)
	c.Approvals = slices.Clone(s.Approvals)
	return &c
}

type memQuestionBank struct {
	questions []model.Question
	calls     int
}

func (b *memQuestionBank) ListByFilter(_ context.Context, f model.QuestionFilter) ([]model.Question, error) {
	b.calls++
	var out []model.Question
	for _, q := range b.questions {
		if q.Section != f.Section || q.Year != f.Year {
			continue
		}
		if f.Department != "" && q.Department != f.Department {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

type memExams struct {
	exams map[uuid.UUID]*model.Exam
}

func (e *memExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	if ex, ok := e.exams[id]; ok {
		return ex, nil
	}
	return nil, ErrExamNotFound
}

type memLocker struct {
	mu       sync.Mutex
	held     map[string]string
	refuse   bool
	releases int
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refuse {
		return "", false, nil
	}
	if l.held == nil {
		l.held = make(map[string]string)
	}
	if _, taken := l.held[key]; taken {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.releases++
	}
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []model.SessionEvent
	audit  []model.AuditEntry
}

func (b *recordingBus) Publish(_ context.Context, ev model.SessionEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) Enqueue(_ context.Context, e model.AuditEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audit = append(b.audit, e)
	return nil
}

func makeQuestions(n, year int, dept, section string) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = model.Question{
			ID:         uuid.New(),
			Prompt:     fmt.Sprintf("%s-%d-%d", dept, year, i),
			Choices:    []string{"a", "b", "c", "d"},
			Answer:     "a",
			Year:       year,
			Department: dept,
			Section:    section,
		}
	}
	return out
}
