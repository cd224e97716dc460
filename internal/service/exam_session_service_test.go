package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/model"
)

var examStart = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

type sessionFixture struct {
	svc    *ExamSessionService
	store  *memSessionStore
	bank   *memQuestionBank
	locker *memLocker
	bus    *recordingBus
	exam   *model.Exam
	pool   map[uuid.UUID]bool
	now    time.Time
}

func newSessionFixture(t *testing.T, policy SessionPolicy) *sessionFixture {
	t.Helper()
	exam := &model.Exam{
		ID:                  uuid.New(),
		Name:                "Data Structures",
		Year:                2,
		Department:          "cse",
		Section:             "general",
		DurationMinutes:     60,
		StartTime:           examStart,
		EndTime:             examStart.Add(2 * time.Hour),
		RandomQuestionCount: 5,
	}
	matching := makeQuestions(12, 2, "cse", "general")
	others := append(makeQuestions(4, 2, "aiml", "general"), makeQuestions(4, 3, "cse", "general")...)

	f := &sessionFixture{
		store:  newMemSessionStore(),
		bank:   &memQuestionBank{questions: append(matching, others...)},
		locker: &memLocker{},
		bus:    &recordingBus{},
		exam:   exam,
		pool:   make(map[uuid.UUID]bool),
		now:    examStart.Add(30 * time.Minute),
	}
	for _, q := range matching {
		f.pool[q.ID] = true
	}
	exams := &memExams{exams: map[uuid.UUID]*model.Exam{exam.ID: exam}}
	f.svc = NewExamSessionService(f.store, exams, NewQuestionSelector(f.bank), f.locker, f.bus, f.bus, policy, zerolog.New(io.Discard))
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *sessionFixture) start(t *testing.T, userID string) *model.ExamSession {
	t.Helper()
	s, err := f.svc.Start(context.Background(), f.exam.ID, userID)
	if err != nil {
		t.Fatalf("Start(%s): %v", userID, err)
	}
	return s
}

func TestStartDrawsFromMatchingPoolAndIsIdempotent(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})

	first := f.start(t, "student-1")
	if first.Status != model.SessionStatusOngoing || first.AwaitingApproval {
		t.Fatalf("new session = %s/%v, want ongoing/false", first.Status, first.AwaitingApproval)
	}
	if len(first.Questions) != 5 {
		t.Fatalf("questions = %d, want 5", len(first.Questions))
	}
	for _, q := range first.Questions {
		if !f.pool[q.ID] {
			t.Errorf("question %s is outside the 12-question pool", q.ID)
		}
	}

	if _, err := f.svc.ReportViolation(context.Background(), f.exam.ID, "student-1", "tab_change", ""); err != nil {
		t.Fatalf("ReportViolation: %v", err)
	}

	second := f.start(t, "student-1")
	for i := range first.Questions {
		if second.Questions[i].ID != first.Questions[i].ID {
			t.Fatalf("question %d changed between starts", i)
		}
	}
	if second.Status != model.SessionStatusPaused || len(second.Violations) != 1 {
		t.Errorf("restart reset state: status=%s violations=%d", second.Status, len(second.Violations))
	}
	if f.bank.calls != 1 {
		t.Errorf("question bank queried %d times, want 1", f.bank.calls)
	}
	if f.store.creates != 1 {
		t.Errorf("creates = %d, want 1", f.store.creates)
	}
}

func TestStartWindowGating(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		wantErr error
	}{
		{"before start", examStart.Add(-time.Minute), ErrExamNotActive},
		{"at start", examStart, nil},
		{"at end", examStart.Add(2 * time.Hour), nil},
		{"after end", examStart.Add(2*time.Hour + time.Second), ErrExamNotActive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newSessionFixture(t, SessionPolicy{})
			f.now = tc.now
			_, err := f.svc.Start(context.Background(), f.exam.ID, "student-1")
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Start err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestStartExistingSessionSkipsWindowCheck(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	f.start(t, "student-1")

	f.now = f.exam.EndTime.Add(time.Hour)
	if _, err := f.svc.Start(context.Background(), f.exam.ID, "student-1"); err != nil {
		t.Errorf("existing session must be returned after the window closes: %v", err)
	}
}

func TestStartUnknownExam(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	_, err := f.svc.Start(context.Background(), uuid.New(), "student-1")
	if !errors.Is(err, ErrExamNotFound) {
		t.Errorf("err = %v, want ErrExamNotFound", err)
	}
}

func TestStartEmptyPoolCreatesEmptySession(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	f.bank.questions = nil

	s := f.start(t, "student-1")
	if len(s.Questions) != 0 {
		t.Errorf("questions = %d, want 0", len(s.Questions))
	}
}

func TestConcurrentStartCreatesOnce(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})

	const n = 16
	var wg sync.WaitGroup
	results := make([]*model.ExamSession, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Start(context.Background(), f.exam.ID, "student-1")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
	}
	if f.store.creates != 1 {
		t.Fatalf("creates = %d, want 1", f.store.creates)
	}
	for i := 1; i < n; i++ {
		for j := range results[0].Questions {
			if results[i].Questions[j].ID != results[0].Questions[j].ID {
				t.Fatalf("start %d returned a different question set", i)
			}
		}
	}
}

func TestStartWithoutLockStillCreatesOnce(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	f.locker.refuse = true

	a := f.start(t, "student-1")
	b := f.start(t, "student-1")
	if f.store.creates != 1 || a.Questions[0].ID != b.Questions[0].ID {
		t.Errorf("creates = %d, want a single session", f.store.creates)
	}
}

func TestStartReleasesLock(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	f.start(t, "student-1")
	if f.locker.releases != 1 || len(f.locker.held) != 0 {
		t.Errorf("lock not released: releases=%d held=%v", f.locker.releases, f.locker.held)
	}
}

func TestStartRetriesTransientReads(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	f.store.failGets = 2

	if _, err := f.svc.Start(context.Background(), f.exam.ID, "student-1"); err != nil {
		t.Fatalf("Start should survive two transient read failures: %v", err)
	}
}

func TestViolationMonotonicity(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	f.start(t, "student-1")

	reasons := []string{"fullscreen_exit", "tab_change", "", "copy", "looked-away-from-camera"}
	var last *model.ExamSession
	for i, r := range reasons {
		f.now = f.now.Add(time.Second)
		s, err := f.svc.ReportViolation(context.Background(), f.exam.ID, "student-1", r, "")
		if err != nil {
			t.Fatalf("violation %d: %v", i, err)
		}
		last = s
	}

	if len(last.Violations) != len(reasons) {
		t.Fatalf("violations = %d, want %d", len(last.Violations), len(reasons))
	}
	for i, r := range reasons {
		want := r
		if want == "" {
			want = "Unknown"
		}
		if last.Violations[i].Reason != want {
			t.Errorf("violation %d reason = %q, want %q", i, last.Violations[i].Reason, want)
		}
		if last.Violations[i].Time.IsZero() {
			t.Errorf("violation %d has no timestamp", i)
		}
		if i > 0 && !last.Violations[i].Time.After(last.Violations[i-1].Time) {
			t.Errorf("violation %d out of order", i)
		}
	}
	if last.Status != model.SessionStatusPaused || !last.AwaitingApproval {
		t.Errorf("status = %s awaiting = %v, want paused/true", last.Status, last.AwaitingApproval)
	}
}

func TestViolationEventIDDeduplicates(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	f.start(t, "student-1")

	for i := 0; i < 3; i++ {
		if _, err := f.svc.ReportViolation(context.Background(), f.exam.ID, "student-1", "paste", "evt-1"); err != nil {
			t.Fatalf("ReportViolation: %v", err)
		}
	}
	s, _ := f.svc.GetSession(context.Background(), f.exam.ID, "student-1")
	if len(s.Violations) != 1 {
		t.Errorf("violations = %d, want 1 for a retried event", len(s.Violations))
	}
}

func TestApprovalResolution(t *testing.T) {
	for _, approve := range []bool{true, false} {
		t.Run(fmt.Sprintf("approve=%v", approve), func(t *testing.T) {
			f := newSessionFixture(t, SessionPolicy{})
			f.start(t, "student-1")
			if _, err := f.svc.ReportViolation(context.Background(), f.exam.ID, "student-1", "right_click", ""); err != nil {
				t.Fatalf("ReportViolation: %v", err)
			}

			s, err := f.svc.ResolveApproval(context.Background(), f.exam.ID, "student-1", "admin-1", approve, "reviewed")
			if err != nil {
				t.Fatalf("ResolveApproval: %v", err)
			}
			want := model.SessionStatusBlocked
			if approve {
				want = model.SessionStatusOngoing
			}
			if s.Status != want || s.AwaitingApproval {
				t.Errorf("status = %s awaiting = %v, want %s/false", s.Status, s.AwaitingApproval, want)
			}
			if len(s.Approvals) != 1 || s.Approvals[0].ApproverID != "admin-1" || s.Approvals[0].Approved != approve {
				t.Errorf("approvals = %+v", s.Approvals)
			}

			pending, err := f.svc.PendingApprovals(context.Background(), f.exam.ID)
			if err != nil {
				t.Fatalf("PendingApprovals: %v", err)
			}
			if len(pending) != 0 {
				t.Errorf("resolved session still listed as pending")
			}
			all, _ := f.svc.ListSessions(context.Background(), f.exam.ID, false)
			if len(all) != 1 || all[0].Status != want {
				t.Errorf("listing does not reflect resolution: %+v", all)
			}
		})
	}
}

func TestDeniedSessionSubmitPolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  SessionPolicy
		wantErr error
	}{
		{"default accepts", SessionPolicy{}, nil},
		{"strict rejects", SessionPolicy{StrictSubmit: true}, ErrSessionLocked},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newSessionFixture(t, tc.policy)
			f.start(t, "student-1")
			ctx := context.Background()
			if _, err := f.svc.ReportViolation(ctx, f.exam.ID, "student-1", "fullscreen_exit", ""); err != nil {
				t.Fatal(err)
			}
			if _, err := f.svc.ResolveApproval(ctx, f.exam.ID, "student-1", "admin-1", false, "policy violation"); err != nil {
				t.Fatal(err)
			}

			s, err := f.svc.Submit(ctx, f.exam.ID, "student-1", map[string]any{"q1": "a"})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Submit err = %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil {
				if s.Status != model.SessionStatusSubmitted || s.FinishedAt == nil || s.Answers["q1"] != "a" {
					t.Errorf("submitted session = %+v", s)
				}
				return
			}
			stored, _ := f.svc.GetSession(ctx, f.exam.ID, "student-1")
			if stored.Status != model.SessionStatusBlocked || stored.Answers != nil {
				t.Errorf("rejected submit changed the session: %+v", stored)
			}
		})
	}
}

func TestStrictSubmitAllowsOngoing(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{StrictSubmit: true})
	f.start(t, "student-1")
	s, err := f.svc.Submit(context.Background(), f.exam.ID, "student-1", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if s.Status != model.SessionStatusSubmitted {
		t.Errorf("status = %s", s.Status)
	}
}

func TestViolationOnBlockedSession(t *testing.T) {
	tests := []struct {
		name     string
		policy   SessionPolicy
		want     model.SessionStatus
		awaiting bool
	}{
		{"reopens review by default", SessionPolicy{}, model.SessionStatusPaused, true},
		{"stays blocked when configured", SessionPolicy{KeepBlockedOnViolation: true}, model.SessionStatusBlocked, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newSessionFixture(t, tc.policy)
			ctx := context.Background()
			f.start(t, "student-1")
			if _, err := f.svc.ReportViolation(ctx, f.exam.ID, "student-1", "copy", ""); err != nil {
				t.Fatalf("ReportViolation: %v", err)
			}
			if _, err := f.svc.ResolveApproval(ctx, f.exam.ID, "student-1", "admin-1", false, ""); err != nil {
				t.Fatalf("ResolveApproval: %v", err)
			}

			s, err := f.svc.ReportViolation(ctx, f.exam.ID, "student-1", "paste", "")
			if err != nil {
				t.Fatalf("ReportViolation: %v", err)
			}
			if s.Status != tc.want || s.AwaitingApproval != tc.awaiting {
				t.Errorf("status = %s awaiting = %v, want %s/%v", s.Status, s.AwaitingApproval, tc.want, tc.awaiting)
			}
			if len(s.Violations) != 2 {
				t.Errorf("violations = %d, want 2", len(s.Violations))
			}
		})
	}
}

func TestOperationsOnMissingSession(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	ctx := context.Background()

	if _, err := f.svc.ReportViolation(ctx, f.exam.ID, "ghost", "copy", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ReportViolation err = %v", err)
	}
	if _, err := f.svc.ResolveApproval(ctx, f.exam.ID, "ghost", "admin-1", true, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ResolveApproval err = %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.exam.ID, "ghost", nil); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Submit err = %v", err)
	}
	if _, err := f.svc.GetSession(ctx, f.exam.ID, "ghost"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession err = %v", err)
	}
	if f.store.creates != 0 {
		t.Error("no operation besides Start may create a session")
	}
}

func TestTransitionsAreAudited(t *testing.T) {
	f := newSessionFixture(t, SessionPolicy{})
	ctx := context.Background()
	f.start(t, "student-1")
	if _, err := f.svc.ReportViolation(ctx, f.exam.ID, "student-1", "copy", ""); err != nil {
		t.Fatalf("ReportViolation: %v", err)
	}
	if _, err := f.svc.ResolveApproval(ctx, f.exam.ID, "student-1", "admin-1", true, ""); err != nil {
		t.Fatalf("ResolveApproval: %v", err)
	}
	if _, err := f.svc.Submit(ctx, f.exam.ID, "student-1", nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []model.AuditAction{
		model.AuditSessionStarted,
		model.AuditViolationReported,
		model.AuditApprovalResolved,
		model.AuditSessionSubmitted,
	}
	if len(f.bus.audit) != len(want) || len(f.bus.events) != len(want) {
		t.Fatalf("audit = %d events = %d, want %d each", len(f.bus.audit), len(f.bus.events), len(want))
	}
	for i, a := range want {
		if f.bus.audit[i].Action != a {
			t.Errorf("audit[%d] = %s, want %s", i, f.bus.audit[i].Action, a)
		}
	}
	if f.bus.audit[2].ActorID != "admin-1" {
		t.Errorf("approval actor = %q, want admin-1", f.bus.audit[2].ActorID)
	}
}
