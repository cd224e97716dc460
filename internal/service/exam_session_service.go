package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/config"
	"github.com/stemsi/proctor-backend/internal/logger"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/repository"
)

// SessionStore is the session document store.
type SessionStore interface {
	Get(ctx context.Context, key model.SessionKey) (*model.ExamSession, error)
	CreateIfAbsent(ctx context.Context, s *model.ExamSession) (*model.ExamSession, bool, error)
	Merge(ctx context.Context, key model.SessionKey, patch repository.SessionPatch) (*model.ExamSession, error)
	AppendTo(ctx context.Context, key model.SessionKey, field repository.ListField, record any, dedupeID string, patch repository.SessionPatch) (*model.ExamSession, bool, error)
	ListByExam(ctx context.Context, examID uuid.UUID, pendingOnly bool) ([]model.ExamSession, error)
}

// ExamReader resolves exams; missing exams yield ErrExamNotFound.
type ExamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// Locker provides per-key mutual exclusion with expiry.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// SessionPolicy holds the tunable parts of the state machine.
type SessionPolicy struct {
	// StrictSubmit rejects submission of paused or blocked sessions.
	StrictSubmit bool
	// KeepBlockedOnViolation leaves a blocked session blocked when a new
	// violation arrives; the record is still appended.
	KeepBlockedOnViolation bool
	StartLockTTL           time.Duration
}

// PolicyFromConfig extracts the session policy from cfg.
func PolicyFromConfig(cfg *config.Config) SessionPolicy {
	return SessionPolicy{
		StrictSubmit:           cfg.StrictSubmit,
		KeepBlockedOnViolation: cfg.KeepBlockedOnViolation,
		StartLockTTL:           cfg.StartLockTTL,
	}
}

// ExamSessionService runs the session state machine:
//
//	start      -> ongoing
//	violation  -> paused, awaiting approval
//	approve    -> ongoing | blocked
//	submit     -> submitted
type ExamSessionService struct {
	store    SessionStore
	exams    ExamReader
	selector *QuestionSelector
	locker   Locker
	events   EventPublisher
	audit    AuditSink
	policy   SessionPolicy
	log      zerolog.Logger
	now      func() time.Time
}

// NewExamSessionService creates a new ExamSessionService. locker, events and
// audit may be nil.
func NewExamSessionService(
	store SessionStore,
	exams ExamReader,
	selector *QuestionSelector,
	locker Locker,
	events EventPublisher,
	audit AuditSink,
	policy SessionPolicy,
	log zerolog.Logger,
) *ExamSessionService {
	if policy.StartLockTTL <= 0 {
		policy.StartLockTTL = 10 * time.Second
	}
	return &ExamSessionService{
		store:    store,
		exams:    exams,
		selector: selector,
		locker:   locker,
		events:   events,
		audit:    audit,
		policy:   policy,
		log:      log.With().Str("component", "exam_session_service").Logger(),
		now:      time.Now,
	}
}

// Start returns the caller's session, creating it on first call while the
// exam is live. An existing session is returned unchanged.
func (s *ExamSessionService) Start(ctx context.Context, examID uuid.UUID, userID string) (*model.ExamSession, error) {
	log := logger.ForSession(s.log, "start", examID.String(), userID)
	key := model.SessionKey{ExamID: examID, UserID: userID}

	existing, err := s.getSession(ctx, key)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		log.Error().Err(err).Msg("Failed to read session")
		return nil, err
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		log.Warn().Err(err).Msg("Start rejected")
		return nil, err
	}
	if Classify(exam.StartTime, exam.EndTime, s.now()) != model.ExamWindowLive {
		log.Warn().Msg("Start rejected: exam not live")
		return nil, ErrExamNotActive
	}

	release := s.lock(ctx, log, config.CacheKey.SessionStartLockKey(examID.String(), userID))
	defer release()

	// A concurrent start may have finished while we waited for the lock.
	if existing, err := s.getSession(ctx, key); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrSessionNotFound) {
		log.Error().Err(err).Msg("Failed to re-read session")
		return nil, err
	}

	questions, err := s.selector.Draw(ctx, exam)
	if err != nil {
		log.Error().Err(err).Msg("Failed to draw questions")
		return nil, fmt.Errorf("draw questions: %w", err)
	}

	session, created, err := s.store.CreateIfAbsent(ctx, &model.ExamSession{
		ExamID:     examID,
		UserID:     userID,
		Status:     model.SessionStatusOngoing,
		Questions:  questions,
		Violations: []model.ViolationRecord{},
		Approvals:  []model.ApprovalRecord{},
		StartedAt:  s.now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		return nil, fmt.Errorf("create session: %w", err)
	}
	if created {
		log.Info().Int("questions", len(session.Questions)).Msg("Session started")
		s.notify(ctx, log, model.AuditSessionStarted, userID, session, map[string]any{"questions": len(session.Questions)})
	}
	return session, nil
}

// ReportViolation records a violation and pauses the session for review.
// An empty reason is stored as "Unknown". When eventID is set, repeated
// deliveries of the same report are recorded once.
func (s *ExamSessionService) ReportViolation(ctx context.Context, examID uuid.UUID, userID, reason, eventID string) (*model.ExamSession, error) {
	log := logger.ForSession(s.log, "report_violation", examID.String(), userID)
	if reason == "" {
		reason = string(model.ViolationUnknown)
	}

	record := model.ViolationRecord{EventID: eventID, Reason: reason, Time: s.now().UTC()}
	patch := repository.SessionPatch{
		Status:           statusPtr(model.SessionStatusPaused),
		AwaitingApproval: boolPtr(true),
	}
	if s.policy.KeepBlockedOnViolation {
		patch.PreserveStatuses = []model.SessionStatus{model.SessionStatusBlocked}
	}

	session, appended, err := s.store.AppendTo(ctx, model.SessionKey{ExamID: examID, UserID: userID},
		repository.ViolationsField, record, eventID, patch)
	if err != nil {
		err = mapStoreErr(err)
		log.Error().Err(err).Str("reason", reason).Msg("Failed to record violation")
		return nil, err
	}
	if !appended {
		log.Debug().Str("event_id", eventID).Msg("Duplicate violation ignored")
		return session, nil
	}

	log.Info().Str("reason", reason).Bool("known_reason", model.ViolationReason(reason).IsKnown()).
		Int("violations", len(session.Violations)).Msg("Violation recorded")
	s.notify(ctx, log, model.AuditViolationReported, userID, session, record)
	return session, nil
}

// ResolveApproval records an administrator decision and resumes or blocks the session.
func (s *ExamSessionService) ResolveApproval(ctx context.Context, examID uuid.UUID, userID, approverID string, approve bool, note string) (*model.ExamSession, error) {
	log := logger.ForSession(s.log, "resolve_approval", examID.String(), userID)

	next := model.SessionStatusBlocked
	if approve {
		next = model.SessionStatusOngoing
	}
	record := model.ApprovalRecord{ApproverID: approverID, Approved: approve, Note: note, Time: s.now().UTC()}

	session, _, err := s.store.AppendTo(ctx, model.SessionKey{ExamID: examID, UserID: userID},
		repository.ApprovalsField, record, "", repository.SessionPatch{
			Status:           &next,
			AwaitingApproval: boolPtr(false),
		})
	if err != nil {
		err = mapStoreErr(err)
		log.Error().Err(err).Str("approver_id", approverID).Msg("Failed to record approval")
		return nil, err
	}

	log.Info().Str("approver_id", approverID).Bool("approved", approve).Msg("Approval resolved")
	s.notify(ctx, log, model.AuditApprovalResolved, approverID, session, record)
	return session, nil
}

// Submit records the answers and closes the session. Under StrictSubmit a
// paused or blocked session is rejected with ErrSessionLocked.
func (s *ExamSessionService) Submit(ctx context.Context, examID uuid.UUID, userID string, answers map[string]any) (*model.ExamSession, error) {
	log := logger.ForSession(s.log, "submit", examID.String(), userID)
	if answers == nil {
		answers = map[string]any{}
	}
	finished := s.now().UTC()
	patch := repository.SessionPatch{
		Status:     statusPtr(model.SessionStatusSubmitted),
		Answers:    answers,
		FinishedAt: &finished,
	}
	if s.policy.StrictSubmit {
		patch.OnlyIfStatus = []model.SessionStatus{model.SessionStatusOngoing, model.SessionStatusSubmitted}
	}

	session, err := s.store.Merge(ctx, model.SessionKey{ExamID: examID, UserID: userID}, patch)
	if err != nil {
		err = mapStoreErr(err)
		log.Error().Err(err).Msg("Failed to submit session")
		return nil, err
	}

	log.Info().Int("answers", len(answers)).Msg("Session submitted")
	s.notify(ctx, log, model.AuditSessionSubmitted, userID, session, map[string]any{"answers": len(answers)})
	return session, nil
}

// GetSession returns one session.
func (s *ExamSessionService) GetSession(ctx context.Context, examID uuid.UUID, userID string) (*model.ExamSession, error) {
	return s.getSession(ctx, model.SessionKey{ExamID: examID, UserID: userID})
}

// ListSessions returns every session of an exam, or only those awaiting
// approval when pendingOnly is set. Reads go to the primary store, so a
// completed resolution is always visible.
func (s *ExamSessionService) ListSessions(ctx context.Context, examID uuid.UUID, pendingOnly bool) ([]model.ExamSession, error) {
	sessions, err := retryRead(ctx, func(ctx context.Context) ([]model.ExamSession, error) {
		return s.store.ListByExam(ctx, examID, pendingOnly)
	})
	if err != nil {
		s.log.Error().Err(err).Str("op", "list_sessions").Str("exam_id", examID.String()).Msg("Failed to list sessions")
		return nil, mapStoreErr(err)
	}
	return sessions, nil
}

// PendingApprovals returns the sessions awaiting an administrator decision.
func (s *ExamSessionService) PendingApprovals(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	return s.ListSessions(ctx, examID, true)
}

func (s *ExamSessionService) getSession(ctx context.Context, key model.SessionKey) (*model.ExamSession, error) {
	session, err := retryRead(ctx, func(ctx context.Context) (*model.ExamSession, error) {
		return s.store.Get(ctx, key)
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return session, nil
}

// lock takes the per-key start lock. Lock failures only lose the fast path:
// the store's conditional insert still guarantees a single session.
func (s *ExamSessionService) lock(ctx context.Context, log zerolog.Logger, key string) func() {
	if s.locker == nil {
		return func() {}
	}
	token, ok, err := s.locker.Acquire(ctx, key, s.policy.StartLockTTL)
	if err != nil {
		log.Warn().Err(err).Msg("Start lock unavailable, relying on conditional insert")
		return func() {}
	}
	if !ok {
		log.Debug().Msg("Start lock held by a concurrent request")
		return func() {}
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			log.Warn().Err(err).Msg("Failed to release start lock")
		}
	}
}

// notify publishes the change and queues its audit entry. Both are best effort.
func (s *ExamSessionService) notify(ctx context.Context, log zerolog.Logger, action model.AuditAction, actorID string, session *model.ExamSession, detail any) {
	if s.events != nil {
		ev := model.SessionEvent{Type: action, ExamID: session.ExamID, UserID: session.UserID, Session: session}
		if err := s.events.Publish(ctx, ev); err != nil {
			log.Warn().Err(err).Str("event", string(action)).Msg("Failed to publish session event")
		}
	}
	if s.audit != nil {
		raw, _ := json.Marshal(detail)
		entry := model.AuditEntry{
			ExamID:     session.ExamID,
			UserID:     session.UserID,
			ActorID:    actorID,
			Action:     action,
			Status:     session.Status,
			Detail:     raw,
			RecordedAt: s.now().UTC(),
		}
		if err := s.audit.Enqueue(ctx, entry); err != nil {
			log.Warn().Err(err).Str("event", string(action)).Msg("Failed to queue audit entry")
		}
	}
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrPreconditionFailed):
		return ErrSessionLocked
	default:
		return err
	}
}

func statusPtr(s model.SessionStatus) *model.SessionStatus { return &s }

func boolPtr(b bool) *bool { return &b }
