package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/service"
)

// ExamOperations is the exam surface the handlers call.
type ExamOperations interface {
	Create(ctx context.Context, req model.CreateExamRequest, creatorID string) (*model.Exam, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListForAdmin(ctx context.Context) ([]model.ExamListing, error)
	ListForStudent(ctx context.Context, student *model.User) ([]model.ExamListing, error)
}

// SessionOperations is the session state machine surface the handlers call.
type SessionOperations interface {
	Start(ctx context.Context, examID uuid.UUID, userID string) (*model.ExamSession, error)
	ReportViolation(ctx context.Context, examID uuid.UUID, userID, reason, eventID string) (*model.ExamSession, error)
	ResolveApproval(ctx context.Context, examID uuid.UUID, userID, approverID string, approve bool, note string) (*model.ExamSession, error)
	Submit(ctx context.Context, examID uuid.UUID, userID string, answers map[string]any) (*model.ExamSession, error)
	GetSession(ctx context.Context, examID uuid.UUID, userID string) (*model.ExamSession, error)
	ListSessions(ctx context.Context, examID uuid.UUID, pendingOnly bool) ([]model.ExamSession, error)
}

// ProfileOperations reads and writes user profiles.
type ProfileOperations interface {
	Profile(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, ident *service.Identity, req model.UpdateProfileRequest) (*model.User, error)
}

// MonitorOperations backs the admin monitor and audit views.
type MonitorOperations interface {
	Snapshot(ctx context.Context, examID uuid.UUID) (*service.MonitorSnapshot, error)
	AuditTrail(ctx context.Context, examID uuid.UUID, userID string) ([]model.AuditEntry, error)
}

// ViolationLimiter throttles violation reports per user.
type ViolationLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}
