package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusBlocked   SessionStatus = "blocked"
	SessionStatusSubmitted SessionStatus = "submitted"
)

// Terminal reports whether no further transition is defined from s
// (violations aside, see ExamSessionService.ReportViolation).
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusSubmitted || s == SessionStatusBlocked
}

// SessionQuestion is a question reference frozen into a session at creation.
type SessionQuestion struct {
	ID      uuid.UUID `json:"id"`
	Prompt  string    `json:"prompt"`
	Choices []string  `json:"choices"`
}

// ViolationRecord is one client-detected integrity signal.
type ViolationRecord struct {
	EventID string    `json:"event_id,omitempty"`
	Reason  string    `json:"reason"`
	Time    time.Time `json:"time"`
}

// ApprovalRecord is one administrator decision on a paused session.
type ApprovalRecord struct {
	ApproverID string    `json:"approver_id"`
	Approved   bool      `json:"approved"`
	Note       string    `json:"note"`
	Time       time.Time `json:"time"`
}

// ExamSession is one student's attempt at one exam, keyed by (ExamID, UserID).
type ExamSession struct {
	ExamID           uuid.UUID         `json:"exam_id"`
	UserID           string            `json:"user_id"`
	Status           SessionStatus     `json:"status"`
	Questions        []SessionQuestion `json:"questions"`
	Violations       []ViolationRecord `json:"violations"`
	Approvals        []ApprovalRecord  `json:"approvals"`
	AwaitingApproval bool              `json:"awaiting_approval"`
	StartedAt        time.Time         `json:"started_at"`
	FinishedAt       *time.Time        `json:"finished_at,omitempty"`
	Answers          map[string]any    `json:"answers,omitempty"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SessionKey addresses a single session document.
type SessionKey struct {
	ExamID uuid.UUID
	UserID string
}

// Key returns the document key of s.
func (s *ExamSession) Key() SessionKey {
	return SessionKey{ExamID: s.ExamID, UserID: s.UserID}
}

// StartExamResponse is returned by the start endpoint.
type StartExamResponse struct {
	Exam    *Exam        `json:"exam"`
	Session *ExamSession `json:"session"`
}

// SubmitExamRequest is the payload for submitting answers.
type SubmitExamRequest struct {
	Answers map[string]any `json:"answers"`
}

// ReportViolationRequest is the payload for a violation report. EventID is
// optional; when set, retries of the same report are recorded once.
type ReportViolationRequest struct {
	Reason  string `json:"reason" binding:"max=500"`
	EventID string `json:"event_id" binding:"omitempty,max=64"`
}

// ApproveSessionRequest is the payload for an administrator decision.
type ApproveSessionRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note" binding:"max=1000"`
}
