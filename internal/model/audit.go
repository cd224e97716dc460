package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction names a recorded session transition.
type AuditAction string

const (
	AuditSessionStarted    AuditAction = "session_started"
	AuditViolationReported AuditAction = "violation_reported"
	AuditApprovalResolved  AuditAction = "approval_resolved"
	AuditSessionSubmitted  AuditAction = "session_submitted"
)

// AuditEntry is one row of the session audit trail.
type AuditEntry struct {
	ID         int64           `json:"id,omitempty"`
	ExamID     uuid.UUID       `json:"exam_id"`
	UserID     string          `json:"user_id"`
	ActorID    string          `json:"actor_id"`
	Action     AuditAction     `json:"action"`
	Status     SessionStatus   `json:"status"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// SessionEvent is pushed to monitors whenever a session changes.
type SessionEvent struct {
	Type    AuditAction  `json:"type"`
	ExamID  uuid.UUID    `json:"exam_id"`
	UserID  string       `json:"user_id"`
	Session *ExamSession `json:"session"`
}
