package websocket

import "github.com/stemsi/proctor-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// RequestEnvelope carries every client message; fields are read per action.
type RequestEnvelope struct {
	Action  Action `json:"action"`
	Reason  string `json:"reason,omitempty"`
	EventID string `json:"event_id,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSession Event = "session"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// SessionResponse pushes the current session document.
type SessionResponse struct {
	Event   Event              `json:"event"`
	Cause   model.AuditAction  `json:"cause,omitempty"`
	Session *model.ExamSession `json:"session"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
