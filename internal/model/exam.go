package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DepartmentGeneral is the catch-all department: exams in it are visible to
// every department, questions are not filtered by department.
const DepartmentGeneral = "general"

// Exam represents a scheduled exam. Exams are immutable once created.
type Exam struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Department          string    `json:"department"`
	Year                int       `json:"year"`
	Section             string    `json:"section"`
	DurationMinutes     int       `json:"duration_minutes"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	RandomQuestionCount int       `json:"random_question_count"`
	CreatedBy           string    `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"`
}

// ExamWindow classifies an exam against the current time.
type ExamWindow string

const (
	ExamWindowLive     ExamWindow = "live"
	ExamWindowUpcoming ExamWindow = "upcoming"
	ExamWindowEnded    ExamWindow = "ended"
)

// ExamListing is an exam decorated with its window classification.
type ExamListing struct {
	Exam
	Status     ExamWindow `json:"status"`
	IsLive     bool       `json:"is_live"`
	IsUpcoming bool       `json:"is_upcoming"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Name                string      `json:"name" binding:"required,min=1,max=255"`
	Year                FlexibleInt `json:"year" binding:"required,min=1,max=10"`
	Department          string      `json:"department" binding:"omitempty,max=64,label"`
	Section             string      `json:"section" binding:"omitempty,max=64,label"`
	DurationMinutes     FlexibleInt `json:"durationMinutes" binding:"required,min=1,max=1440"`
	StartTime           *time.Time  `json:"startTime" binding:"required"`
	EndTime             *time.Time  `json:"endTime" binding:"required,gtfield=StartTime"`
	RandomQuestionCount FlexibleInt `json:"randomQuestionCount" binding:"required,min=1,max=500"`
}

// NormalizeDepartment lowercases and trims a department, defaulting to "general".
func NormalizeDepartment(d string) string {
	return normalizeLabel(d)
}

// NormalizeSection lowercases and trims a section label, defaulting to "general".
func NormalizeSection(s string) string {
	return normalizeLabel(s)
}

func normalizeLabel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return DepartmentGeneral
	}
	return v
}
