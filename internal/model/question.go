package model

import (
	"time"

	"github.com/google/uuid"
)

// Question is a question-bank entry. The core only reads it through a filtered lookup.
type Question struct {
	ID         uuid.UUID `json:"id"`
	Prompt     string    `json:"prompt"`
	Choices    []string  `json:"choices"`
	Answer     string    `json:"answer"`
	Year       int       `json:"year"`
	Department string    `json:"department"`
	Section    string    `json:"section"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// QuestionFilter scopes a question-bank lookup. An empty Department means
// "any department".
type QuestionFilter struct {
	Section    string
	Year       int
	Department string
}

// ForStudent strips the correct answer so the question can be frozen into a session.
func (q Question) ForStudent() SessionQuestion {
	return SessionQuestion{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Choices: q.Choices,
	}
}
