package service

import "errors"

// Domain errors returned by the services. Handlers map them to HTTP codes.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamNotActive     = errors.New("exam not active")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionLocked     = errors.New("session is paused or blocked")
	ErrProfileIncomplete = errors.New("user profile (year, department) not set")
	ErrInvalidExam       = errors.New("invalid exam")
)
