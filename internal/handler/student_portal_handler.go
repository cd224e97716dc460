package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/validator"
)

// StudentPortalHandler handles the endpoints a student's exam client calls.
// Every session operation acts on the caller's own session.
type StudentPortalHandler struct {
	examService    ExamOperations
	sessionService SessionOperations
	profiles       ProfileOperations
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(examService ExamOperations, sessionService SessionOperations, profiles ProfileOperations, log zerolog.Logger) *StudentPortalHandler {
	return &StudentPortalHandler{
		examService:    examService,
		sessionService: sessionService,
		profiles:       profiles,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/exams/student
// Lists live and upcoming exams the caller is eligible for.
func (h *StudentPortalHandler) ListExams(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	profile, err := h.profiles.Profile(c.Request.Context(), ident.UserID)
	if err != nil {
		failWithServiceError(c, h.log, "list_exams_student", err)
		return
	}

	exams, err := h.examService.ListForStudent(c.Request.Context(), profile)
	if err != nil {
		failWithServiceError(c, h.log, "list_exams_student", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// StartExam godoc
// POST /api/exams/:examId/start
func (h *StudentPortalHandler) StartExam(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), examID, ident.UserID)
	if err != nil {
		failWithServiceError(c, h.log, "start", err)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		failWithServiceError(c, h.log, "start", err)
		return
	}
	response.Success(c, http.StatusOK, model.StartExamResponse{Exam: exam, Session: session})
}

// GetSession godoc
// GET /api/exams/:examId/session
// Polled by the exam client while waiting for an approval decision.
func (h *StudentPortalHandler) GetSession(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), examID, ident.UserID)
	if err != nil {
		failWithServiceError(c, h.log, "get_session", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// ReportViolation godoc
// POST /api/exams/:examId/violation
func (h *StudentPortalHandler) ReportViolation(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.ReportViolation(c.Request.Context(), examID, ident.UserID, req.Reason, req.EventID)
	if err != nil {
		failWithServiceError(c, h.log, "report_violation", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// SubmitExam godoc
// POST /api/exams/:examId/submit
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.SubmitExamRequest
	if fields := validator.BindOptional(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Submit(c.Request.Context(), examID, ident.UserID, req.Answers)
	if err != nil {
		failWithServiceError(c, h.log, "submit", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}
