package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/middleware"
	"github.com/stemsi/proctor-backend/internal/model"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/validator"
)

// ExamHandler handles administrator exam and session endpoints.
type ExamHandler struct {
	examService    ExamOperations
	sessionService SessionOperations
	monitorService MonitorOperations
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService ExamOperations, sessionService SessionOperations, monitorService MonitorOperations, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		sessionService: sessionService,
		monitorService: monitorService,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// CreateExam godoc
// POST /api/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), req, ident.UserID)
	if err != nil {
		failWithServiceError(c, h.log, "create_exam", err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// ListExams godoc
// GET /api/exams/admin
// Lists every exam with its live/upcoming/ended status.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.ListForAdmin(c.Request.Context())
	if err != nil {
		failWithServiceError(c, h.log, "list_exams_admin", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// ListSessions godoc
// GET /api/exams/:examId/sessions?pending=true
func (h *ExamHandler) ListSessions(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}
	pending, _ := strconv.ParseBool(c.DefaultQuery("pending", "false"))

	sessions, err := h.sessionService.ListSessions(c.Request.Context(), examID, pending)
	if err != nil {
		failWithServiceError(c, h.log, "list_sessions", err)
		return
	}

	awaiting := 0
	for _, s := range sessions {
		if s.AwaitingApproval {
			awaiting++
		}
	}
	response.Success(c, http.StatusOK, gin.H{
		"sessions":          sessions,
		"total":             len(sessions),
		"awaiting_approval": awaiting,
	})
}

// ResolveApproval godoc
// POST /api/exams/:examId/sessions/:userId/approve
func (h *ExamHandler) ResolveApproval(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	examID, ok := parseExamID(c)
	if !ok {
		return
	}
	userID := strings.TrimSpace(c.Param("userId"))
	if userID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ApproveSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.ResolveApproval(c.Request.Context(), examID, userID, ident.UserID, *req.Approve, req.Note)
	if err != nil {
		failWithServiceError(c, h.log, "resolve_approval", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// AuditTrail godoc
// GET /api/exams/:examId/sessions/:userId/audit
func (h *ExamHandler) AuditTrail(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}
	entries, err := h.monitorService.AuditTrail(c.Request.Context(), examID, c.Param("userId"))
	if err != nil {
		failWithServiceError(c, h.log, "audit_trail", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entries": entries})
}
