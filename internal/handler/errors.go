package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/repository"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
)

// failWithServiceError maps a service error onto the response envelope.
// Unexpected errors are logged and reported as internal errors.
func failWithServiceError(c *gin.Context, log zerolog.Logger, op string, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrExamNotActive):
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotActive)
	case errors.Is(err, service.ErrProfileIncomplete):
		response.Fail(c, http.StatusBadRequest, response.ErrProfileIncomplete)
	case errors.Is(err, service.ErrInvalidExam):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"endTime": err.Error()})
	case errors.Is(err, service.ErrSessionLocked):
		response.Fail(c, http.StatusConflict, response.ErrSessionLocked)
	case errors.Is(err, repository.ErrStoreUnavailable):
		log.Error().Err(err).Str("op", op).Msg("Store unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
	default:
		log.Error().Err(err).Str("op", op).Msg("Unhandled error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// parseExamID reads the :examId path parameter, writing a 400 on failure.
func parseExamID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("examId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
