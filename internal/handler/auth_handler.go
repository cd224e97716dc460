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

// AuthHandler serves the caller's identity and profile.
type AuthHandler struct {
	profiles ProfileOperations
	log      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(profiles ProfileOperations, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{profiles: profiles, log: log.With().Str("component", "auth_handler").Logger()}
}

// Me godoc
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	profile, err := h.profiles.Profile(c.Request.Context(), ident.UserID)
	if err != nil {
		failWithServiceError(c, h.log, "me", err)
		return
	}

	role := model.RoleStudent
	if profile != nil && profile.Role != "" {
		role = profile.Role
	}
	response.Success(c, http.StatusOK, model.MeResponse{
		UID:     ident.UserID,
		Email:   ident.Email,
		Role:    role,
		Profile: profile,
	})
}

// UpdateProfile godoc
// POST /api/auth/profile
// Sets the caller's name, year and department.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	ident := middleware.GetIdentity(c)
	if ident == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), ident, req)
	if err != nil {
		failWithServiceError(c, h.log, "update_profile", err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}
