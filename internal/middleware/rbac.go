package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/proctor-backend/internal/response"
)

// RoleChecker looks up whether a user holds admin privilege.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin must run after RequireAuth. It rejects callers whose profile
// does not carry the admin role.
func RequireAdmin(roles RoleChecker, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := GetIdentity(c)
		if ident == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		ok, err := roles.IsAdmin(c.Request.Context(), ident.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", ident.UserID).Msg("Role lookup failed")
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrStoreUnavailable)
			return
		}
		if !ok {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}
		c.Next()
	}
}
