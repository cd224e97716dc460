package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/proctor-backend/internal/response"
	"github.com/stemsi/proctor-backend/internal/service"
)

const (
	// ContextKeyIdentity is the Gin context key for the verified caller.
	ContextKeyIdentity = "identity"
)

// TokenVerifier verifies a bearer token.
type TokenVerifier interface {
	ValidateToken(token string) (*service.Identity, error)
}

// RequireAuth validates a bearer token from the Authorization header, falling
// back to the ?token= query parameter for EventSource and WebSocket clients.
func RequireAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		ident, err := verifier.ValidateToken(tokenStr)
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		c.Set(ContextKeyIdentity, ident)
		c.Next()
	}
}

// GetIdentity retrieves the verified caller from the Gin context.
func GetIdentity(c *gin.Context) *service.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	ident, ok := val.(*service.Identity)
	if !ok {
		return nil
	}
	return ident
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}
