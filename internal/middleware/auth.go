package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/response"
)

// UserLoader resolves a user ID to the current user record.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth returns a middleware that validates the bearer JWT, rejects revoked
// tokens, and loads the acting user into the request context. The user is
// fetched on every request so role and account changes apply immediately.
func Auth(jwtService *auth.JWTService, revoker auth.Revoker, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		revoked, err := revoker.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil || revoked {
			response.Unauthorized(c, "token revoked")
			c.Abort()
			return
		}
		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Unauthorized(c, "account no longer exists")
			c.Abort()
			return
		}
		c.Set(auth.ContextClaims, claims)
		c.Set(auth.ContextUser, user)
		c.Next()
	}
}
