package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/eventia/ticketing-backend/internal/models"
)

const (
	// ContextUser is the gin context key for the authenticated user.
	ContextUser = "current_user"
	// ContextClaims is the gin context key for the validated token claims.
	ContextClaims = "auth_claims"
)

// CurrentUser returns the authenticated actor set by the JWT middleware.
// The actor is loaded fresh from the database on every request, so role
// changes take effect immediately.
func CurrentUser(c *gin.Context) *models.User {
	return c.MustGet(ContextUser).(*models.User)
}

// CurrentClaims returns the validated token claims set by the JWT middleware.
func CurrentClaims(c *gin.Context) *Claims {
	return c.MustGet(ContextClaims).(*Claims)
}
