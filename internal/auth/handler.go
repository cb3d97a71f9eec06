package auth

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/response"
	"github.com/eventia/ticketing-backend/pkg/utils"
)

// UserStore is the user persistence the auth endpoints need.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	store   UserStore
	jwt     *JWTService
	revoker Revoker
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(store UserStore, jwt *JWTService, revoker Revoker, logger *zap.Logger) *Handler {
	return &Handler{store: store, jwt: jwt, revoker: revoker, logger: logger}
}

// Register handles POST /auth/register. Public self-registration: it does not
// consult the authorization engine.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		response.BadRequest(c, "invalid role")
		return
	}

	if _, err := h.store.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hash,
		Role:     role,
	}
	if err := h.store.Create(c.Request.Context(), user); err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Logout handles POST /auth/logout. The presented token is denylisted for its
// remaining lifetime.
func (h *Handler) Logout(c *gin.Context) {
	claims := CurrentClaims(c)
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := h.revoker.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
		h.logger.Error("revoke token", zap.Error(err))
		response.Internal(c, "failed to log out")
		return
	}
	response.OK(c, gin.H{"message": "logged out"})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user := CurrentUser(c)
	response.OK(c, user.ToPublic())
}
