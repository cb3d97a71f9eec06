package users

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/authz"
	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/response"
	"github.com/eventia/ticketing-backend/pkg/utils"
)

// Store is the user persistence the handler needs.
type Store interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateRequest is the body for POST /users (administrator-created accounts).
type CreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
}

// UpdateRequest is the body for PUT /users/:id. All fields optional.
type UpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=8"`
	Role     *string `json:"role"`
}

// Handler handles user HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a users handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// List handles GET /users. An attendee sees only their own record.
func (h *Handler) List(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if actor.IsAttendee() {
		response.OK(c, []models.UserPublic{actor.ToPublic()})
		return
	}
	if !authz.Allowed(*actor, authz.ActionViewAny, authz.Account{}) {
		response.Forbidden(c, "not allowed to list users")
		return
	}
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// Get handles GET /users/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	user, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionView, authz.Account{UserID: user.ID}) {
		response.Forbidden(c, "not allowed to view this user")
		return
	}
	response.OK(c, user.ToPublic())
}

// Create handles POST /users. Administrator-only account creation, distinct
// from public self-registration.
func (h *Handler) Create(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionCreate, authz.Account{}) {
		response.Forbidden(c, "not allowed to create users")
		return
	}

	var req CreateRequest
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
	user := &models.User{Name: req.Name, Email: req.Email, Password: hash, Role: role}
	if err := h.store.Create(c.Request.Context(), user); err != nil {
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	response.Created(c, user.ToPublic())
}

// Update handles PUT /users/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	user, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUpdate, authz.Account{UserID: user.ID}) {
		response.Forbidden(c, "not allowed to update this user")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil && *req.Email != user.Email {
		if _, err := h.store.GetByEmail(c.Request.Context(), *req.Email); err == nil {
			response.Conflict(c, "email already in use")
			return
		}
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			response.Internal(c, "failed to hash password")
			return
		}
		user.Password = hash
	}
	if req.Role != nil {
		role, ok := models.ParseRole(*req.Role)
		if !ok {
			response.BadRequest(c, "invalid role")
			return
		}
		user.Role = role
	}

	if err := h.store.Update(c.Request.Context(), user); err != nil {
		h.logger.Error("update user", zap.Error(err))
		response.Internal(c, "failed to update user")
		return
	}
	response.OK(c, user.ToPublic())
}

// Delete handles DELETE /users/:id. Administrators only, and never their own
// account.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	user, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionDelete, authz.Account{UserID: user.ID}) {
		response.Forbidden(c, "not allowed to delete this user")
		return
	}
	if err := h.store.Delete(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("delete user", zap.Error(err))
		response.Internal(c, "failed to delete user")
		return
	}
	response.NoContent(c)
}
