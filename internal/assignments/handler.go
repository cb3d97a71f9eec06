package assignments

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/authz"
	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/response"
)

// Store is the assignment graph persistence the handler needs.
type Store interface {
	Assign(ctx context.Context, organizerID, secretaryID uuid.UUID) error
	Unassign(ctx context.Context, organizerID, secretaryID uuid.UUID) error
	ListSecretaries(ctx context.Context, organizerID uuid.UUID) ([]models.UserPublic, error)
	IsAssigned(ctx context.Context, organizerID, secretaryID uuid.UUID) (bool, error)
}

// UserGetter resolves users for role validation.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SecretaryRequest is the body for assign/unassign calls.
type SecretaryRequest struct {
	SecretaryID string `json:"secretary_id" binding:"required,uuid"`
}

// Handler handles organizer/secretary assignment endpoints.
type Handler struct {
	store  Store
	users  UserGetter
	logger *zap.Logger
}

// NewHandler creates an assignments handler.
func NewHandler(store Store, users UserGetter, logger *zap.Logger) *Handler {
	return &Handler{store: store, users: users, logger: logger}
}

// resolveOrganizer loads the path organizer and verifies the role. Writes the
// error response and returns nil when the organizer cannot be used.
func (h *Handler) resolveOrganizer(c *gin.Context) *models.User {
	organizerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organizer id")
		return nil
	}
	organizer, err := h.users.GetByID(c.Request.Context(), organizerID)
	if err != nil || !organizer.IsOrganizer() {
		response.NotFound(c, "organizer not found")
		return nil
	}
	return organizer
}

// Assign handles POST /organizers/:id/secretaries/assign.
func (h *Handler) Assign(c *gin.Context) {
	organizer := h.resolveOrganizer(c)
	if organizer == nil {
		return
	}

	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionAssign, authz.Assignment{OrganizerID: organizer.ID}) {
		response.Forbidden(c, "not allowed to manage this organizer's secretaries")
		return
	}

	var req SecretaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	secretaryID, _ := uuid.Parse(req.SecretaryID)
	secretary, err := h.users.GetByID(c.Request.Context(), secretaryID)
	if err != nil {
		response.NotFound(c, "secretary not found")
		return
	}
	if !secretary.IsSecretary() {
		response.BadRequest(c, "user is not a secretary")
		return
	}

	if err := h.store.Assign(c.Request.Context(), organizer.ID, secretary.ID); err != nil {
		h.logger.Error("assign secretary", zap.Error(err))
		response.Internal(c, "failed to assign secretary")
		return
	}
	response.OK(c, models.SecretaryAssignment{OrganizerID: organizer.ID, SecretaryID: secretary.ID})
}

// Unassign handles POST /organizers/:id/secretaries/unassign. Detaching an
// unattached secretary succeeds.
func (h *Handler) Unassign(c *gin.Context) {
	organizer := h.resolveOrganizer(c)
	if organizer == nil {
		return
	}

	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUnassign, authz.Assignment{OrganizerID: organizer.ID}) {
		response.Forbidden(c, "not allowed to manage this organizer's secretaries")
		return
	}

	var req SecretaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	secretaryID, _ := uuid.Parse(req.SecretaryID)

	if err := h.store.Unassign(c.Request.Context(), organizer.ID, secretaryID); err != nil {
		h.logger.Error("unassign secretary", zap.Error(err))
		response.Internal(c, "failed to unassign secretary")
		return
	}
	response.OK(c, models.SecretaryAssignment{OrganizerID: organizer.ID, SecretaryID: secretaryID})
}

// List handles GET /organizers/:id/secretaries.
func (h *Handler) List(c *gin.Context) {
	organizer := h.resolveOrganizer(c)
	if organizer == nil {
		return
	}

	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionViewAny, authz.Assignment{OrganizerID: organizer.ID}) {
		response.Forbidden(c, "not allowed to view this organizer's secretaries")
		return
	}

	list, err := h.store.ListSecretaries(c.Request.Context(), organizer.ID)
	if err != nil {
		response.Internal(c, "failed to list secretaries")
		return
	}
	response.OK(c, list)
}
