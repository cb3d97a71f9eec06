package invitations

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

// Store is the invitation persistence the handler needs.
type Store interface {
	Create(ctx context.Context, inv *models.Invitation) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	List(ctx context.Context) ([]models.Invitation, error)
	ListByAttendee(ctx context.Context, attendeeID uuid.UUID) ([]models.Invitation, error)
	UpdateRSVP(ctx context.Context, id uuid.UUID, rsvp models.RSVPStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventGetter resolves events for ownership checks.
type EventGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

// UserGetter resolves users for attendee validation.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// AssignmentChecker answers whether a secretary is attached to an organizer.
type AssignmentChecker interface {
	IsAssigned(ctx context.Context, organizerID, secretaryID uuid.UUID) (bool, error)
}

// CreateRequest is the body for POST /invitations.
type CreateRequest struct {
	EventID    string `json:"event_id" binding:"required,uuid"`
	AttendeeID string `json:"attendee_id" binding:"required,uuid"`
	RSVP       string `json:"rsvp"`
}

// SendRequest is the body for POST /invitations/send.
type SendRequest struct {
	EventID     string   `json:"event_id" binding:"required,uuid"`
	AttendeeIDs []string `json:"attendee_ids" binding:"required,min=1,dive,uuid"`
}

// RSVPRequest is the body for RSVP updates.
type RSVPRequest struct {
	RSVP string `json:"rsvp" binding:"required"`
}

// Handler handles invitation HTTP endpoints.
type Handler struct {
	store       Store
	events      EventGetter
	users       UserGetter
	assignments AssignmentChecker
	logger      *zap.Logger
}

// NewHandler creates an invitations handler.
func NewHandler(store Store, events EventGetter, users UserGetter, assignments AssignmentChecker, logger *zap.Logger) *Handler {
	return &Handler{store: store, events: events, users: users, assignments: assignments, logger: logger}
}

func (h *Handler) assignedFact(c *gin.Context, actor *models.User, organizerID uuid.UUID) bool {
	if !actor.IsSecretary() {
		return false
	}
	assigned, err := h.assignments.IsAssigned(c.Request.Context(), organizerID, actor.ID)
	if err != nil {
		h.logger.Error("check assignment", zap.Error(err))
		return false
	}
	return assigned
}

// List handles GET /invitations. Attendees see only their own invitations.
func (h *Handler) List(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if actor.IsAttendee() {
		list, err := h.store.ListByAttendee(c.Request.Context(), actor.ID)
		if err != nil {
			response.Internal(c, "failed to list invitations")
			return
		}
		response.OK(c, list)
		return
	}
	if !authz.Allowed(*actor, authz.ActionViewAny, authz.Invitation{}) {
		response.Forbidden(c, "not allowed to list invitations")
		return
	}
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list invitations")
		return
	}
	response.OK(c, list)
}

// Get handles GET /invitations/:id.
func (h *Handler) Get(c *gin.Context) {
	inv := h.load(c)
	if inv == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionView, authz.Invitation{AttendeeID: inv.AttendeeID}) {
		response.Forbidden(c, "not allowed to view this invitation")
		return
	}
	response.OK(c, inv)
}

// Create handles POST /invitations. One invitation per (event, attendee) pair.
func (h *Handler) Create(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionCreate, authz.Invitation{}) {
		response.Forbidden(c, "not allowed to create invitations")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rsvp := models.RSVPPending
	if req.RSVP != "" {
		parsed, ok := models.ParseRSVPStatus(req.RSVP)
		if !ok {
			response.BadRequest(c, "invalid rsvp status")
			return
		}
		rsvp = parsed
	}

	eventID, _ := uuid.Parse(req.EventID)
	if _, err := h.events.GetByID(c.Request.Context(), eventID); err != nil {
		response.NotFound(c, "event not found")
		return
	}
	attendeeID, _ := uuid.Parse(req.AttendeeID)
	attendee, err := h.users.GetByID(c.Request.Context(), attendeeID)
	if err != nil {
		response.NotFound(c, "attendee not found")
		return
	}
	if !attendee.IsAttendee() {
		response.BadRequest(c, "user is not an attendee")
		return
	}

	inv := &models.Invitation{EventID: eventID, AttendeeID: attendeeID, RSVP: rsvp}
	created, err := h.store.Create(c.Request.Context(), inv)
	if err != nil {
		h.logger.Error("create invitation", zap.Error(err))
		response.Internal(c, "failed to create invitation")
		return
	}
	if !created {
		response.Conflict(c, "attendee is already invited to this event")
		return
	}
	response.Created(c, inv)
}

// Send handles POST /invitations/send: invites a batch of attendees to an
// event. Any attendee already invited fails the whole request with 409.
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	eventID, _ := uuid.Parse(req.EventID)
	event, err := h.events.GetByID(c.Request.Context(), eventID)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	fact := authz.Invitation{
		EventOrganizerID: event.OrganizerID,
		ActorAssigned:    h.assignedFact(c, actor, event.OrganizerID),
	}
	if !authz.Allowed(*actor, authz.ActionSend, fact) {
		response.Forbidden(c, "not allowed to send invitations for this event")
		return
	}

	var sent []models.Invitation
	for _, raw := range req.AttendeeIDs {
		attendeeID, _ := uuid.Parse(raw)
		attendee, err := h.users.GetByID(c.Request.Context(), attendeeID)
		if err != nil {
			response.NotFound(c, "attendee not found: "+raw)
			return
		}
		if !attendee.IsAttendee() {
			response.BadRequest(c, "user is not an attendee: "+raw)
			return
		}
		inv := &models.Invitation{EventID: event.ID, AttendeeID: attendee.ID, RSVP: models.RSVPPending}
		created, err := h.store.Create(c.Request.Context(), inv)
		if err != nil {
			h.logger.Error("send invitation", zap.Error(err))
			response.Internal(c, "failed to send invitations")
			return
		}
		if !created {
			response.Conflict(c, "attendee is already invited to this event")
			return
		}
		sent = append(sent, *inv)
	}
	response.Created(c, sent)
}

// Mine handles GET /invitations/me. Attendees only.
func (h *Handler) Mine(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !actor.IsAttendee() {
		response.Forbidden(c, "only attendees have personal invitations")
		return
	}
	list, err := h.store.ListByAttendee(c.Request.Context(), actor.ID)
	if err != nil {
		response.Internal(c, "failed to list invitations")
		return
	}
	response.OK(c, list)
}

// Update handles PUT /invitations/:id. Staff may set any RSVP status.
func (h *Handler) Update(c *gin.Context) {
	inv := h.load(c)
	if inv == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUpdate, authz.Invitation{AttendeeID: inv.AttendeeID}) {
		response.Forbidden(c, "not allowed to update this invitation")
		return
	}

	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rsvp, ok := models.ParseRSVPStatus(req.RSVP)
	if !ok {
		response.BadRequest(c, "invalid rsvp status")
		return
	}
	if err := h.store.UpdateRSVP(c.Request.Context(), inv.ID, rsvp); err != nil {
		h.logger.Error("update invitation", zap.Error(err))
		response.Internal(c, "failed to update invitation")
		return
	}
	inv.RSVP = rsvp
	response.OK(c, inv)
}

// UpdateRSVP handles PUT /invitations/:id/rsvp. The invited attendee answers
// accepted or rejected; pending cannot be re-entered here.
func (h *Handler) UpdateRSVP(c *gin.Context) {
	inv := h.load(c)
	if inv == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUpdateRSVP, authz.Invitation{AttendeeID: inv.AttendeeID}) {
		response.Forbidden(c, "not allowed to answer this invitation")
		return
	}

	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	rsvp, ok := models.ParseRSVPStatus(req.RSVP)
	if !ok || rsvp == models.RSVPPending {
		response.BadRequest(c, "rsvp must be accepted or rejected")
		return
	}
	if err := h.store.UpdateRSVP(c.Request.Context(), inv.ID, rsvp); err != nil {
		h.logger.Error("update rsvp", zap.Error(err))
		response.Internal(c, "failed to update rsvp")
		return
	}
	inv.RSVP = rsvp
	response.OK(c, inv)
}

// Delete handles DELETE /invitations/:id.
func (h *Handler) Delete(c *gin.Context) {
	inv := h.load(c)
	if inv == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionDelete, authz.Invitation{AttendeeID: inv.AttendeeID}) {
		response.Forbidden(c, "not allowed to delete this invitation")
		return
	}
	if err := h.store.Delete(c.Request.Context(), inv.ID); err != nil {
		h.logger.Error("delete invitation", zap.Error(err))
		response.Internal(c, "failed to delete invitation")
		return
	}
	response.NoContent(c)
}

// load parses the path ID and fetches the invitation, writing the error
// response on failure.
func (h *Handler) load(c *gin.Context) *models.Invitation {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invitation id")
		return nil
	}
	inv, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "invitation not found")
		return nil
	}
	return inv
}
