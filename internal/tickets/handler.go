package tickets

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/authz"
	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/response"
	"github.com/eventia/ticketing-backend/pkg/ticketpdf"
)

// Store is the ticket persistence the handler needs.
type Store interface {
	Create(ctx context.Context, t *models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	GetByQR(ctx context.Context, qr string) (*models.Ticket, error)
	List(ctx context.Context) ([]models.Ticket, error)
	ListByAttendee(ctx context.Context, attendeeID uuid.UUID) ([]models.Ticket, error)
	Update(ctx context.Context, t *models.Ticket) error
	Redeem(ctx context.Context, qr string) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EventGetter resolves events for ticket creation.
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

// CreateRequest is the body for POST /tickets. AttendeeID is optional for
// attendees, who buy for themselves.
type CreateRequest struct {
	EventID    string  `json:"event_id" binding:"required,uuid"`
	AttendeeID string  `json:"attendee_id" binding:"omitempty,uuid"`
	Type       string  `json:"type" binding:"required"`
	Price      float64 `json:"price" binding:"min=0"`
}

// UpdateRequest is the body for PUT /tickets/:id. All fields optional.
type UpdateRequest struct {
	Type  *string  `json:"type"`
	Price *float64 `json:"price" binding:"omitempty,min=0"`
}

// ValidateRequest is the body for POST /tickets/validate-qr.
type ValidateRequest struct {
	QRCode string `json:"qr_code" binding:"required"`
}

// Handler handles ticket HTTP endpoints.
type Handler struct {
	store       Store
	events      EventGetter
	users       UserGetter
	assignments AssignmentChecker
	logger      *zap.Logger
}

// NewHandler creates a tickets handler.
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

func (h *Handler) ticketFact(c *gin.Context, actor *models.User, t *models.Ticket) authz.Ticket {
	return authz.Ticket{
		OwnerID:          t.AttendeeID,
		EventOrganizerID: t.Event.OrganizerID,
		ActorAssigned:    h.assignedFact(c, actor, t.Event.OrganizerID),
	}
}

// List handles GET /tickets. Staff only; attendees use GET /tickets/me.
func (h *Handler) List(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionViewAny, authz.Ticket{}) {
		response.Forbidden(c, "not allowed to list tickets")
		return
	}
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list tickets")
		return
	}
	response.OK(c, list)
}

// Mine handles GET /tickets/me. Attendees only.
func (h *Handler) Mine(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !actor.IsAttendee() {
		response.Forbidden(c, "only attendees have personal tickets")
		return
	}
	list, err := h.store.ListByAttendee(c.Request.Context(), actor.ID)
	if err != nil {
		response.Internal(c, "failed to list tickets")
		return
	}
	response.OK(c, list)
}

// Get handles GET /tickets/:id.
func (h *Handler) Get(c *gin.Context) {
	t := h.load(c)
	if t == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionView, h.ticketFact(c, actor, t)) {
		response.Forbidden(c, "not allowed to view this ticket")
		return
	}
	response.OK(c, t)
}

// Create handles POST /tickets. The redemption token is generated here, once,
// and never changes.
func (h *Handler) Create(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionCreate, authz.Ticket{}) {
		response.Forbidden(c, "not allowed to create tickets")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	eventID, _ := uuid.Parse(req.EventID)
	if _, err := h.events.GetByID(c.Request.Context(), eventID); err != nil {
		response.NotFound(c, "event not found")
		return
	}

	attendeeID := actor.ID
	if req.AttendeeID != "" {
		attendeeID, _ = uuid.Parse(req.AttendeeID)
	} else if !actor.IsAttendee() {
		response.BadRequest(c, "attendee_id is required")
		return
	}
	attendee, err := h.users.GetByID(c.Request.Context(), attendeeID)
	if err != nil {
		response.NotFound(c, "attendee not found")
		return
	}
	if !attendee.IsAttendee() {
		response.BadRequest(c, "user is not an attendee")
		return
	}

	t := &models.Ticket{
		EventID:    eventID,
		AttendeeID: attendee.ID,
		Type:       req.Type,
		Price:      req.Price,
		QRCode:     uuid.NewString(),
	}
	if err := h.store.Create(c.Request.Context(), t); err != nil {
		h.logger.Error("create ticket", zap.Error(err))
		response.Internal(c, "failed to create ticket")
		return
	}
	response.Created(c, t)
}

// Update handles PUT /tickets/:id.
func (h *Handler) Update(c *gin.Context) {
	t := h.load(c)
	if t == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUpdate, h.ticketFact(c, actor, t)) {
		response.Forbidden(c, "not allowed to update this ticket")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Type != nil {
		t.Type = *req.Type
	}
	if req.Price != nil {
		t.Price = *req.Price
	}
	if err := h.store.Update(c.Request.Context(), t); err != nil {
		h.logger.Error("update ticket", zap.Error(err))
		response.Internal(c, "failed to update ticket")
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /tickets/:id. Administrators only; removes the
// ticket's payments with it.
func (h *Handler) Delete(c *gin.Context) {
	t := h.load(c)
	if t == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionDelete, h.ticketFact(c, actor, t)) {
		response.Forbidden(c, "not allowed to delete this ticket")
		return
	}
	if err := h.store.Delete(c.Request.Context(), t.ID); err != nil {
		h.logger.Error("delete ticket", zap.Error(err))
		response.Internal(c, "failed to delete ticket")
		return
	}
	response.NoContent(c)
}

// ValidateQR handles POST /tickets/validate-qr: redeems a ticket at the door.
// A token validates exactly once; the second attempt answers 409.
func (h *Handler) ValidateQR(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	t, err := h.store.GetByQR(c.Request.Context(), req.QRCode)
	if err != nil {
		response.NotFound(c, "ticket not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionValidate, h.ticketFact(c, actor, t)) {
		response.Forbidden(c, "not allowed to validate tickets for this event")
		return
	}

	redeemed, err := h.store.Redeem(c.Request.Context(), req.QRCode)
	if err != nil {
		h.logger.Error("redeem ticket", zap.Error(err))
		response.Internal(c, "failed to validate ticket")
		return
	}
	if !redeemed {
		response.Conflict(c, "ticket has already been used")
		return
	}
	t.Used = true
	response.OK(c, t)
}

// PDF handles GET /tickets/pdf/:qr: a printable ticket with the redemption
// token rendered as a QR image.
func (h *Handler) PDF(c *gin.Context) {
	t, err := h.store.GetByQR(c.Request.Context(), c.Param("qr"))
	if err != nil {
		response.NotFound(c, "ticket not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionView, h.ticketFact(c, actor, t)) {
		response.Forbidden(c, "not allowed to view this ticket")
		return
	}

	var attendeePub *models.UserPublic
	if attendee, err := h.users.GetByID(c.Request.Context(), t.AttendeeID); err == nil {
		pub := attendee.ToPublic()
		attendeePub = &pub
	}

	pdf, err := ticketpdf.Render(t, t.Event, attendeePub)
	if err != nil {
		h.logger.Error("render ticket pdf", zap.Error(err))
		response.Internal(c, "failed to render ticket")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="ticket-`+t.ID.String()+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) load(c *gin.Context) *models.Ticket {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid ticket id")
		return nil
	}
	t, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "ticket not found")
		return nil
	}
	return t
}
