package payments

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/authz"
	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/response"
)

// Store is the payment persistence the handler needs.
type Store interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context) ([]models.Payment, error)
	ListByTicketOwner(ctx context.Context, attendeeID uuid.UUID) ([]models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	Process(ctx context.Context, id uuid.UUID) (bool, error)
	HasCompletedForTicket(ctx context.Context, ticketID uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TicketGetter resolves tickets for payment creation.
type TicketGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

// CreateRequest is the body for POST /payments.
type CreateRequest struct {
	TicketID string  `json:"ticket_id" binding:"required,uuid"`
	Amount   float64 `json:"amount" binding:"min=0"`
	Method   string  `json:"method" binding:"required"`
	Status   string  `json:"status"`
}

// UpdateRequest is the body for PUT /payments/:id. All fields optional.
type UpdateRequest struct {
	Amount *float64 `json:"amount" binding:"omitempty,min=0"`
	Method *string  `json:"method"`
	Status *string  `json:"status"`
}

// Handler handles payment HTTP endpoints.
type Handler struct {
	store   Store
	tickets TicketGetter
	logger  *zap.Logger
}

// NewHandler creates a payments handler.
func NewHandler(store Store, tickets TicketGetter, logger *zap.Logger) *Handler {
	return &Handler{store: store, tickets: tickets, logger: logger}
}

// List handles GET /payments. Attendees see only payments on their own
// tickets.
func (h *Handler) List(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if actor.IsAttendee() {
		list, err := h.store.ListByTicketOwner(c.Request.Context(), actor.ID)
		if err != nil {
			response.Internal(c, "failed to list payments")
			return
		}
		response.OK(c, list)
		return
	}
	if !authz.Allowed(*actor, authz.ActionViewAny, authz.Payment{}) {
		response.Forbidden(c, "not allowed to list payments")
		return
	}
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list payments")
		return
	}
	response.OK(c, list)
}

// Get handles GET /payments/:id.
func (h *Handler) Get(c *gin.Context) {
	p := h.load(c)
	if p == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionView, authz.Payment{TicketOwnerID: p.Ticket.AttendeeID}) {
		response.Forbidden(c, "not allowed to view this payment")
		return
	}
	response.OK(c, p)
}

// Create handles POST /payments. A ticket that already has a completed
// payment accepts no further payments.
func (h *Handler) Create(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionCreate, authz.Payment{}) {
		response.Forbidden(c, "not allowed to create payments")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.PaymentPending
	if req.Status != "" {
		parsed, ok := models.ParsePaymentStatus(req.Status)
		if !ok {
			response.BadRequest(c, "invalid payment status")
			return
		}
		status = parsed
	}

	ticketID, _ := uuid.Parse(req.TicketID)
	if _, err := h.tickets.GetByID(c.Request.Context(), ticketID); err != nil {
		response.NotFound(c, "ticket not found")
		return
	}
	settled, err := h.store.HasCompletedForTicket(c.Request.Context(), ticketID)
	if err != nil {
		response.Internal(c, "failed to check ticket payments")
		return
	}
	if settled {
		response.Conflict(c, "ticket already has a completed payment")
		return
	}

	p := &models.Payment{TicketID: ticketID, Amount: req.Amount, Method: req.Method, Status: status}
	if err := h.store.Create(c.Request.Context(), p); err != nil {
		if errors.Is(err, ErrCompletedExists) {
			response.Conflict(c, "ticket already has a completed payment")
			return
		}
		h.logger.Error("create payment", zap.Error(err))
		response.Internal(c, "failed to create payment")
		return
	}
	response.Created(c, p)
}

// Update handles PUT /payments/:id.
func (h *Handler) Update(c *gin.Context) {
	p := h.load(c)
	if p == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUpdate, authz.Payment{TicketOwnerID: p.Ticket.AttendeeID}) {
		response.Forbidden(c, "not allowed to update this payment")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Amount != nil {
		p.Amount = *req.Amount
	}
	if req.Method != nil {
		p.Method = *req.Method
	}
	if req.Status != nil {
		status, ok := models.ParsePaymentStatus(*req.Status)
		if !ok {
			response.BadRequest(c, "invalid payment status")
			return
		}
		p.Status = status
	}

	if err := h.store.Update(c.Request.Context(), p); err != nil {
		if errors.Is(err, ErrCompletedExists) {
			response.Conflict(c, "ticket already has a completed payment")
			return
		}
		h.logger.Error("update payment", zap.Error(err))
		response.Internal(c, "failed to update payment")
		return
	}
	response.OK(c, p)
}

// Process handles POST /payments/:id/process: settles a pending payment.
// Exactly one of any number of concurrent calls succeeds; the rest answer
// 409.
func (h *Handler) Process(c *gin.Context) {
	p := h.load(c)
	if p == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionProcess, authz.Payment{TicketOwnerID: p.Ticket.AttendeeID}) {
		response.Forbidden(c, "not allowed to process this payment")
		return
	}

	processed, err := h.store.Process(c.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, ErrCompletedExists) {
			response.Conflict(c, "ticket already has a completed payment")
			return
		}
		h.logger.Error("process payment", zap.Error(err))
		response.Internal(c, "failed to process payment")
		return
	}
	if !processed {
		response.Conflict(c, "payment is not pending")
		return
	}
	p.Status = models.PaymentCompleted
	response.OK(c, p)
}

// Verify handles GET /payments/:id/verify. A pure read; no state changes.
func (h *Handler) Verify(c *gin.Context) {
	p := h.load(c)
	if p == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionVerify, authz.Payment{TicketOwnerID: p.Ticket.AttendeeID}) {
		response.Forbidden(c, "not allowed to verify this payment")
		return
	}
	response.OK(c, gin.H{"payment_id": p.ID, "completed": p.Status == models.PaymentCompleted})
}

// Delete handles DELETE /payments/:id.
func (h *Handler) Delete(c *gin.Context) {
	p := h.load(c)
	if p == nil {
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionDelete, authz.Payment{TicketOwnerID: p.Ticket.AttendeeID}) {
		response.Forbidden(c, "not allowed to delete this payment")
		return
	}
	if err := h.store.Delete(c.Request.Context(), p.ID); err != nil {
		h.logger.Error("delete payment", zap.Error(err))
		response.Internal(c, "failed to delete payment")
		return
	}
	response.NoContent(c)
}

func (h *Handler) load(c *gin.Context) *models.Payment {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return nil
	}
	p, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "payment not found")
		return nil
	}
	return p
}
