package events

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventia/ticketing-backend/internal/auth"
	"github.com/eventia/ticketing-backend/internal/authz"
	"github.com/eventia/ticketing-backend/internal/models"
	"github.com/eventia/ticketing-backend/pkg/response"
	"github.com/eventia/ticketing-backend/pkg/storage"
)

// Store is the event persistence the handler needs.
type Store interface {
	Create(ctx context.Context, e *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
	Transition(ctx context.Context, id uuid.UUID, to models.EventStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.AttendeeEntry, error)
	AddAttendee(ctx context.Context, eventID, attendeeID uuid.UUID) (bool, error)
	HasAttendee(ctx context.Context, eventID, attendeeID uuid.UUID) (bool, error)
	ConfirmAttendance(ctx context.Context, eventID, attendeeID uuid.UUID) (bool, error)
	AppendImage(ctx context.Context, eventID uuid.UUID, url string) error
}

// AssignmentChecker answers whether a secretary is attached to an organizer.
type AssignmentChecker interface {
	IsAssigned(ctx context.Context, organizerID, secretaryID uuid.UUID) (bool, error)
}

// UserGetter resolves users for attendee validation.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ImageUploader stores event images and returns their URL.
type ImageUploader interface {
	UploadEventImage(ctx context.Context, eventID, filename, contentType string, body io.Reader, contentLength int64) (string, error)
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	Time        string `json:"time" binding:"required"` // HH:MM or HH:MM:SS
	Location    string `json:"location"`
	Description string `json:"description"`
}

// UpdateRequest is the body for PUT /events/:id. All fields optional.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
}

// AttendeeRequest is the body for adding an attendee to an event.
type AttendeeRequest struct {
	AttendeeID string `json:"attendee_id" binding:"required,uuid"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	store       Store
	assignments AssignmentChecker
	users       UserGetter
	uploader    ImageUploader
	logger      *zap.Logger
}

// NewHandler creates an events handler. uploader may be nil when object
// storage is not configured; image uploads then answer 503.
func NewHandler(store Store, assignments AssignmentChecker, users UserGetter, uploader ImageUploader, logger *zap.Logger) *Handler {
	return &Handler{store: store, assignments: assignments, users: users, uploader: uploader, logger: logger}
}

// assignedFact resolves the secretary assignment fact for the event's
// organizer. Looked up fresh on every request.
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

func parseEventDate(s string) (time.Time, bool) {
	d, err := time.Parse("2006-01-02", s)
	return d, err == nil
}

func validEventTime(s string) bool {
	if _, err := time.Parse("15:04:05", s); err == nil {
		return true
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list events", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, event)
}

// Create handles POST /events. New events start pending (hidden).
func (h *Handler) Create(c *gin.Context) {
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionCreate, authz.Event{}) {
		response.Forbidden(c, "not allowed to create events")
		return
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	date, ok := parseEventDate(req.Date)
	if !ok {
		response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
		return
	}
	if !validEventTime(req.Time) {
		response.BadRequest(c, "invalid time, expected HH:MM")
		return
	}

	event := &models.Event{
		Name:        req.Name,
		Date:        date,
		Time:        req.Time,
		Location:    req.Location,
		Description: req.Description,
		Status:      models.EventStatusPending,
		OrganizerID: actor.ID,
	}
	if err := h.store.Create(c.Request.Context(), event); err != nil {
		h.logger.Error("create event", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, event)
}

// Update handles PUT /events/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUpdate, authz.Event{OrganizerID: event.OrganizerID}) {
		response.Forbidden(c, "not allowed to update this event")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Name != nil {
		event.Name = *req.Name
	}
	if req.Date != nil {
		date, ok := parseEventDate(*req.Date)
		if !ok {
			response.BadRequest(c, "invalid date, expected YYYY-MM-DD")
			return
		}
		event.Date = date
	}
	if req.Time != nil {
		if !validEventTime(*req.Time) {
			response.BadRequest(c, "invalid time, expected HH:MM")
			return
		}
		event.Time = *req.Time
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.Description != nil {
		event.Description = *req.Description
	}

	if err := h.store.Update(c.Request.Context(), event); err != nil {
		h.logger.Error("update event", zap.Error(err))
		response.Internal(c, "failed to update event")
		return
	}
	response.OK(c, event)
}

// Delete handles DELETE /events/:id. Removes the event with its tickets,
// payments, invitations, and attendance records.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionDelete, authz.Event{OrganizerID: event.OrganizerID}) {
		response.Forbidden(c, "not allowed to delete this event")
		return
	}
	if err := h.store.Delete(c.Request.Context(), event.ID); err != nil {
		h.logger.Error("delete event", zap.Error(err))
		response.Internal(c, "failed to delete event")
		return
	}
	response.NoContent(c)
}

// Publish handles POST /events/:id/publish.
func (h *Handler) Publish(c *gin.Context) {
	h.transition(c, authz.ActionPublish, models.EventStatusActive, "event is already published")
}

// Hide handles POST /events/:id/hide.
func (h *Handler) Hide(c *gin.Context) {
	h.transition(c, authz.ActionHide, models.EventStatusPending, "event is already hidden")
}

// Cancel handles POST /events/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, authz.ActionCancel, models.EventStatusCancelled, "event is already cancelled")
}

// transition runs a status change. The status check and write are a single
// conditional update; zero rows on an existing event means it was already in
// the target status and answers 409.
func (h *Handler) transition(c *gin.Context, action authz.Action, to models.EventStatus, conflictMsg string) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, action, authz.Event{OrganizerID: event.OrganizerID}) {
		response.Forbidden(c, "not allowed to change this event's status")
		return
	}

	changed, err := h.store.Transition(c.Request.Context(), event.ID, to)
	if err != nil {
		h.logger.Error("transition event", zap.String("to", string(to)), zap.Error(err))
		response.Internal(c, "failed to update event status")
		return
	}
	if !changed {
		response.Conflict(c, conflictMsg)
		return
	}
	event.Status = to
	response.OK(c, event)
}

// ListAttendees handles GET /events/:id/attendees.
func (h *Handler) ListAttendees(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	fact := authz.Event{OrganizerID: event.OrganizerID, ActorAssigned: h.assignedFact(c, actor, event.OrganizerID)}
	if !authz.Allowed(*actor, authz.ActionListAttendees, fact) {
		response.Forbidden(c, "not allowed to view this event's attendees")
		return
	}

	list, err := h.store.ListAttendees(c.Request.Context(), event.ID)
	if err != nil {
		response.Internal(c, "failed to list attendees")
		return
	}
	response.OK(c, list)
}

// AddAttendee handles POST /events/:id/attendees. Linking an attendee twice
// answers 409.
func (h *Handler) AddAttendee(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	fact := authz.Event{OrganizerID: event.OrganizerID, ActorAssigned: h.assignedFact(c, actor, event.OrganizerID)}
	if !authz.Allowed(*actor, authz.ActionAddAttendee, fact) {
		response.Forbidden(c, "not allowed to manage this event's attendees")
		return
	}

	var req AttendeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
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

	added, err := h.store.AddAttendee(c.Request.Context(), event.ID, attendee.ID)
	if err != nil {
		h.logger.Error("add attendee", zap.Error(err))
		response.Internal(c, "failed to add attendee")
		return
	}
	if !added {
		response.Conflict(c, "attendee already registered for this event")
		return
	}
	response.Created(c, gin.H{"event_id": event.ID, "attendee_id": attendee.ID, "confirmed": false})
}

// ConfirmAttendance handles POST /events/:id/attendees/:attendeeId/confirm.
// Confirmation is one-way; a repeat answers 409.
func (h *Handler) ConfirmAttendance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	attendeeID, err := uuid.Parse(c.Param("attendeeId"))
	if err != nil {
		response.BadRequest(c, "invalid attendee id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	fact := authz.Event{OrganizerID: event.OrganizerID, ActorAssigned: h.assignedFact(c, actor, event.OrganizerID)}
	if !authz.Allowed(*actor, authz.ActionConfirmAttendance, fact) {
		response.Forbidden(c, "not allowed to confirm attendance for this event")
		return
	}

	linked, err := h.store.HasAttendee(c.Request.Context(), event.ID, attendeeID)
	if err != nil {
		response.Internal(c, "failed to check attendance")
		return
	}
	if !linked {
		response.NotFound(c, "attendee not registered for this event")
		return
	}

	confirmed, err := h.store.ConfirmAttendance(c.Request.Context(), event.ID, attendeeID)
	if err != nil {
		h.logger.Error("confirm attendance", zap.Error(err))
		response.Internal(c, "failed to confirm attendance")
		return
	}
	if !confirmed {
		response.Conflict(c, "attendance already confirmed")
		return
	}
	response.OK(c, gin.H{"event_id": event.ID, "attendee_id": attendeeID, "confirmed": true})
}

// UploadImage handles POST /events/:id/images. Multipart field "image".
func (h *Handler) UploadImage(c *gin.Context) {
	if h.uploader == nil {
		response.ServiceUnavailable(c, "image storage is not configured")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	event, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}
	actor := auth.CurrentUser(c)
	if !authz.Allowed(*actor, authz.ActionUpdate, authz.Event{OrganizerID: event.OrganizerID}) {
		response.Forbidden(c, "not allowed to update this event")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "image file is required")
		return
	}
	if file.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "image exceeds the 10MB limit")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if !storage.ValidateImageFileType(contentType, file.Filename) {
		response.BadRequest(c, "unsupported image type")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	url, err := h.uploader.UploadEventImage(c.Request.Context(), event.ID.String(), file.Filename, contentType, src, file.Size)
	if err != nil {
		h.logger.Error("upload event image", zap.Error(err))
		response.Internal(c, "failed to store image")
		return
	}
	if err := h.store.AppendImage(c.Request.Context(), event.ID, url); err != nil {
		h.logger.Error("append event image", zap.Error(err))
		response.Internal(c, "failed to record image")
		return
	}
	response.Created(c, gin.H{"url": url})
}
