package models

import (
	"time"

	"github.com/google/uuid"
)

// Ticket grants an attendee access to an event. QRCode is the unique
// redemption token, generated once at creation and consumed exactly once.
type Ticket struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	AttendeeID uuid.UUID `json:"attendee_id"`
	Type       string    `json:"type"`
	Price      float64   `json:"price"`
	QRCode     string    `json:"qr_code"`
	Used       bool      `json:"used"`
	Event      *Event    `json:"event,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
