package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusActive    EventStatus = "active"
	EventStatusCancelled EventStatus = "cancelled"
	// EventStatusFinished is set by an external process, never by the API.
	EventStatusFinished EventStatus = "finished"
)

// ParseEventStatus returns the EventStatus for a request string, or false when unknown.
func ParseEventStatus(s string) (EventStatus, bool) {
	switch EventStatus(s) {
	case EventStatusPending, EventStatusActive, EventStatusCancelled, EventStatusFinished:
		return EventStatus(s), true
	}
	return "", false
}

// Event represents an event owned by an organizer.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Date        time.Time   `json:"date"`
	Time        string      `json:"time"` // HH:MM:SS
	Location    string      `json:"location"`
	Description string      `json:"description,omitempty"`
	Status      EventStatus `json:"status"`
	Images      []string    `json:"images,omitempty"` // ordered image URLs
	OrganizerID uuid.UUID   `json:"organizer_id"`
	// MinTicketPrice is the lowest ticket price for the event, populated on listings.
	MinTicketPrice *float64  `json:"min_ticket_price,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EventAttendee links an attendee to an event with a confirmation flag.
type EventAttendee struct {
	EventID    uuid.UUID `json:"event_id"`
	AttendeeID uuid.UUID `json:"attendee_id"`
	Confirmed  bool      `json:"confirmed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AttendeeEntry is an attendee row for an event's attendee listing.
type AttendeeEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Confirmed bool      `json:"confirmed"`
}
