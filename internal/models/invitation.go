package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVPStatus is the response state of an invitation.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "pending"
	RSVPAccepted RSVPStatus = "accepted"
	RSVPRejected RSVPStatus = "rejected"
)

// ParseRSVPStatus returns the RSVPStatus for a request string, or false when unknown.
func ParseRSVPStatus(s string) (RSVPStatus, bool) {
	switch RSVPStatus(s) {
	case RSVPPending, RSVPAccepted, RSVPRejected:
		return RSVPStatus(s), true
	}
	return "", false
}

// Invitation links an event and an attendee, at most one per pair.
type Invitation struct {
	ID         uuid.UUID  `json:"id"`
	EventID    uuid.UUID  `json:"event_id"`
	AttendeeID uuid.UUID  `json:"attendee_id"`
	RSVP       RSVPStatus `json:"rsvp"`
	Event      *Event     `json:"event,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
