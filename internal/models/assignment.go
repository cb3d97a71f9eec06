package models

import (
	"time"

	"github.com/google/uuid"
)

// SecretaryAssignment attaches a secretary to an organizer. A secretary may
// serve multiple organizers and an organizer may delegate to many secretaries.
type SecretaryAssignment struct {
	OrganizerID uuid.UUID `json:"organizer_id"`
	SecretaryID uuid.UUID `json:"secretary_id"`
	CreatedAt   time.Time `json:"created_at"`
}
