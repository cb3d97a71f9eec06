package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// ParsePaymentStatus returns the PaymentStatus for a request string, or false when unknown.
func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return PaymentStatus(s), true
	}
	return "", false
}

// Payment settles exactly one ticket. A ticket has at most one completed payment.
type Payment struct {
	ID        uuid.UUID     `json:"id"`
	TicketID  uuid.UUID     `json:"ticket_id"`
	Amount    float64       `json:"amount"`
	Method    string        `json:"method"`
	Status    PaymentStatus `json:"status"`
	Ticket    *Ticket       `json:"ticket,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
