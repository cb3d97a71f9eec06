package ticketpdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/eventia/ticketing-backend/internal/models"
)

func TestRender(t *testing.T) {
	ticket := &models.Ticket{
		ID:     uuid.New(),
		Type:   "vip",
		Price:  120,
		QRCode: uuid.NewString(),
	}
	event := &models.Event{
		Name:     "Winter Gala",
		Date:     time.Date(2026, 12, 12, 0, 0, 0, 0, time.UTC),
		Time:     "20:00",
		Location: "Grand Hotel",
	}
	attendee := &models.UserPublic{Name: "Ana Torres"}

	pdf, err := Render(ticket, event, attendee)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output does not start with a PDF header")
	}
	if len(pdf) < 1000 {
		t.Errorf("output suspiciously small: %d bytes", len(pdf))
	}
}

func TestRenderWithoutAttendee(t *testing.T) {
	ticket := &models.Ticket{ID: uuid.New(), Type: "general", Price: 10, QRCode: uuid.NewString()}
	event := &models.Event{Name: "Meetup", Date: time.Now(), Time: "18:00"}

	pdf, err := Render(ticket, event, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output does not start with a PDF header")
	}
}
