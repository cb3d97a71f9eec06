package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/ticketing-backend/internal/models"
)

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	images, err := json.Marshal(imagesOrEmpty(e.Images))
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	const q = `INSERT INTO events (name, date, time, location, description, status, images, organizer_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, e.Name, e.Date, e.Time, e.Location, e.Description, string(e.Status), images, e.OrganizerID).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

const eventColumns = `id, name, date, time::text, location, COALESCE(description, ''), status, images, organizer_id, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	var e models.Event
	var images []byte
	err := row.Scan(&e.ID, &e.Name, &e.Date, &e.Time, &e.Location, &e.Description, &e.Status, &images, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(images, &e.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	return &e, nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// List returns all events with the lowest ticket price for each.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	const q = `SELECT e.id, e.name, e.date, e.time::text, e.location, COALESCE(e.description, ''), e.status,
			e.images, e.organizer_id, e.created_at, e.updated_at, MIN(t.price)
		FROM events e
		LEFT JOIN tickets t ON t.event_id = e.id
		GROUP BY e.id
		ORDER BY e.date DESC, e.time DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		var e models.Event
		var images []byte
		if err := rows.Scan(&e.ID, &e.Name, &e.Date, &e.Time, &e.Location, &e.Description, &e.Status,
			&images, &e.OrganizerID, &e.CreatedAt, &e.UpdatedAt, &e.MinTicketPrice); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(images, &e.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Update persists the mutable event fields.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	images, err := json.Marshal(imagesOrEmpty(e.Images))
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	const q = `UPDATE events SET name = $1, date = $2, time = $3, location = $4,
			description = NULLIF($5, ''), status = $6, images = $7, updated_at = NOW()
		WHERE id = $8 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, e.Name, e.Date, e.Time, e.Location, e.Description, string(e.Status), images, e.ID).
		Scan(&e.UpdatedAt)
}

// Transition moves an event into the target status unless it is already
// there. The check and the write are one statement, so two concurrent calls
// cannot both succeed. Returns false when the event was already in the target
// status.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, to models.EventStatus) (bool, error) {
	const q = `UPDATE events SET status = $2, updated_at = NOW() WHERE id = $1 AND status <> $2`
	tag, err := r.pool.Exec(ctx, q, id, string(to))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes an event and its dependent tickets, payments, invitations,
// and attendance records in one transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM payments WHERE ticket_id IN (SELECT id FROM tickets WHERE event_id = $1)`,
		`DELETE FROM tickets WHERE event_id = $1`,
		`DELETE FROM invitations WHERE event_id = $1`,
		`DELETE FROM event_attendees WHERE event_id = $1`,
		`DELETE FROM events WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete event: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ListAttendees returns the attendees linked to an event with their
// confirmation flag.
func (r *Repository) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.AttendeeEntry, error) {
	const q = `SELECT u.id, u.name, u.email, ea.confirmed
		FROM event_attendees ea
		JOIN users u ON u.id = ea.attendee_id
		WHERE ea.event_id = $1
		ORDER BY u.name, u.email`
	rows, err := r.pool.Query(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.AttendeeEntry
	for rows.Next() {
		var a models.AttendeeEntry
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Confirmed); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// AddAttendee links an attendee to an event, unconfirmed. Returns false when
// the attendee is already linked.
func (r *Repository) AddAttendee(ctx context.Context, eventID, attendeeID uuid.UUID) (bool, error) {
	const q = `INSERT INTO event_attendees (event_id, attendee_id) VALUES ($1, $2)
		ON CONFLICT (event_id, attendee_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, q, eventID, attendeeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// HasAttendee reports whether the attendee is linked to the event.
func (r *Repository) HasAttendee(ctx context.Context, eventID, attendeeID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM event_attendees WHERE event_id = $1 AND attendee_id = $2`
	var one int
	err := r.pool.QueryRow(ctx, q, eventID, attendeeID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConfirmAttendance flips an attendance record to confirmed. The flip only
// happens once; returns false when already confirmed.
func (r *Repository) ConfirmAttendance(ctx context.Context, eventID, attendeeID uuid.UUID) (bool, error) {
	const q = `UPDATE event_attendees SET confirmed = TRUE, updated_at = NOW()
		WHERE event_id = $1 AND attendee_id = $2 AND confirmed = FALSE`
	tag, err := r.pool.Exec(ctx, q, eventID, attendeeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AppendImage appends an image URL to the event's ordered image list.
func (r *Repository) AppendImage(ctx context.Context, eventID uuid.UUID, url string) error {
	const q = `UPDATE events SET images = images || to_jsonb($2::text), updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, eventID, url)
	return err
}

func imagesOrEmpty(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
