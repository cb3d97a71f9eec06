package tickets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/ticketing-backend/internal/models"
)

// Repository handles ticket persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tickets repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a ticket. The QR token must already be set.
func (r *Repository) Create(ctx context.Context, t *models.Ticket) error {
	const q = `INSERT INTO tickets (event_id, attendee_id, type, price, qr_code)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, used, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, t.EventID, t.AttendeeID, t.Type, t.Price, t.QRCode).
		Scan(&t.ID, &t.Used, &t.CreatedAt, &t.UpdatedAt)
}

const ticketColumns = `t.id, t.event_id, t.attendee_id, t.type, t.price, t.qr_code, t.used,
	t.created_at, t.updated_at,
	e.id, e.name, e.date, e.time::text, e.location, COALESCE(e.description, ''), e.status,
	e.images, e.organizer_id, e.created_at, e.updated_at`

func scanTicket(row interface{ Scan(...any) error }) (*models.Ticket, error) {
	var t models.Ticket
	var ev models.Event
	var images []byte
	err := row.Scan(&t.ID, &t.EventID, &t.AttendeeID, &t.Type, &t.Price, &t.QRCode, &t.Used,
		&t.CreatedAt, &t.UpdatedAt,
		&ev.ID, &ev.Name, &ev.Date, &ev.Time, &ev.Location, &ev.Description, &ev.Status,
		&images, &ev.OrganizerID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(images, &ev.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	t.Event = &ev
	return &t, nil
}

// GetByID returns a ticket with its event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets t JOIN events e ON e.id = t.event_id WHERE t.id = $1`
	return scanTicket(r.pool.QueryRow(ctx, q, id))
}

// GetByQR returns a ticket looked up by its redemption token.
func (r *Repository) GetByQR(ctx context.Context, qr string) (*models.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets t JOIN events e ON e.id = t.event_id WHERE t.qr_code = $1`
	return scanTicket(r.pool.QueryRow(ctx, q, qr))
}

// List returns all tickets with their events.
func (r *Repository) List(ctx context.Context) ([]models.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets t JOIN events e ON e.id = t.event_id
		ORDER BY t.created_at DESC`
	return r.queryList(ctx, q)
}

// ListByAttendee returns one attendee's tickets.
func (r *Repository) ListByAttendee(ctx context.Context, attendeeID uuid.UUID) ([]models.Ticket, error) {
	q := `SELECT ` + ticketColumns + ` FROM tickets t JOIN events e ON e.id = t.event_id
		WHERE t.attendee_id = $1 ORDER BY t.created_at DESC`
	return r.queryList(ctx, q, attendeeID)
}

func (r *Repository) queryList(ctx context.Context, q string, args ...any) ([]models.Ticket, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// Update persists the mutable ticket fields.
func (r *Repository) Update(ctx context.Context, t *models.Ticket) error {
	const q = `UPDATE tickets SET type = $1, price = $2, updated_at = NOW()
		WHERE id = $3 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, t.Type, t.Price, t.ID).Scan(&t.UpdatedAt)
}

// Redeem marks the ticket with this token as used. The check and the write
// are one statement; exactly one of any number of concurrent calls succeeds.
// Returns false when the ticket was already used.
func (r *Repository) Redeem(ctx context.Context, qr string) (bool, error) {
	const q = `UPDATE tickets SET used = TRUE, updated_at = NOW()
		WHERE qr_code = $1 AND used = FALSE`
	tag, err := r.pool.Exec(ctx, q, qr)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a ticket and its payments in one transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM payments WHERE ticket_id = $1`, id); err != nil {
		return fmt.Errorf("cascade delete ticket: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("cascade delete ticket: %w", err)
	}
	return tx.Commit(ctx)
}
