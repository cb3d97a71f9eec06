package invitations

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

// Repository handles invitation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an invitations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an invitation. At most one invitation exists per
// (event, attendee) pair; returns false when the pair is already invited.
func (r *Repository) Create(ctx context.Context, inv *models.Invitation) (bool, error) {
	const q = `INSERT INTO invitations (event_id, attendee_id, rsvp) VALUES ($1, $2, $3)
		ON CONFLICT (event_id, attendee_id) DO NOTHING
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, inv.EventID, inv.AttendeeID, string(inv.RSVP)).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const invitationColumns = `i.id, i.event_id, i.attendee_id, i.rsvp, i.created_at, i.updated_at,
	e.id, e.name, e.date, e.time::text, e.location, COALESCE(e.description, ''), e.status,
	e.images, e.organizer_id, e.created_at, e.updated_at`

func scanInvitation(row interface{ Scan(...any) error }) (*models.Invitation, error) {
	var inv models.Invitation
	var ev models.Event
	var images []byte
	err := row.Scan(&inv.ID, &inv.EventID, &inv.AttendeeID, &inv.RSVP, &inv.CreatedAt, &inv.UpdatedAt,
		&ev.ID, &ev.Name, &ev.Date, &ev.Time, &ev.Location, &ev.Description, &ev.Status,
		&images, &ev.OrganizerID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(images, &ev.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	inv.Event = &ev
	return &inv, nil
}

// GetByID returns an invitation with its event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	q := `SELECT ` + invitationColumns + ` FROM invitations i JOIN events e ON e.id = i.event_id WHERE i.id = $1`
	return scanInvitation(r.pool.QueryRow(ctx, q, id))
}

// List returns all invitations with their events.
func (r *Repository) List(ctx context.Context) ([]models.Invitation, error) {
	q := `SELECT ` + invitationColumns + ` FROM invitations i JOIN events e ON e.id = i.event_id
		ORDER BY i.created_at DESC`
	return r.queryList(ctx, q)
}

// ListByAttendee returns the invitations addressed to one attendee.
func (r *Repository) ListByAttendee(ctx context.Context, attendeeID uuid.UUID) ([]models.Invitation, error) {
	q := `SELECT ` + invitationColumns + ` FROM invitations i JOIN events e ON e.id = i.event_id
		WHERE i.attendee_id = $1 ORDER BY i.created_at DESC`
	return r.queryList(ctx, q, attendeeID)
}

func (r *Repository) queryList(ctx context.Context, q string, args ...any) ([]models.Invitation, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *inv)
	}
	return list, rows.Err()
}

// UpdateRSVP sets the invitation's RSVP status.
func (r *Repository) UpdateRSVP(ctx context.Context, id uuid.UUID, rsvp models.RSVPStatus) error {
	const q = `UPDATE invitations SET rsvp = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, string(rsvp))
	return err
}

// Delete removes an invitation.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM invitations WHERE id = $1`, id)
	return err
}
