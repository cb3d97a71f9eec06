package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/ticketing-backend/internal/models"
)

// ErrCompletedExists is returned when a write would give a ticket a second
// completed payment. Backed by a partial unique index on
// payments(ticket_id) WHERE status = 'completed'.
var ErrCompletedExists = errors.New("ticket already has a completed payment")

// Repository handles payment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a payments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Create inserts a payment.
func (r *Repository) Create(ctx context.Context, p *models.Payment) error {
	const q = `INSERT INTO payments (ticket_id, amount, method, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, p.TicketID, p.Amount, p.Method, string(p.Status)).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrCompletedExists
	}
	return err
}

const paymentColumns = `p.id, p.ticket_id, p.amount, p.method, p.status, p.created_at, p.updated_at,
	t.id, t.event_id, t.attendee_id, t.type, t.price, t.qr_code, t.used, t.created_at, t.updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	var t models.Ticket
	err := row.Scan(&p.ID, &p.TicketID, &p.Amount, &p.Method, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		&t.ID, &t.EventID, &t.AttendeeID, &t.Type, &t.Price, &t.QRCode, &t.Used, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Ticket = &t
	return &p, nil
}

// GetByID returns a payment with its ticket.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments p JOIN tickets t ON t.id = p.ticket_id WHERE p.id = $1`
	return scanPayment(r.pool.QueryRow(ctx, q, id))
}

// List returns all payments with their tickets.
func (r *Repository) List(ctx context.Context) ([]models.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments p JOIN tickets t ON t.id = p.ticket_id
		ORDER BY p.created_at DESC`
	return r.queryList(ctx, q)
}

// ListByTicketOwner returns the payments on tickets owned by one attendee.
func (r *Repository) ListByTicketOwner(ctx context.Context, attendeeID uuid.UUID) ([]models.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments p JOIN tickets t ON t.id = p.ticket_id
		WHERE t.attendee_id = $1 ORDER BY p.created_at DESC`
	return r.queryList(ctx, q, attendeeID)
}

func (r *Repository) queryList(ctx context.Context, q string, args ...any) ([]models.Payment, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// Update persists the mutable payment fields.
func (r *Repository) Update(ctx context.Context, p *models.Payment) error {
	const q = `UPDATE payments SET amount = $1, method = $2, status = $3, updated_at = NOW()
		WHERE id = $4 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, p.Amount, p.Method, string(p.Status), p.ID).Scan(&p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrCompletedExists
	}
	return err
}

// Process settles a pending payment. The status check and the write are one
// statement; two concurrent calls cannot both succeed. Returns false when the
// payment is not pending.
func (r *Repository) Process(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE payments SET status = 'completed', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
	tag, err := r.pool.Exec(ctx, q, id)
	if isUniqueViolation(err) {
		return false, ErrCompletedExists
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// HasCompletedForTicket reports whether the ticket already has a completed
// payment.
func (r *Repository) HasCompletedForTicket(ctx context.Context, ticketID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM payments WHERE ticket_id = $1 AND status = 'completed'`
	var one int
	err := r.pool.QueryRow(ctx, q, ticketID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a payment.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return err
}
