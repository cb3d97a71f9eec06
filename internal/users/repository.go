package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/ticketing-backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a users repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, u.Name, u.Email, u.Password, string(u.Role)).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE id = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, name, email, password_hash, role, created_at, updated_at FROM users WHERE email = $1`
	var u models.User
	err := r.pool.QueryRow(ctx, q, email).Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, email, role, created_at FROM users ORDER BY name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// Update persists name, email, password hash, and role.
func (r *Repository) Update(ctx context.Context, u *models.User) error {
	const q = `UPDATE users SET name = $1, email = $2, password_hash = $3, role = $4, updated_at = NOW()
		WHERE id = $5 RETURNING updated_at`
	return r.pool.QueryRow(ctx, q, u.Name, u.Email, u.Password, string(u.Role), u.ID).Scan(&u.UpdatedAt)
}

// Delete removes a user and everything that hangs off the account, in one
// transaction: payments and tickets they own, their invitations and
// attendance records, their assignment edges, and, for organizers, their
// events with all dependent rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []string{
		`DELETE FROM payments WHERE ticket_id IN (SELECT id FROM tickets WHERE attendee_id = $1)`,
		`DELETE FROM tickets WHERE attendee_id = $1`,
		`DELETE FROM invitations WHERE attendee_id = $1`,
		`DELETE FROM event_attendees WHERE attendee_id = $1`,
		`DELETE FROM organizer_secretaries WHERE organizer_id = $1 OR secretary_id = $1`,
		`DELETE FROM payments WHERE ticket_id IN (
			SELECT t.id FROM tickets t JOIN events e ON e.id = t.event_id WHERE e.organizer_id = $1)`,
		`DELETE FROM tickets WHERE event_id IN (SELECT id FROM events WHERE organizer_id = $1)`,
		`DELETE FROM invitations WHERE event_id IN (SELECT id FROM events WHERE organizer_id = $1)`,
		`DELETE FROM event_attendees WHERE event_id IN (SELECT id FROM events WHERE organizer_id = $1)`,
		`DELETE FROM events WHERE organizer_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, q := range steps {
		if _, err := tx.Exec(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete user: %w", err)
		}
	}
	return tx.Commit(ctx)
}
