package assignments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventia/ticketing-backend/internal/models"
)

// Repository maintains the many-to-many organizer/secretary relation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an assignments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Assign attaches a secretary to an organizer. Attaching an existing pair is
// a no-op.
func (r *Repository) Assign(ctx context.Context, organizerID, secretaryID uuid.UUID) error {
	const q = `INSERT INTO organizer_secretaries (organizer_id, secretary_id) VALUES ($1, $2)
		ON CONFLICT (organizer_id, secretary_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, organizerID, secretaryID)
	return err
}

// Unassign detaches a secretary from an organizer. Detaching a non-existent
// pair succeeds silently.
func (r *Repository) Unassign(ctx context.Context, organizerID, secretaryID uuid.UUID) error {
	const q = `DELETE FROM organizer_secretaries WHERE organizer_id = $1 AND secretary_id = $2`
	_, err := r.pool.Exec(ctx, q, organizerID, secretaryID)
	return err
}

// ListSecretaries returns the secretaries currently attached to an organizer.
func (r *Repository) ListSecretaries(ctx context.Context, organizerID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT u.id, u.name, u.email, u.role, u.created_at
		FROM organizer_secretaries os
		JOIN users u ON u.id = os.secretary_id
		WHERE os.organizer_id = $1
		ORDER BY u.name, u.email`
	rows, err := r.pool.Query(ctx, q, organizerID)
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

// IsAssigned reports whether the secretary is currently attached to the
// organizer. Consulted by authorization checks on every request; results are
// never cached.
func (r *Repository) IsAssigned(ctx context.Context, organizerID, secretaryID uuid.UUID) (bool, error) {
	const q = `SELECT 1 FROM organizer_secretaries WHERE organizer_id = $1 AND secretary_id = $2`
	var one int
	err := r.pool.QueryRow(ctx, q, organizerID, secretaryID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
