package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eventide/rsvp/internal/model"
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// FindByEmail returns the RSVP whose email matches exactly.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*model.RSVP, error) {
	query := `
		SELECT id::text, name, email, special_requests, created_at
		FROM rsvps
		WHERE email = $1
	`

	var rsvp model.RSVP
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&rsvp.ID,
		&rsvp.Name,
		&rsvp.Email,
		&rsvp.SpecialRequests,
		&rsvp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRSVPNotFound
		}
		return nil, fmt.Errorf("failed to get rsvp by email: %w", err)
	}

	rsvp.CreatedAt = rsvp.CreatedAt.UTC()
	return &rsvp, nil
}

// InsertRSVP inserts a new RSVP and fills in its store-assigned ID and CreatedAt.
func (r *Repository) InsertRSVP(ctx context.Context, rsvp *model.RSVP) error {
	query := `
		INSERT INTO rsvps (name, email, special_requests)
		VALUES ($1, $2, $3)
		RETURNING id::text, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		rsvp.Name,
		rsvp.Email,
		rsvp.SpecialRequests,
	).Scan(&rsvp.ID, &rsvp.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to insert rsvp: %w", err)
	}

	rsvp.CreatedAt = rsvp.CreatedAt.UTC()
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
