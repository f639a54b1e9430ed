package dentists

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDentistNotFound is returned when a dentist is not found
var ErrDentistNotFound = errors.New("dentist not found")

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads the dentist directory.
type Repository struct {
	db db
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("dentists: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(d db) *Repository {
	return &Repository{db: d}
}

// List returns all dentists ordered by name.
func (r *Repository) List(ctx context.Context) ([]*Dentist, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, COALESCE(specialty, ''), COALESCE(image_url, ''), created_at
		FROM dentists
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("dentists: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Dentist
	for rows.Next() {
		var d Dentist
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialty, &d.ImageURL, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("dentists: scan failed: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dentists: rows failed: %w", err)
	}
	return out, nil
}

// GetByID fetches a single dentist.
func (r *Repository) GetByID(ctx context.Context, id string) (*Dentist, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(specialty, ''), COALESCE(image_url, ''), created_at
		FROM dentists
		WHERE id = $1
	`, id)
	var d Dentist
	if err := row.Scan(&d.ID, &d.Name, &d.Specialty, &d.ImageURL, &d.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrDentistNotFound
		}
		return nil, fmt.Errorf("dentists: select failed: %w", err)
	}
	return &d, nil
}
