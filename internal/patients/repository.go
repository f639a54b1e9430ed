package patients

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightsmile/dental-ai-platform/internal/identity"
)

// Querier is the subset of pgx used by patient persistence. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the booking transaction can
// reuse the same upsert.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores patients in the relational database.
type Repository struct {
	db Querier
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db Querier) *Repository {
	return &Repository{db: db}
}

const upsertSQL = `
	INSERT INTO patients (id, external_id, first_name, last_name, email, phone)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (external_id) DO UPDATE SET
		first_name = COALESCE(NULLIF(EXCLUDED.first_name, ''), patients.first_name),
		last_name  = COALESCE(NULLIF(EXCLUDED.last_name, ''), patients.last_name),
		email      = COALESCE(NULLIF(EXCLUDED.email, ''), patients.email),
		phone      = COALESCE(NULLIF(EXCLUDED.phone, ''), patients.phone),
		updated_at = now()
	RETURNING id, external_id, first_name, last_name, email, phone, created_at, updated_at
`

// Upsert atomically creates or refreshes the patient row keyed on the
// external identity id. A single statement, never read-then-write, so
// concurrent first-time syncs cannot create duplicate rows. Non-empty
// profile fields always refresh (the identity provider is the source of
// truth); empty fields keep the stored value, so an identity-only sync
// during a provider outage cannot erase contact data.
func Upsert(ctx context.Context, db Querier, profile identity.Profile) (*Patient, error) {
	row := db.QueryRow(ctx, upsertSQL,
		uuid.New(),
		profile.ExternalID,
		profile.FirstName,
		profile.LastName,
		profile.Email,
		profile.Phone,
	)
	var p Patient
	if err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("patients: upsert failed: %w", err)
	}
	return &p, nil
}

// Upsert runs the atomic update-or-insert against the repository pool.
func (r *Repository) Upsert(ctx context.Context, profile identity.Profile) (*Patient, error) {
	return Upsert(ctx, r.db, profile)
}

// GetByExternalID fetches a patient by its external identity id.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*Patient, error) {
	query := `
		SELECT id, external_id, first_name, last_name, email, phone, created_at, updated_at
		FROM patients
		WHERE external_id = $1
	`
	row := r.db.QueryRow(ctx, query, externalID)
	var p Patient
	if err := row.Scan(
		&p.ID,
		&p.ExternalID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return &p, nil
}
