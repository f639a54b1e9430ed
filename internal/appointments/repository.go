package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightsmile/dental-ai-platform/internal/dentists"
	"github.com/brightsmile/dental-ai-platform/internal/identity"
	"github.com/brightsmile/dental-ai-platform/internal/patients"
)

// slotConstraint is the partial unique index on non-cancelled rows.
const slotConstraint = "uq_appointments_slot"

// DB is the subset of pgxpool used by appointment persistence.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists appointments in the relational database.
type Repository struct {
	db DB
}

// NewRepository initializes a repo backed by pgxpool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db DB) *Repository {
	return &Repository{db: db}
}

// Book runs the patient sync and the appointment insert inside a single
// transaction. The partial unique index on (dentist_id, date, time_label)
// for non-cancelled rows enforces slot exclusivity; a unique violation
// maps to ErrSlotTaken.
func (r *Repository) Book(ctx context.Context, profile identity.Profile, req BookRequest, reason string) (*Appointment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointments: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	patient, err := patients.Upsert(ctx, tx, profile)
	if err != nil {
		return nil, err
	}

	var dentistName, dentistImage string
	err = tx.QueryRow(ctx,
		`SELECT name, COALESCE(image_url, '') FROM dentists WHERE id = $1`,
		req.DentistID,
	).Scan(&dentistName, &dentistImage)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dentists.ErrDentistNotFound
		}
		return nil, fmt.Errorf("appointments: load dentist: %w", err)
	}

	appt := &Appointment{
		ID:           uuid.NewString(),
		PatientID:    patient.ID,
		DentistID:    req.DentistID,
		Date:         req.Date,
		TimeLabel:    req.TimeLabel,
		Reason:       reason,
		Status:       StatusConfirmed,
		PatientName:  patient.DisplayName(),
		PatientEmail: patient.Email,
		DentistName:  dentistName,
		DentistImage: dentistImage,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, dentist_id, date, time_label, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`,
		appt.ID,
		appt.PatientID,
		appt.DentistID,
		appt.Date,
		appt.TimeLabel,
		appt.Reason,
		appt.Status,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("appointments: commit: %w", err)
	}
	return appt, nil
}

// isSlotConflict reports whether err is a unique violation on the slot index.
func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" && pgErr.ConstraintName == slotConstraint
}

// BookedSlots returns the time labels held by live (CONFIRMED or
// COMPLETED) appointments for the dentist on the given date.
func (r *Repository) BookedSlots(ctx context.Context, dentistID, date string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT time_label
		FROM appointments
		WHERE dentist_id = $1 AND date = $2 AND status IN ('CONFIRMED', 'COMPLETED')
		ORDER BY time_label
	`, dentistID, date)
	if err != nil {
		return nil, fmt.Errorf("appointments: booked slots query: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("appointments: booked slots scan: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: booked slots rows: %w", err)
	}
	return labels, nil
}

const selectAppointment = `
	SELECT a.id, a.patient_id, a.dentist_id, a.date, a.time_label, a.reason, a.status,
	       p.first_name, p.last_name, d.name, COALESCE(d.image_url, ''),
	       a.created_at, a.updated_at
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	JOIN dentists d ON d.id = a.dentist_id
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a     Appointment
		date  time.Time
		first string
		last  string
	)
	if err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DentistID,
		&date,
		&a.TimeLabel,
		&a.Reason,
		&a.Status,
		&first,
		&last,
		&a.DentistName,
		&a.DentistImage,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Date = formatDate(date)
	a.PatientName = displayName(first, last)
	return &a, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list query: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: list scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list rows: %w", err)
	}
	return out, nil
}

// ListAll returns every appointment, newest-created first.
func (r *Repository) ListAll(ctx context.Context) ([]*Appointment, error) {
	return r.list(ctx, selectAppointment+`ORDER BY a.created_at DESC`)
}

// ListForPatient returns the patient's appointments, soonest first with
// a secondary sort on the time-of-day label.
func (r *Repository) ListForPatient(ctx context.Context, externalID string) ([]*Appointment, error) {
	return r.list(ctx, selectAppointment+
		`WHERE p.external_id = $1
		ORDER BY a.date ASC, a.time_label ASC`, externalID)
}

// GetByID fetches a single appointment with display fields.
func (r *Repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, selectAppointment+`WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select failed: %w", err)
	}
	return a, nil
}

// SetStatus overwrites the lifecycle status. Transition legality is the
// service's concern; the repository is a flat write.
func (r *Repository) SetStatus(ctx context.Context, id string, status Status) (*Appointment, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetByID(ctx, id)
}

// StatsForPatient counts total and completed appointments for a patient.
func (r *Repository) StatsForPatient(ctx context.Context, externalID string) (*Stats, error) {
	var stats Stats
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE a.status = 'COMPLETED')
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE p.external_id = $1
	`, externalID).Scan(&stats.Total, &stats.Completed)
	if err != nil {
		return nil, fmt.Errorf("appointments: stats query: %w", err)
	}
	return &stats, nil
}
