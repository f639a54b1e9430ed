package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/brightsmile/dental-ai-platform/internal/dentists"
	"github.com/brightsmile/dental-ai-platform/internal/identity"
)

const (
	testDentistID = "aaaaaaaa-0000-0000-0000-000000000001"
	testApptID    = "bbbbbbbb-0000-0000-0000-000000000001"
)

func patientRow() *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows([]string{
		"id", "external_id", "first_name", "last_name", "email", "phone", "created_at", "updated_at",
	}).AddRow(
		"cccccccc-0000-0000-0000-000000000001", "user_1", "Ada", "Lovelace",
		"ada@example.com", "+15550100", now, now,
	)
}

func appointmentRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "patient_id", "dentist_id", "date", "time_label", "reason", "status",
		"first_name", "last_name", "name", "image_url", "created_at", "updated_at",
	})
}

func testProfile() identity.Profile {
	return identity.Profile{
		ExternalID: "user_1",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Phone:      "+15550100",
	}
}

func TestBookCommitsPatientSyncAndInsertTogether(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO patients .* ON CONFLICT \(external_id\) DO UPDATE SET`).
		WithArgs(pgxmock.AnyArg(), "user_1", "Ada", "Lovelace", "ada@example.com", "+15550100").
		WillReturnRows(patientRow())
	mock.ExpectQuery(`SELECT name, COALESCE\(image_url, ''\) FROM dentists WHERE id = \$1`).
		WithArgs(testDentistID).
		WillReturnRows(pgxmock.NewRows([]string{"name", "image_url"}).
			AddRow("Dr. Sarah Patel", "https://img.example.com/patel.png"))
	mock.ExpectQuery(`INSERT INTO appointments .* RETURNING created_at, updated_at`).
		WithArgs(pgxmock.AnyArg(), "cccccccc-0000-0000-0000-000000000001", testDentistID,
			"2026-09-01", "10:00", "Tooth pain", StatusConfirmed).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	repo := NewRepositoryWithDB(mock)
	appt, err := repo.Book(context.Background(), testProfile(), BookRequest{
		DentistID: testDentistID,
		Date:      "2026-09-01",
		TimeLabel: "10:00",
	}, "Tooth pain")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.Status != StatusConfirmed {
		t.Errorf("Status = %s, want CONFIRMED", appt.Status)
	}
	if appt.PatientName != "Ada Lovelace" {
		t.Errorf("PatientName = %q", appt.PatientName)
	}
	if appt.DentistName != "Dr. Sarah Patel" {
		t.Errorf("DentistName = %q", appt.DentistName)
	}
	if appt.PatientEmail != "ada@example.com" {
		t.Errorf("PatientEmail = %q", appt.PatientEmail)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBookMapsUniqueViolationToSlotTaken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO patients`).
		WithArgs(pgxmock.AnyArg(), "user_1", "Ada", "Lovelace", "ada@example.com", "+15550100").
		WillReturnRows(patientRow())
	mock.ExpectQuery(`SELECT name, COALESCE\(image_url, ''\) FROM dentists`).
		WithArgs(testDentistID).
		WillReturnRows(pgxmock.NewRows([]string{"name", "image_url"}).AddRow("Dr. Sarah Patel", ""))
	mock.ExpectQuery(`INSERT INTO appointments`).
		WithArgs(pgxmock.AnyArg(), "cccccccc-0000-0000-0000-000000000001", testDentistID,
			"2026-09-01", "10:00", "Tooth pain", StatusConfirmed).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_appointments_slot"})
	mock.ExpectRollback()

	repo := NewRepositoryWithDB(mock)
	_, err = repo.Book(context.Background(), testProfile(), BookRequest{
		DentistID: testDentistID,
		Date:      "2026-09-01",
		TimeLabel: "10:00",
	}, "Tooth pain")
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("Book error = %v, want ErrSlotTaken", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBookUnknownDentist(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO patients`).
		WithArgs(pgxmock.AnyArg(), "user_1", "Ada", "Lovelace", "ada@example.com", "+15550100").
		WillReturnRows(patientRow())
	mock.ExpectQuery(`SELECT name, COALESCE\(image_url, ''\) FROM dentists`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	repo := NewRepositoryWithDB(mock)
	_, err = repo.Book(context.Background(), testProfile(), BookRequest{
		DentistID: "missing",
		Date:      "2026-09-01",
		TimeLabel: "10:00",
	}, "Tooth pain")
	if !errors.Is(err, dentists.ErrDentistNotFound) {
		t.Fatalf("Book error = %v, want ErrDentistNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestBookedSlotsExcludesCancelled(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT time_label FROM appointments WHERE dentist_id = \$1 AND date = \$2 AND status IN \('CONFIRMED', 'COMPLETED'\)`).
		WithArgs(testDentistID, "2026-09-01").
		WillReturnRows(pgxmock.NewRows([]string{"time_label"}).AddRow("09:00").AddRow("14:00"))

	repo := NewRepositoryWithDB(mock)
	labels, err := repo.BookedSlots(context.Background(), testDentistID, "2026-09-01")
	if err != nil {
		t.Fatalf("BookedSlots: %v", err)
	}
	if len(labels) != 2 || labels[0] != "09:00" || labels[1] != "14:00" {
		t.Errorf("labels = %v", labels)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT a.id, .* FROM appointments a`).
		WithArgs(testApptID).
		WillReturnError(pgx.ErrNoRows)

	repo := NewRepositoryWithDB(mock)
	if _, err := repo.GetByID(context.Background(), testApptID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("GetByID error = %v, want ErrAppointmentNotFound", err)
	}
}

func TestSetStatusReloadsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	date, _ := time.Parse("2006-01-02", "2026-09-01")
	mock.ExpectExec(`UPDATE appointments SET status = \$2, updated_at = now\(\) WHERE id = \$1`).
		WithArgs(testApptID, StatusCompleted).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`SELECT a.id, .* FROM appointments a`).
		WithArgs(testApptID).
		WillReturnRows(appointmentRows().AddRow(
			testApptID, "cccccccc-0000-0000-0000-000000000001", testDentistID,
			date, "10:00", "Tooth pain", StatusCompleted,
			"Ada", "Lovelace", "Dr. Sarah Patel", "", now, now,
		))

	repo := NewRepositoryWithDB(mock)
	appt, err := repo.SetStatus(context.Background(), testApptID, StatusCompleted)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if appt.Status != StatusCompleted {
		t.Errorf("Status = %s, want COMPLETED", appt.Status)
	}
	if appt.Date != "2026-09-01" {
		t.Errorf("Date = %q, want 2026-09-01", appt.Date)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSetStatusMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectExec(`UPDATE appointments SET status = \$2`).
		WithArgs(testApptID, StatusCancelled).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewRepositoryWithDB(mock)
	if _, err := repo.SetStatus(context.Background(), testApptID, StatusCancelled); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("SetStatus error = %v, want ErrAppointmentNotFound", err)
	}
}

func TestStatsForPatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER \(WHERE a.status = 'COMPLETED'\)`).
		WithArgs("user_1").
		WillReturnRows(pgxmock.NewRows([]string{"total", "completed"}).AddRow(int64(5), int64(2)))

	repo := NewRepositoryWithDB(mock)
	stats, err := repo.StatsForPatient(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("StatsForPatient: %v", err)
	}
	if stats.Total != 5 || stats.Completed != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestListAllOrdersNewestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	older := now.Add(-48 * time.Hour)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT a.id, .* ORDER BY a\.created_at DESC`).
		WillReturnRows(appointmentRows().
			AddRow("b2", "p1", testDentistID, day, "11:00", "Cleaning", StatusConfirmed,
				"Grace", "Hopper", "Dr. Sarah Patel", "", now, now).
			AddRow("b1", "p1", testDentistID, day, "09:00", "Cleaning", StatusCompleted,
				"Ada", "Lovelace", "Dr. Sarah Patel", "", older, older))

	repo := NewRepositoryWithDB(mock)
	appts, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("len = %d, want 2", len(appts))
	}
	if appts[0].ID != "b2" || appts[1].ID != "b1" {
		t.Errorf("order = [%s, %s], want newest created first", appts[0].ID, appts[1].ID)
	}
	if appts[0].PatientName != "Grace Hopper" {
		t.Errorf("PatientName = %q", appts[0].PatientName)
	}
	if appts[0].Date != "2026-09-01" {
		t.Errorf("Date = %q", appts[0].Date)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListForPatientOrdersByDateThenTime(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT a.id, .* WHERE p\.external_id = \$1 ORDER BY a\.date ASC, a\.time_label ASC`).
		WithArgs("user_1").
		WillReturnRows(appointmentRows().
			AddRow("b1", "p1", testDentistID, day, "09:00", "Cleaning", StatusConfirmed,
				"Ada", "Lovelace", "Dr. Sarah Patel", "", now, now).
			AddRow("b2", "p1", testDentistID, day, "11:00", "Checkup", StatusConfirmed,
				"Ada", "Lovelace", "Dr. Sarah Patel", "", now, now))

	repo := NewRepositoryWithDB(mock)
	appts, err := repo.ListForPatient(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("ListForPatient: %v", err)
	}
	if len(appts) != 2 {
		t.Fatalf("len = %d, want 2", len(appts))
	}
	if appts[0].TimeLabel != "09:00" || appts[1].TimeLabel != "11:00" {
		t.Errorf("order = [%s, %s], want soonest first", appts[0].TimeLabel, appts[1].TimeLabel)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
