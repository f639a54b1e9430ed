package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// AdminDashboardHandler serves the staff overview endpoint.
type AdminDashboardHandler struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewAdminDashboardHandler creates a new admin dashboard handler.
func NewAdminDashboardHandler(db *sql.DB, logger *logging.Logger) *AdminDashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminDashboardHandler{
		db:     db,
		logger: logger,
	}
}

// DashboardResponse contains the staff dashboard metrics.
type DashboardResponse struct {
	Appointments AppointmentCounts     `json:"appointments"`
	Patients     int                   `json:"patients"`
	Today        []UpcomingAppointment `json:"today"`
}

// AppointmentCounts groups appointment totals by lifecycle status.
type AppointmentCounts struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// UpcomingAppointment is one row of today's schedule.
type UpcomingAppointment struct {
	ID          string `json:"id"`
	TimeLabel   string `json:"time"`
	PatientName string `json:"patient_name"`
	DentistName string `json:"dentist_name"`
	Reason      string `json:"reason"`
}

// GetDashboard returns appointment counts by status and today's
// confirmed schedule. Unlike the patient-facing stats widget, staff see
// a hard error when the queries fail.
// GET /admin/dashboard
func (h *AdminDashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var resp DashboardResponse

	err := h.db.QueryRowContext(r.Context(), `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'CONFIRMED'),
		       COUNT(*) FILTER (WHERE status = 'COMPLETED'),
		       COUNT(*) FILTER (WHERE status = 'CANCELLED')
		FROM appointments
	`).Scan(
		&resp.Appointments.Total,
		&resp.Appointments.Confirmed,
		&resp.Appointments.Completed,
		&resp.Appointments.Cancelled,
	)
	if err != nil {
		h.logger.Error("dashboard appointment counts failed", "error", err)
		h.jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	if err := h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM patients`,
	).Scan(&resp.Patients); err != nil {
		h.logger.Error("dashboard patient count failed", "error", err)
		h.jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	today := time.Now().UTC().Format("2006-01-02")
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT a.id, a.time_label,
		       TRIM(COALESCE(p.first_name, '') || ' ' || COALESCE(p.last_name, '')),
		       d.name, a.reason
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN dentists d ON d.id = a.dentist_id
		WHERE a.date = $1 AND a.status = 'CONFIRMED'
		ORDER BY a.time_label
	`, today)
	if err != nil {
		h.logger.Error("dashboard schedule query failed", "error", err)
		h.jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	defer rows.Close()

	resp.Today = make([]UpcomingAppointment, 0)
	for rows.Next() {
		var ua UpcomingAppointment
		if err := rows.Scan(&ua.ID, &ua.TimeLabel, &ua.PatientName, &ua.DentistName, &ua.Reason); err != nil {
			h.logger.Error("dashboard schedule scan failed", "error", err)
			h.jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
			return
		}
		resp.Today = append(resp.Today, ua)
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("dashboard schedule rows failed", "error", err)
		h.jsonError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *AdminDashboardHandler) jsonError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
