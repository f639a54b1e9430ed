package appointments

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightsmile/dental-ai-platform/internal/dentists"
	"github.com/brightsmile/dental-ai-platform/internal/patients"
	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// Handler handles HTTP requests for appointments
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

// NewHandler creates a new appointments handler
func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Book handles POST /appointments requests
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode booking request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.svc.Book(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, appt)
}

// Slots handles GET /dentists/{dentistID}/slots?date=YYYY-MM-DD requests
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	dentistID := chi.URLParam(r, "dentistID")
	date := r.URL.Query().Get("date")
	if dentistID == "" || date == "" {
		writeError(w, http.StatusBadRequest, "dentist id and date are required")
		return
	}

	writeJSON(w, http.StatusOK, h.svc.Slots(r.Context(), dentistID, date))
}

// ListMine handles GET /appointments/me requests
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.ListMine(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

// ListAll handles GET /admin/appointments requests
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

// MyStats handles GET /appointments/stats requests
func (h *Handler) MyStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.MyStats(r.Context()))
}

type updateStatusRequest struct {
	Status Status `json:"status"`
}

// UpdateStatus handles PATCH /appointments/{appointmentID}/status requests
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "appointmentID")
	if id == "" {
		writeError(w, http.StatusBadRequest, "appointment id is required")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode status request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.svc.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, appt)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, patients.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot already booked")
	case errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "invalid status transition")
	case errors.Is(err, ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, dentists.ErrDentistNotFound):
		writeError(w, http.StatusNotFound, "dentist not found")
	default:
		h.logger.Error("appointment request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
