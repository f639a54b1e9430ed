package patients

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// Handler handles HTTP requests for the current patient.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new patients handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Me handles GET /me: syncs and returns the caller's patient record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.EnsurePatient(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
			return
		}
		h.logger.Error("failed to sync patient", "error", err)
		http.Error(w, `{"error":"failed to sync patient"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(patient)
}
