package dentists

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// Handler handles HTTP requests for the dentist directory.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a new dentists handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// ListResponse is the response for listing dentists.
type ListResponse struct {
	Dentists []*Dentist `json:"dentists"`
	Count    int        `json:"count"`
}

// List handles GET /dentists requests.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	dentists, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list dentists", "error", err)
		http.Error(w, `{"error":"failed to list dentists"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ListResponse{Dentists: dentists, Count: len(dentists)})
}

// Get handles GET /dentists/{dentistID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "dentistID")
	if id == "" {
		http.Error(w, `{"error":"missing dentistID"}`, http.StatusBadRequest)
		return
	}

	dentist, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrDentistNotFound) {
			http.Error(w, `{"error":"dentist not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load dentist", "error", err, "dentist_id", id)
		http.Error(w, `{"error":"failed to load dentist"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dentist)
}
