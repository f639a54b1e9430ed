package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightsmile/dental-ai-platform/internal/appointments"
	"github.com/brightsmile/dental-ai-platform/internal/dentists"
	"github.com/brightsmile/dental-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/brightsmile/dental-ai-platform/internal/http/middleware"
	"github.com/brightsmile/dental-ai-platform/internal/patients"
	"github.com/brightsmile/dental-ai-platform/internal/voice"
	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	PatientsHandler     *patients.Handler
	DentistsHandler     *dentists.Handler
	AppointmentsHandler *appointments.Handler
	VoiceHandler        *voice.Handler
	AdminDashboard      *handlers.AdminDashboardHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Identity provider JWT validation (patient-facing routes)
	IdentityIssuerURL string
	IdentityAudience  string

	// HMAC secret for staff/admin tokens
	AdminAuthSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.DentistsHandler != nil {
			public.Get("/dentists", cfg.DentistsHandler.List)
			public.Get("/dentists/{dentistID}", cfg.DentistsHandler.Get)
		}
		if cfg.AppointmentsHandler != nil {
			public.Get("/dentists/{dentistID}/slots", cfg.AppointmentsHandler.Slots)
		}
	})

	// Patient routes: identity provider JWT required
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.IdentityJWT(httpmiddleware.IdentityConfig{
			IssuerURL: cfg.IdentityIssuerURL,
			Audience:  cfg.IdentityAudience,
		}))

		if cfg.PatientsHandler != nil {
			authed.Get("/me", cfg.PatientsHandler.Me)
		}
		if cfg.AppointmentsHandler != nil {
			authed.Post("/appointments", cfg.AppointmentsHandler.Book)
			authed.Get("/appointments/me", cfg.AppointmentsHandler.ListMine)
			authed.Get("/appointments/stats", cfg.AppointmentsHandler.MyStats)
			authed.Patch("/appointments/{appointmentID}/status", cfg.AppointmentsHandler.UpdateStatus)
		}
		if cfg.VoiceHandler != nil {
			authed.Get("/voice/config", cfg.VoiceHandler.Config)
			authed.Get("/voice/session", cfg.VoiceHandler.HandleSession)
		}
	})

	// Staff routes: HMAC admin JWT required
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		if cfg.AppointmentsHandler != nil {
			admin.Get("/appointments", cfg.AppointmentsHandler.ListAll)
		}
		if cfg.AdminDashboard != nil {
			admin.Get("/dashboard", cfg.AdminDashboard.GetDashboard)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
