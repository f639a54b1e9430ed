package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/brightsmile/dental-ai-platform/internal/dentists"
	"github.com/brightsmile/dental-ai-platform/internal/identity"
	"github.com/brightsmile/dental-ai-platform/internal/notify"
	"github.com/brightsmile/dental-ai-platform/internal/observability/metrics"
	"github.com/brightsmile/dental-ai-platform/internal/patients"
	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("dental.internal.appointments")

// repository is what the service needs from persistence.
type repository interface {
	Book(ctx context.Context, profile identity.Profile, req BookRequest, reason string) (*Appointment, error)
	BookedSlots(ctx context.Context, dentistID, date string) ([]string, error)
	ListAll(ctx context.Context) ([]*Appointment, error)
	ListForPatient(ctx context.Context, externalID string) ([]*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	SetStatus(ctx context.Context, id string, status Status) (*Appointment, error)
	StatsForPatient(ctx context.Context, externalID string) (*Stats, error)
}

// Notifier enqueues booking confirmations for async delivery.
type Notifier interface {
	EnqueueBookingConfirmed(ctx context.Context, evt notify.BookingConfirmed) error
}

// Service implements the booking, availability, query and status
// transition workflows.
type Service struct {
	repo              repository
	profiles          patients.ProfileFetcher
	notifier          Notifier
	slotMenu          []string
	metrics           *metrics.BookingMetrics
	logger            *logging.Logger
	profileRetries    int
	profileRetryDelay time.Duration
}

// NewService constructs the appointments service. notifier and metrics
// may be nil (disabled).
func NewService(repo repository, profiles patients.ProfileFetcher, notifier Notifier, slotMenu []string, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if repo == nil {
		panic("appointments: repository required")
	}
	if profiles == nil {
		panic("appointments: identity profile client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:              repo,
		profiles:          profiles,
		notifier:          notifier,
		slotMenu:          slotMenu,
		metrics:           m,
		logger:            logger,
		profileRetries:    patients.DefaultRetryAttempts,
		profileRetryDelay: patients.DefaultRetryDelay,
	}
}

// Book validates and persists a new appointment for the caller. The
// patient sync and insert share one transaction, and the slot unique
// index turns a lost race into ErrSlotTaken instead of a double booking.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.book")
	defer span.End()
	start := time.Now()

	externalID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return nil, patients.ErrNotAuthenticated
	}
	span.SetAttributes(attribute.String("dental.external_id", externalID))

	if err := req.Validate(); err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("dental.dentist_id", req.DentistID),
		attribute.String("dental.date", req.Date),
		attribute.String("dental.time", req.TimeLabel),
	)

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = DefaultReason
	}

	profile, err := patients.FetchProfile(ctx, s.profiles, externalID, s.profileRetries, s.profileRetryDelay)
	if err != nil {
		// The caller is already authenticated; a degraded profile API
		// must not block the booking. The upsert keeps stored fields
		// when the profile carries none.
		s.logger.Warn("booking with identity-only profile", "external_id", externalID, "error", err)
		profile = identity.Profile{ExternalID: externalID}
	}

	appt, err := s.repo.Book(ctx, profile, req, reason)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, ErrSlotTaken):
			s.metrics.ObserveBooking("slot_conflict")
			return nil, ErrSlotTaken
		case errors.Is(err, dentists.ErrDentistNotFound):
			s.metrics.ObserveBooking("invalid")
			return nil, err
		default:
			s.metrics.ObserveBooking("failed")
			s.logger.Error("booking persistence failed", "error", err,
				"dentist_id", req.DentistID, "date", req.Date, "time", req.TimeLabel)
			return nil, ErrBookingFailed
		}
	}

	s.metrics.ObserveBooking("created")
	s.metrics.ObserveBookingLatency(time.Since(start).Seconds())
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"dentist_id", appt.DentistID,
		"date", appt.Date,
		"time", appt.TimeLabel,
	)

	// The stored address survives a provider outage, so the
	// confirmation goes out even on an identity-only booking.
	if s.notifier != nil && appt.PatientEmail != "" {
		evt := notify.BookingConfirmed{
			AppointmentID: appt.ID,
			PatientName:   appt.PatientName,
			PatientEmail:  appt.PatientEmail,
			DentistName:   appt.DentistName,
			Date:          appt.Date,
			TimeLabel:     appt.TimeLabel,
			Reason:        appt.Reason,
		}
		if err := s.notifier.EnqueueBookingConfirmed(ctx, evt); err != nil {
			s.logger.Error("failed to enqueue booking confirmation", "error", err, "appointment_id", appt.ID)
		}
	}

	return appt, nil
}

// SlotAvailability is the booked/available split for one dentist-day.
type SlotAvailability struct {
	Booked    []string `json:"booked"`
	Available []string `json:"available"`
}

// Slots returns the booked labels and the remainder of the static menu.
// The read path is best-effort for UI rendering: failures log and
// degrade to an empty booked set.
func (s *Service) Slots(ctx context.Context, dentistID, date string) *SlotAvailability {
	booked, err := s.repo.BookedSlots(ctx, dentistID, date)
	if err != nil {
		s.logger.Error("booked slots lookup failed", "error", err, "dentist_id", dentistID, "date", date)
		booked = nil
	}

	taken := make(map[string]struct{}, len(booked))
	for _, label := range booked {
		taken[label] = struct{}{}
	}
	available := make([]string, 0, len(s.slotMenu))
	for _, label := range s.slotMenu {
		if _, ok := taken[label]; !ok {
			available = append(available, label)
		}
	}
	if booked == nil {
		booked = []string{}
	}
	return &SlotAvailability{Booked: booked, Available: available}
}

// ListAll returns every appointment, newest-created first.
func (s *Service) ListAll(ctx context.Context) ([]*Appointment, error) {
	return s.repo.ListAll(ctx)
}

// ListMine returns the caller's appointments ordered soonest first.
func (s *Service) ListMine(ctx context.Context) ([]*Appointment, error) {
	externalID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return nil, patients.ErrNotAuthenticated
	}
	return s.repo.ListForPatient(ctx, externalID)
}

// MyStats returns the caller's dashboard counters. Deliberately
// fail-open: a broken widget query degrades to zeros, never an error.
func (s *Service) MyStats(ctx context.Context) *Stats {
	externalID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return &Stats{}
	}
	stats, err := s.repo.StatsForPatient(ctx, externalID)
	if err != nil {
		s.logger.Error("stats lookup failed", "error", err, "external_id", externalID)
		return &Stats{}
	}
	return stats
}

// UpdateStatus moves an appointment through the lifecycle state machine.
// Setting the current status again is an idempotent success without a
// write.
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus Status) (*Appointment, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidInput
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		s.logger.Error("status update load failed", "error", err, "appointment_id", id)
		return nil, ErrUpdateFailed
	}

	if current.Status == newStatus {
		return current, nil
	}
	if !CanTransition(current.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	updated, err := s.repo.SetStatus(ctx, id, newStatus)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		s.logger.Error("status update persistence failed", "error", err, "appointment_id", id)
		return nil, ErrUpdateFailed
	}

	s.logger.Info("appointment status updated",
		"appointment_id", id, "from", current.Status, "to", newStatus)
	return updated, nil
}
