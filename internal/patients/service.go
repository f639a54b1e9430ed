package patients

import (
	"context"
	"time"

	"github.com/brightsmile/dental-ai-platform/internal/identity"
	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// ProfileFetcher looks up the provider's current profile for a user.
type ProfileFetcher interface {
	Profile(ctx context.Context, externalID string) (identity.Profile, error)
}

// Profile-lookup retry policy shared by the sync and booking paths.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 500 * time.Millisecond
)

// Upserter persists the provider profile as a local patient row.
type Upserter interface {
	Upsert(ctx context.Context, profile identity.Profile) (*Patient, error)
}

// Service reconciles external identities with local patient rows.
type Service struct {
	repo          Upserter
	provider      ProfileFetcher
	retryAttempts int
	retryDelay    time.Duration
	logger        *logging.Logger
}

// NewService constructs a patient sync service.
func NewService(repo Upserter, provider ProfileFetcher, retryAttempts int, retryDelay time.Duration, logger *logging.Logger) *Service {
	if repo == nil {
		panic("patients: repository required")
	}
	if provider == nil {
		panic("patients: identity provider client required")
	}
	if retryAttempts <= 0 {
		retryAttempts = DefaultRetryAttempts
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:          repo,
		provider:      provider,
		retryAttempts: retryAttempts,
		retryDelay:    retryDelay,
		logger:        logger,
	}
}

// EnsurePatient resolves the caller identity from context, fetches the
// current provider profile, and upserts the local row. Persistence
// errors propagate unmodified.
func (s *Service) EnsurePatient(ctx context.Context) (*Patient, error) {
	externalID, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return nil, ErrNotAuthenticated
	}

	profile, err := FetchProfile(ctx, s.provider, externalID, s.retryAttempts, s.retryDelay)
	if err != nil {
		// The provider already authenticated the caller; a degraded
		// profile API should not block the sync. The upsert keeps
		// stored fields when the profile carries none.
		s.logger.Warn("patients: profile fetch failed, syncing identity only",
			"external_id", externalID, "error", err)
		profile = identity.Profile{ExternalID: externalID}
	}

	patient, err := s.repo.Upsert(ctx, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("patient synced", "patient_id", patient.ID, "external_id", externalID)
	return patient, nil
}

// FetchProfile retries the provider lookup a bounded number of times
// with a fixed delay between attempts.
func FetchProfile(ctx context.Context, provider ProfileFetcher, externalID string, attempts int, delay time.Duration) (identity.Profile, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		profile, err := provider.Profile(ctx, externalID)
		if err == nil {
			return profile, nil
		}
		lastErr = err
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return identity.Profile{}, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return identity.Profile{}, lastErr
}
