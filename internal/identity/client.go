package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

const defaultBaseURL = "https://api.clerk.com"

// Profile is the provider's view of a user. The external id is the only
// required field; the rest reflect whatever the user has filled in.
type Profile struct {
	ExternalID string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
}

// Config controls how the identity client behaves.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client wraps the identity provider's backend REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// New creates a configured Client with sane defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("identity: API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type userResponse struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	PhoneNumbers []struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"phone_numbers"`
}

// Profile fetches the current provider profile for an external user id.
// The first email address and first phone number win when several exist.
func (c *Client) Profile(ctx context.Context, externalID string) (Profile, error) {
	if strings.TrimSpace(externalID) == "" {
		return Profile{}, errors.New("identity: external id is required")
	}

	url := fmt.Sprintf("%s/v1/users/%s", c.baseURL, externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("identity: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("identity: profile request failed with status %d", resp.StatusCode)
	}

	var body userResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Profile{}, fmt.Errorf("identity: decode profile: %w", err)
	}

	profile := Profile{
		ExternalID: body.ID,
		FirstName:  body.FirstName,
		LastName:   body.LastName,
	}
	if profile.ExternalID == "" {
		profile.ExternalID = externalID
	}
	if len(body.EmailAddresses) > 0 {
		profile.Email = body.EmailAddresses[0].EmailAddress
	}
	if len(body.PhoneNumbers) > 0 {
		profile.Phone = body.PhoneNumbers[0].PhoneNumber
	}
	return profile, nil
}
