package patients

import (
	"strings"
	"time"
)

// Patient is the local record mirroring an external identity.
type Patient struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName is the trimmed concatenation of first and last name.
func (p *Patient) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
