package appointments

import (
	"strings"
	"time"
)

// Status is the appointment lifecycle state. The set is closed.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// DefaultReason is used when a booking omits the free-text reason.
const DefaultReason = "General consultation"

// Valid reports whether s is a member of the closed status set.
func (s Status) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// transitions is the explicit state machine: COMPLETED and CANCELLED
// are terminal.
var transitions = map[Status][]Status{
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
// Setting the current status again is allowed (idempotent no-op).
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment is the API view of a booked slot, with practitioner and
// patient display fields denormalized and the date reduced to a
// calendar-day string.
type Appointment struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id"`
	DentistID    string    `json:"dentist_id"`
	Date         string    `json:"date"` // YYYY-MM-DD
	TimeLabel    string    `json:"time"`
	Reason       string    `json:"reason"`
	Status       Status    `json:"status"`
	PatientName  string    `json:"patient_name"`
	DentistName  string    `json:"dentist_name"`
	DentistImage string    `json:"dentist_image"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// PatientEmail carries the stored contact address for the
	// confirmation pipeline; it never renders in API responses.
	PatientEmail string `json:"-"`
}

// BookRequest carries the booking input from the UI.
type BookRequest struct {
	DentistID string `json:"dentist_id"`
	Date      string `json:"date"` // YYYY-MM-DD
	TimeLabel string `json:"time"`
	Reason    string `json:"reason"`
}

// Validate checks the required booking fields before any persistence
// call is made.
func (r *BookRequest) Validate() error {
	if strings.TrimSpace(r.DentistID) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(r.Date) == "" {
		return ErrInvalidInput
	}
	if _, err := time.Parse("2006-01-02", strings.TrimSpace(r.Date)); err != nil {
		return ErrInvalidInput
	}
	if strings.TrimSpace(r.TimeLabel) == "" {
		return ErrInvalidInput
	}
	return nil
}

// Stats are the authenticated patient's dashboard counters.
type Stats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func displayName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
