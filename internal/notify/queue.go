package notify

import "context"

// Queue is the transport for confirmation events. Backed by SQS in
// deployed environments and an in-memory channel in development.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is a single queued payload with its delivery receipt.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// BookingConfirmedKind is the versioned event name for new bookings.
const BookingConfirmedKind = "booking_confirmed.v1"

// BookingConfirmed is emitted after an appointment commits. It carries
// everything the email template needs so the worker never reads the
// database.
type BookingConfirmed struct {
	AppointmentID string `json:"appointment_id"`
	PatientName   string `json:"patient_name"`
	PatientEmail  string `json:"patient_email"`
	DentistName   string `json:"dentist_name"`
	Date          string `json:"date"`
	TimeLabel     string `json:"time"`
	Reason        string `json:"reason"`
}

type envelope struct {
	ID      string            `json:"id"`
	Kind    string            `json:"kind"`
	Booking *BookingConfirmed `json:"booking,omitempty"`
}
