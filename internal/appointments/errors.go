package appointments

import "errors"

var (
	// ErrInvalidInput is returned when required booking fields are missing
	ErrInvalidInput = errors.New("dentist, date and time are required")

	// ErrSlotTaken is returned when the requested slot already holds a
	// non-cancelled appointment
	ErrSlotTaken = errors.New("slot already booked")

	// ErrInvalidTransition is returned for illegal status moves
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrBookingFailed wraps persistence failures on the booking path
	ErrBookingFailed = errors.New("booking failed")

	// ErrUpdateFailed wraps persistence failures on the status path
	ErrUpdateFailed = errors.New("status update failed")

	// ErrAppointmentNotFound is returned when an appointment is not found
	ErrAppointmentNotFound = errors.New("appointment not found")
)
