package patients

import "errors"

var (
	// ErrNotAuthenticated is returned when no caller identity is available
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPatientNotFound is returned when a patient is not found
	ErrPatientNotFound = errors.New("patient not found")
)
