package scheduling

import "errors"

var (
	// ErrNotFound wraps a missing referral, appointment or practitioner.
	ErrNotFound = errors.New("scheduling: not found")

	// ErrAppointmentClosed is returned when cancelling or completing an
	// appointment that is already cancelled or completed.
	ErrAppointmentClosed = errors.New("appointment is already closed")
)
