package calendar

import "errors"

var (
	// ErrSlotUnavailable is returned when an interval fails the availability check
	ErrSlotUnavailable = errors.New("requested time slot is not available")

	// ErrInvalidWindow is returned for a weekly window that is empty or malformed
	ErrInvalidWindow = errors.New("availability window must start before it ends")

	// ErrInvalidInterval is returned for a blocked interval that is empty
	ErrInvalidInterval = errors.New("blocked interval must start before it ends")

	// ErrNotFound is returned when a practitioner or appointment is not found
	ErrNotFound = errors.New("not found")
)
