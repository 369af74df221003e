package organizations

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacity is returned when a pool cannot cover a reservation.
	ErrCapacity = errors.New("insufficient session capacity")

	// ErrOverRelease is returned when releasing more than is reserved and unused.
	ErrOverRelease = errors.New("release exceeds reserved unused sessions")

	// ErrInvalidSessionCount is returned when a session total is not a non-negative multiple of 12
	ErrInvalidSessionCount = errors.New("session count must be a multiple of 12")

	// ErrInvalidName is returned when the organization name is blank
	ErrInvalidName = errors.New("organization name is required")

	// ErrInvalidKind is returned for anything other than purchaser or referrer
	ErrInvalidKind = errors.New("organization type must be purchaser or referrer")

	// ErrNotFound is returned when an organization is not found
	ErrNotFound = errors.New("organization not found")

	// ErrInactive is returned when a deactivated organization is asked to take new work
	ErrInactive = errors.New("organization is inactive")
)

// CapacityError carries the numbers behind an ErrCapacity failure.
type CapacityError struct {
	OrganizationID string
	Requested      int
	Available      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("unable to reserve %d sessions. Available: %d", e.Requested, e.Available)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// OverReleaseError carries the numbers behind an ErrOverRelease failure.
type OverReleaseError struct {
	OrganizationID string
	Requested      int
	Releasable     int
}

func (e *OverReleaseError) Error() string {
	return fmt.Sprintf("unable to release %d sessions. Releasable: %d", e.Requested, e.Releasable)
}

func (e *OverReleaseError) Is(target error) bool { return target == ErrOverRelease }
