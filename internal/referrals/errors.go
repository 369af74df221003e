package referrals

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateReferral is returned when an active referral already exists for the client
	ErrDuplicateReferral = errors.New("an active referral already exists for this client")

	// ErrInvalidTransition is returned when a lifecycle event is not allowed from the current status
	ErrInvalidTransition = errors.New("invalid referral status transition")

	// ErrSessionExhausted is returned when every allocated session has been used
	ErrSessionExhausted = errors.New("no sessions remaining for referral")

	// ErrNotFound is returned when a referral is not found
	ErrNotFound = errors.New("referral not found")

	// ErrInvalidName is returned when the client name is blank
	ErrInvalidName = errors.New("client name is required")

	// ErrMissingContact is returned when the preferred contact channel has no address
	ErrMissingContact = errors.New("client contact details are required")

	// ErrInvalidContactMethod is returned for anything other than email or phone
	ErrInvalidContactMethod = errors.New("preferred contact must be email or phone")
)

// TransitionError names the status and event of a rejected transition.
type TransitionError struct {
	ReferralID string
	From       Status
	Event      string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s referral %s while %s", e.Event, e.ReferralID, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
