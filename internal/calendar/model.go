// Package calendar models a practitioner's weekly availability, blocked time
// and booked appointments.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// SessionLength is the fixed duration of every appointment.
const SessionLength = 50 * time.Minute

// Window is a recurring weekly bookable interval, at most one per weekday.
type Window struct {
	Day   time.Weekday `json:"day"`
	Start Clock        `json:"startTime"`
	End   Clock        `json:"endTime"`
}

// Validate checks the day and that the window is non-empty.
func (w Window) Validate() error {
	if w.Day < time.Sunday || w.Day > time.Saturday {
		return fmt.Errorf("%w: day %d", ErrInvalidWindow, w.Day)
	}
	if w.Start >= w.End {
		return fmt.Errorf("%w: %s-%s", ErrInvalidWindow, w.Start, w.End)
	}
	return nil
}

// Contains reports whether [start,end) lies inside the window on start's day.
func (w Window) Contains(start, end time.Time) bool {
	if start.Weekday() != w.Day || !start.Before(end) {
		return false
	}
	return !start.Before(w.Start.On(start)) && !end.After(w.End.On(start))
}

// ParseWeekday accepts a weekday name or its number, Sunday being 0.
func ParseWeekday(raw string) (time.Weekday, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if raw == name || raw == name[:3] || raw == fmt.Sprint(int(d)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown day %q", ErrInvalidWindow, raw)
}

// BlockedInterval removes ad-hoc time from availability.
type BlockedInterval struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

// overlaps uses half-open intervals, so touching endpoints do not overlap.
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// AppointmentType is assessment for a referral's first booking, therapy after.
type AppointmentType string

const (
	TypeAssessment AppointmentType = "assessment"
	TypeTherapy    AppointmentType = "therapy"
)

// AppointmentStatus tracks an appointment from booking to close.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentCompleted AppointmentStatus = "completed"
)

// Appointment is one booked session.
type Appointment struct {
	ID                 string            `json:"id"`
	ReferralID         string            `json:"referralId"`
	Start              time.Time         `json:"startTime"`
	End                time.Time         `json:"endTime"`
	Type               AppointmentType   `json:"type"`
	Status             AppointmentStatus `json:"status"`
	CancellationReason string            `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CompletedAt        *time.Time        `json:"completedAt,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
}

// Occupies reports whether the appointment still holds its time.
func (a *Appointment) Occupies() bool {
	return a.Status != AppointmentCancelled
}

// Open reports whether the appointment can still be cancelled or completed.
func (a *Appointment) Open() bool {
	return a.Status == AppointmentScheduled
}

// Slot is a candidate bookable interval.
type Slot struct {
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
}
