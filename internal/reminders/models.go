// Package reminders holds scheduled appointment reminders and the worker
// that sends them when due.
package reminders

import (
	"time"

	"github.com/wolfman30/referral-scheduler/internal/notify"
)

// Status tracks the lifecycle of a reminder.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// Reminder is a message due to go out at FireAt unless cancelled first.
type Reminder struct {
	ID            string `json:"id"`
	AppointmentID string `json:"appointmentId"`
	ReferralID    string `json:"referralId"`
	notify.Message
	FireAt      time.Time  `json:"fireAt"`
	Status      Status     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"lastError,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ScheduleInput describes a new reminder.
type ScheduleInput struct {
	AppointmentID string
	ReferralID    string
	Message       notify.Message
	FireAt        time.Time
}
