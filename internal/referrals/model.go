// Package referrals owns client referral records and their lifecycle.
package referrals

import (
	"strings"
	"time"

	"github.com/wolfman30/referral-scheduler/internal/organizations"
)

// Status is the lifecycle state of a referral.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConsented Status = "consented"
	StatusDeclined  Status = "declined"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusDeclined || s == StatusCompleted || s == StatusCancelled
}

// ContactMethod is the channel a client prefers to be reached on.
type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
)

// ConsentType is the only consent currently collected.
const ConsentType = "therapy"

// ClientInfo is the identity and contact data captured at intake.
type ClientInfo struct {
	Name                string        `json:"name"`
	DateOfBirth         string        `json:"dob,omitempty"`
	Email               string        `json:"email,omitempty"`
	Phone               string        `json:"phone,omitempty"`
	PreferredContact    ContactMethod `json:"preferredContact"`
	ScheduleConstraints string        `json:"scheduleConstraints,omitempty"`
}

// Normalize trims the fields and checks that the preferred channel is usable.
// An empty preference defaults to email, or phone when only a phone is given.
func (c ClientInfo) Normalize() (ClientInfo, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.DateOfBirth = strings.TrimSpace(c.DateOfBirth)
	c.ScheduleConstraints = strings.TrimSpace(c.ScheduleConstraints)
	c.PreferredContact = ContactMethod(strings.ToLower(strings.TrimSpace(string(c.PreferredContact))))

	if c.Name == "" {
		return c, ErrInvalidName
	}
	if c.Email == "" && c.Phone == "" {
		return c, ErrMissingContact
	}
	switch c.PreferredContact {
	case "":
		c.PreferredContact = ContactEmail
		if c.Email == "" {
			c.PreferredContact = ContactPhone
		}
	case ContactEmail:
		if c.Email == "" {
			return c, ErrMissingContact
		}
	case ContactPhone:
		if c.Phone == "" {
			return c, ErrMissingContact
		}
	default:
		return c, ErrInvalidContactMethod
	}
	return c, nil
}

// ContactAddress returns the address for the preferred channel.
func (c ClientInfo) ContactAddress() string {
	if c.PreferredContact == ContactPhone {
		return c.Phone
	}
	return c.Email
}

// ConsentRecord is the client's recorded decision. It is never edited.
type ConsentRecord struct {
	ReferralID string    `json:"referralId"`
	Type       string    `json:"type"`
	Status     Status    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

// Referral is a client's case record with its fixed session allocation.
type Referral struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	ClientInfo
	Status           Status         `json:"status"`
	SessionsReserved int            `json:"sessionsReserved"`
	SessionsUsed     int            `json:"sessionsUsed"`
	SessionsReturned int            `json:"sessionsReturned,omitempty"`
	Consent          *ConsentRecord `json:"consent,omitempty"`
	ConsentRequested *time.Time     `json:"consentRequestSent,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

// Active reports whether the referral still counts for uniqueness.
func (r *Referral) Active() bool {
	return r.Status != StatusDeclined && r.Status != StatusCancelled
}

// Remaining is the number of allocated sessions not yet used.
func (r *Referral) Remaining() int {
	return r.SessionsReserved - r.SessionsUsed
}

// Held is the number of unused sessions still reserved for the referral in
// its organization's pool, after therapist returns.
func (r *Referral) Held() int {
	return max(r.Remaining()-r.SessionsReturned, 0)
}

// Exhausted reports whether every allocated session has been used.
func (r *Referral) Exhausted() bool {
	return r.SessionsUsed >= r.SessionsReserved
}

// sameClient matches on case-insensitive name and email.
func (r *Referral) sameClient(info ClientInfo) bool {
	return strings.EqualFold(r.Name, info.Name) && strings.EqualFold(r.Email, info.Email)
}

// defaultAllocation is the fixed number of sessions held per referral.
const defaultAllocation = organizations.PackageSize
