// Package organizations owns sponsoring organizations and their session pools.
package organizations

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PackageSize is the number of sessions allocated to one referral and the
// granularity of every organization's purchased total.
const PackageSize = 12

// Kind distinguishes the two organization variants.
type Kind string

const (
	// KindPurchaser funds a session pool and can reserve from it.
	KindPurchaser Kind = "purchaser"
	// KindReferrer refers clients without owning capacity.
	KindReferrer Kind = "referrer"
)

// ParseKind normalizes a kind string.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindPurchaser:
		return KindPurchaser, nil
	case KindReferrer:
		return KindReferrer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
}

// UnmarshalJSON rejects unknown kinds so a bad snapshot cannot smuggle one in.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseKind(raw)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Organization is the plain persisted record. Behavior lives in Ledger.
type Organization struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Kind             Kind       `json:"type"`
	TotalSessions    int        `json:"totalSessions"`
	ReservedSessions int        `json:"reservedSessions"`
	UsedSessions     int        `json:"usedSessions"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"createdAt"`
	DeactivatedAt    *time.Time `json:"deactivatedAt,omitempty"`
}

// CreateRequest is the onboarding input for a new organization.
type CreateRequest struct {
	Name          string `json:"name"`
	Kind          string `json:"type"`
	TotalSessions int    `json:"totalSessions"`
}

// Validate checks the onboarding rules: a name, a known kind and a total that
// is a non-negative multiple of PackageSize. Referrers own no capacity.
func (r *CreateRequest) Validate() (Kind, error) {
	if strings.TrimSpace(r.Name) == "" {
		return "", ErrInvalidName
	}
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return "", err
	}
	if r.TotalSessions < 0 || r.TotalSessions%PackageSize != 0 {
		return "", ErrInvalidSessionCount
	}
	if kind == KindReferrer && r.TotalSessions != 0 {
		return "", fmt.Errorf("%w: referrer organizations hold no sessions", ErrInvalidSessionCount)
	}
	return kind, nil
}

// Available is the number of sessions not yet reserved.
func (o *Organization) Available() int {
	return o.TotalSessions - o.ReservedSessions
}

// Releasable is the number of reserved sessions that have not been used.
func (o *Organization) Releasable() int {
	return o.ReservedSessions - o.UsedSessions
}

// Pool exposes the reservable capacity of a purchaser. Referrers have none.
func (o *Organization) Pool() (*Pool, bool) {
	if o == nil || o.Kind != KindPurchaser {
		return nil, false
	}
	return &Pool{org: o}, true
}

// Pool is the purchaser-only view that carries the reserve capability.
type Pool struct {
	org *Organization
}

// CanReserve reports whether count sessions are still unreserved.
func (p *Pool) CanReserve(count int) bool {
	return count > 0 && p.org.Available() >= count
}

func (p *Pool) reserve(count int) {
	p.org.ReservedSessions += count
}

// Totals aggregates session counters across organizations.
type Totals struct {
	TotalSessions    int `json:"totalActiveSessions"`
	ReservedSessions int `json:"reservedSessions"`
	UsedSessions     int `json:"usedSessions"`
	Available        int `json:"availableSessions"`
}
