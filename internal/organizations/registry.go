package organizations

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps organizations in memory in onboarding order.
type Registry struct {
	mu    sync.RWMutex
	orgs  map[string]*Organization
	order []string
	now   func() time.Time
	newID func() string
}

// Option customizes a Registry.
type Option func(*Registry)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator overrides the ID source.
func WithIDGenerator(newID func() string) Option {
	return func(r *Registry) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		orgs:  make(map[string]*Organization),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create validates and stores a new active organization with empty counters.
func (r *Registry) Create(req *CreateRequest) (*Organization, error) {
	kind, err := req.Validate()
	if err != nil {
		return nil, err
	}
	org := &Organization{
		ID:            r.newID(),
		Name:          strings.TrimSpace(req.Name),
		Kind:          kind,
		TotalSessions: req.TotalSessions,
		Active:        true,
		CreatedAt:     r.now(),
	}

	r.mu.Lock()
	r.orgs[org.ID] = org
	r.order = append(r.order, org.ID)
	r.mu.Unlock()
	return org, nil
}

// Get returns the live record for id.
func (r *Registry) Get(id string) (*Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	org, ok := r.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return org, nil
}

// List returns organizations in onboarding order.
func (r *Registry) List() []*Organization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Organization, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.orgs[id])
	}
	return out
}

// Deactivate marks an organization inactive. Records are never deleted.
func (r *Registry) Deactivate(id string) (*Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	org, ok := r.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !org.Active {
		return org, nil
	}
	now := r.now()
	org.Active = false
	org.DeactivatedAt = &now
	return org, nil
}

// Totals sums the counters of every organization.
func (r *Registry) Totals() Totals {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var t Totals
	for _, org := range r.orgs {
		t.TotalSessions += org.TotalSessions
		t.ReservedSessions += org.ReservedSessions
		t.UsedSessions += org.UsedSessions
	}
	t.Available = t.TotalSessions - t.ReservedSessions
	return t
}

// Snapshot copies every record for persistence.
func (r *Registry) Snapshot() []Organization {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Organization, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.orgs[id])
	}
	return out
}

// Restore replaces the registry contents, rejecting records that break the
// counter invariant.
func (r *Registry) Restore(records []Organization) error {
	orgs := make(map[string]*Organization, len(records))
	order := make([]string, 0, len(records))
	for i := range records {
		org := records[i]
		if err := checkCounters(&org); err != nil {
			return err
		}
		if _, dup := orgs[org.ID]; dup {
			return fmt.Errorf("organizations: restore: duplicate id %s", org.ID)
		}
		orgs[org.ID] = &org
		order = append(order, org.ID)
	}
	r.mu.Lock()
	r.orgs = orgs
	r.order = order
	r.mu.Unlock()
	return nil
}

func checkCounters(org *Organization) error {
	if org.UsedSessions < 0 || org.UsedSessions > org.ReservedSessions || org.ReservedSessions > org.TotalSessions {
		return fmt.Errorf("organizations: restore %s: counters out of range (used=%d reserved=%d total=%d)",
			org.ID, org.UsedSessions, org.ReservedSessions, org.TotalSessions)
	}
	return nil
}
